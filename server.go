package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/middlewares"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"bitbucket.org/mmdatafocus/dailysales_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("dailysales-backend")

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var authErr *utils.AuthorizationError
	var stateErr *utils.StateConflictError
	var balanceErr *utils.InsufficientBalanceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &balanceErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"pool":      balanceErr.Pool,
			"requested": balanceErr.Requested,
			"available": balanceErr.Available,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requireIdentity rejects requests that carry no authenticated caller.
func requireIdentity(c *gin.Context) (context.Context, bool) {
	ctx := c.Request.Context()
	if _, ok := utils.GetUserIdFromContext(ctx); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return ctx, true
}

func queryInt(c *gin.Context, name string) *int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func queryLimit(c *gin.Context) *int {
	limit := 20
	if n := queryInt(c, "limit"); n != nil && *n <= 100 {
		limit = *n
	}
	return &limit
}

func queryAfter(c *gin.Context) *string {
	v := strings.TrimSpace(c.Query("after"))
	if v == "" {
		return nil
	}
	return &v
}

func queryStoreIds(c *gin.Context) []int {
	csv := strings.TrimSpace(c.Query("store_ids"))
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}

func signinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SigninInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		response, err := models.Signin(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

func storeRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.GET("/stores", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		stores, err := models.GetAccessibleStores(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stores)
	})

	r.GET("/stores/default", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		store, err := models.GetDefaultStore(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, store)
	})

	r.POST("/stores", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "super user only"})
			return
		}
		var input models.NewStore
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		store, err := models.CreateStore(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, store)
	})

	r.GET("/users/me", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		userId, _ := utils.GetUserIdFromContext(ctx)
		user, err := models.GetUser(ctx, userId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	})

	r.POST("/users", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "super user only"})
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		user, err := models.CreateUser(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	})
}

func poolRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.POST("/pools", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "super user only"})
			return
		}
		var input models.NewCashPool
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		pool, err := models.OpenCashPool(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, pool)
	})

	r.GET("/pools", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		pools, err := models.GetCashPools(ctx, queryInt(c, "store_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pools)
	})

	r.GET("/pools/:id", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		pool, err := models.GetCashPool(ctx, poolId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pool)
	})

	r.GET("/pools/:id/latest-count", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		count, err := models.GetLatestDenominationCount(ctx, poolId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, count)
	})

	r.GET("/pools/:id/ledger", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		connection, err := models.PaginateCashPoolTransactions(ctx, poolId, queryLimit(c), queryAfter(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	})

	r.GET("/balances/current", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		storeId := queryInt(c, "store_id")
		if storeId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
			return
		}
		poolType := models.CashPoolType(c.Query("pool_type"))
		balance, err := workflow.GetCurrentBalance(ctx, *storeId, poolType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"store_id": *storeId, "pool_type": poolType, "balance": balance})
	})

	r.GET("/balances/expected", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		storeId := queryInt(c, "store_id")
		if storeId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
			return
		}
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
			return
		}
		poolType := models.CashPoolType(c.Query("pool_type"))
		expected, err := workflow.GetExpectedBalance(ctx, *storeId, poolType, date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"store_id": *storeId, "pool_type": poolType, "date": c.Query("date"), "expected": expected})
	})
}

func countRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.POST("/counts", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var input models.NewDenominationCount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		response, err := workflow.SubmitCount(ctx, logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, response)
	})

	r.GET("/counts", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var poolType *models.CashPoolType
		if v := c.Query("pool_type"); v != "" {
			pt := models.CashPoolType(v)
			poolType = &pt
		}
		connection, err := models.PaginateDenominationCounts(ctx, queryLimit(c), queryAfter(c),
			queryInt(c, "store_id"), poolType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	})

	r.GET("/counts/:id", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count id"})
			return
		}
		count, err := models.GetDenominationCount(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, count)
	})
}

type resolveRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Notes  string           `json:"notes"`
}

func transferRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.POST("/transfers", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := models.RequirePermission(ctx, models.ActionRequestTransfer, models.PermissionContext{}); err != nil {
			respondError(c, err)
			return
		}
		var input models.NewCashTransfer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		transfer, err := models.RequestTransfer(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, transfer)
	})

	r.GET("/transfers", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var status *models.TransferStatus
		if v := c.Query("status"); v != "" {
			s := models.TransferStatus(v)
			status = &s
		}
		connection, err := models.PaginateCashTransfers(ctx, queryLimit(c), queryAfter(c),
			queryInt(c, "store_id"), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	})

	r.GET("/transfers/pending", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		transfers, err := models.GetPendingTransfers(ctx, queryInt(c, "store_id"), 24*time.Hour)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transfers)
	})

	r.POST("/transfers/:id/approve", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
			return
		}
		var req resolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		transfer, err := workflow.ApproveTransfer(ctx, logger, id, req.Amount, req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transfer)
	})

	r.POST("/transfers/:id/reject", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
			return
		}
		var req resolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		transfer, err := workflow.RejectTransfer(ctx, logger, id, req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transfer)
	})
}

func adjustmentRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.POST("/adjustments", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := models.RequirePermission(ctx, models.ActionRequestAdjustment, models.PermissionContext{}); err != nil {
			respondError(c, err)
			return
		}
		var input models.NewCashAdjustment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		adjustment, err := models.RequestAdjustment(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, adjustment)
	})

	r.GET("/adjustments", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var status *models.AdjustmentStatus
		if v := c.Query("status"); v != "" {
			s := models.AdjustmentStatus(v)
			status = &s
		}
		connection, err := models.PaginateCashAdjustments(ctx, queryLimit(c), queryAfter(c),
			queryInt(c, "store_id"), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	})

	r.GET("/adjustments/pending", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		adjustments, err := models.GetPendingAdjustments(ctx, queryInt(c, "store_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustments)
	})

	r.POST("/adjustments/:id/approve", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment id"})
			return
		}
		var req resolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		adjustment, err := workflow.ApproveAdjustment(ctx, logger, id, req.Amount, req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustment)
	})

	r.POST("/adjustments/:id/apply", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment id"})
			return
		}
		adjustment, err := workflow.ApplyAdjustment(ctx, logger, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustment)
	})

	r.POST("/adjustments/:id/reject", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment id"})
			return
		}
		var req resolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		adjustment, err := workflow.RejectAdjustment(ctx, logger, id, req.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustment)
	})
}

// recordTransaction wraps the per-kind create handlers with the recording
// permission check.
func recordTransaction[T any](create func(context.Context, *T) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := models.RequirePermission(ctx, models.ActionRecordTransaction, models.PermissionContext{}); err != nil {
			respondError(c, err)
			return
		}
		var input T
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		created, err := create(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func transactionRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.POST("/transactions/sales", recordTransaction(func(ctx context.Context, input *models.NewSale) (interface{}, error) {
		return models.CreateSale(ctx, input)
	}))
	r.POST("/transactions/expenses", recordTransaction(func(ctx context.Context, input *models.NewExpense) (interface{}, error) {
		return models.CreateExpense(ctx, input)
	}))
	r.POST("/transactions/returns", recordTransaction(func(ctx context.Context, input *models.NewSaleReturn) (interface{}, error) {
		return models.CreateSaleReturn(ctx, input)
	}))
	r.POST("/transactions/hand-bills", recordTransaction(func(ctx context.Context, input *models.NewHandBill) (interface{}, error) {
		return models.CreateHandBill(ctx, input)
	}))
	r.POST("/transactions/gift-vouchers", recordTransaction(func(ctx context.Context, input *models.NewGiftVoucher) (interface{}, error) {
		return models.CreateGiftVoucher(ctx, input)
	}))
	r.POST("/transactions/sales-orders", recordTransaction(func(ctx context.Context, input *models.NewSalesOrder) (interface{}, error) {
		return models.CreateSalesOrder(ctx, input)
	}))

	r.GET("/transactions/sales", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var date *string
		if v := c.Query("date"); v != "" {
			date = &v
		}
		sales, err := models.GetSales(ctx, queryInt(c, "store_id"), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sales)
	})

	r.GET("/transactions/expenses", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var date *string
		if v := c.Query("date"); v != "" {
			date = &v
		}
		expenses, err := models.GetExpenses(ctx, queryInt(c, "store_id"), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expenses)
	})

	r.PUT("/transactions/sales/:id", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
			return
		}
		var input models.NewSale
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		sale, err := models.UpdateSale(ctx, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sale)
	})

	r.POST("/transactions/hand-bills/:id/convert", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hand bill id"})
			return
		}
		var req struct {
			SaleId int `json:"sale_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		bill, err := models.ConvertHandBill(ctx, id, req.SaleId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	})

	r.POST("/transactions/gift-vouchers/:number/redeem", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var input models.RedeemGiftVoucher
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		voucher, err := models.RedeemVoucher(ctx, c.Param("number"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, voucher)
	})
}

func reconciliationRoutes(r *gin.RouterGroup, logger *logrus.Logger) {

	r.GET("/reconciliation/pending", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		records, err := workflow.ListPending(ctx, logger, c.Query("date"), queryStoreIds(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	})

	r.POST("/reconciliation/reconcile", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var input workflow.ReconcileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		record, err := workflow.Reconcile(ctx, logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	})

	r.POST("/reconciliation/batch", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		var items []workflow.ReconcileInput
		if err := c.ShouldBindJSON(&items); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		ctx, span := tracer.Start(ctx, "reconciliation.batch")
		defer span.End()
		result, err := workflow.ReconcileBatch(ctx, logger, items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/reconciliation/summary", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := models.RequirePermission(ctx, models.ActionViewReports, models.PermissionContext{}); err != nil {
			respondError(c, err)
			return
		}
		summary, err := workflow.Summarize(ctx, logger, c.Query("from"), c.Query("to"), queryStoreIds(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	r.GET("/reconciliation/summary/export", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := models.RequirePermission(ctx, models.ActionViewReports, models.PermissionContext{}); err != nil {
			respondError(c, err)
			return
		}
		data, err := workflow.ExportSummaryXlsx(ctx, logger, c.Query("from"), c.Query("to"), queryStoreIds(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=reconciliation-summary.xlsx")
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	})

	r.GET("/histories", func(c *gin.Context) {
		ctx, ok := requireIdentity(c)
		if !ok {
			return
		}
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		referenceId := queryInt(c, "reference_id")
		referenceType := c.Query("reference_type")
		if referenceId == nil || referenceType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_type and reference_id are required"})
			return
		}
		histories, err := models.GetHistories(config.GetDB().WithContext(ctx), businessId, referenceType, *referenceId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate everything else on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/signin", signinHandler())

	api := r.Group("/api/v1")
	storeRoutes(api, logger)
	poolRoutes(api, logger)
	countRoutes(api, logger)
	transferRoutes(api, logger)
	adjustmentRoutes(api, logger)
	transactionRoutes(api, logger)
	reconciliationRoutes(api, logger)

	// Start listening immediately; dependencies connect after the port is open.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
