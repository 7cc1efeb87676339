package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyPoolTransaction posts one signed amount to a pool inside the caller's
// transaction: locks the pool row, moves the balance, and appends the ledger
// entry with the balance after. The only writer of CashPool.CurrentBalance.
func applyPoolTransaction(tx *gorm.DB, businessId string, poolId int,
	txnType models.PoolTransactionType, amount decimal.Decimal,
	referenceType string, referenceId int, description string) (decimal.Decimal, error) {

	var pool models.CashPool
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&pool, poolId).Error
	if err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}

	newBalance := pool.CurrentBalance.Add(amount)
	if newBalance.IsNegative() {
		return decimal.Zero, utils.NewInsufficientBalanceError(
			string(pool.PoolType), amount.Abs(), pool.CurrentBalance)
	}

	err = tx.Model(&pool).UpdateColumn("CurrentBalance", newBalance).Error
	if err != nil {
		return decimal.Zero, err
	}

	entry := models.CashPoolTransaction{
		BusinessId:      businessId,
		PoolId:          pool.ID,
		StoreId:         pool.StoreId,
		TransactionType: txnType,
		Amount:          amount,
		BalanceAfter:    newBalance,
		ReferenceType:   referenceType,
		ReferenceId:     referenceId,
		Description:     description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return decimal.Zero, err
	}

	if err := utils.RemoveRedisItem[models.CashPool](pool.ID); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// GetCurrentBalance answers "what is in pool P at store S right now" from
// the materialized balance. Repeated calls without an intervening posting
// return identical values.
func GetCurrentBalance(ctx context.Context, storeId int, poolType models.CashPoolType) (decimal.Decimal, error) {
	pool, err := models.GetCashPoolByStore(ctx, storeId, poolType)
	if err != nil {
		return decimal.Zero, err
	}
	return pool.CurrentBalance, nil
}

// GetExpectedBalance computes what a count on the given date should find:
// the materialized balance plus the day's live cash flows that have not
// posted to the pool ledger. Cash sales add to and cash returns subtract
// from the sales drawer; cash expenses subtract from whichever pool paid.
func GetExpectedBalance(ctx context.Context, storeId int, poolType models.CashPoolType, date time.Time) (decimal.Decimal, error) {

	pool, err := models.GetCashPoolByStore(ctx, storeId, poolType)
	if err != nil {
		return decimal.Zero, err
	}

	var cashSales, cashReturns decimal.Decimal
	if poolType == models.CashPoolSalesCash {
		cashSales, err = models.SumSalesByTender(ctx, storeId, date, models.TenderTypeCash)
		if err != nil {
			return decimal.Zero, err
		}
		cashReturns, err = models.SumCashReturns(ctx, storeId, date)
		if err != nil {
			return decimal.Zero, err
		}
	}

	cashExpenses, err := models.SumCashExpensesByPool(ctx, storeId, date, poolType)
	if err != nil {
		return decimal.Zero, err
	}

	return ComposeExpectedBalance(pool.CurrentBalance, poolType, cashSales, cashReturns, cashExpenses), nil
}

// ComposeExpectedBalance combines the materialized balance with the day's
// live cash flows. Sales and returns only touch the sales drawer; expenses
// reduce whichever pool paid them.
func ComposeExpectedBalance(balance decimal.Decimal, poolType models.CashPoolType,
	cashSales, cashReturns, cashExpenses decimal.Decimal) decimal.Decimal {

	expected := balance
	if poolType == models.CashPoolSalesCash {
		expected = expected.Add(cashSales).Sub(cashReturns)
	}
	return expected.Sub(cashExpenses)
}

// CashPositionResponse is what a count submission returns to the caller.
type CashPositionResponse struct {
	Count          *models.DenominationCount `json:"count"`
	LowBalance     bool                      `json:"low_balance"`
	WarningMessage string                    `json:"warning_message,omitempty"`
}

// SubmitCount turns a physical denomination count into a persisted record
// with its variance graded against policy. A critical variance blocks the
// submission until the counter acknowledges it; the balance itself is never
// changed by a count.
func SubmitCount(ctx context.Context, logger *logrus.Logger, input *models.NewDenominationCount) (*CashPositionResponse, error) {

	if err := models.RequirePermission(ctx, models.ActionSubmitCount, models.PermissionContext{}); err != nil {
		return nil, err
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.Validate(ctx, businessId); err != nil {
		return nil, err
	}

	pool, err := models.EnsureCashPool(ctx, input.StoreId, input.PoolType)
	if err != nil {
		return nil, err
	}
	countDate, err := time.Parse("2006-01-02", input.CountDate)
	if err != nil {
		return nil, utils.NewValidationError("count_date", "must be in YYYY-MM-DD format")
	}

	// Best-effort: serialize concurrent submissions for the same pool. If
	// Redis is unavailable or the lock cannot be obtained, continue anyway;
	// a count never moves the balance.
	if redisLock := config.GetRedisLock(); redisLock != nil {
		lock, lockErr := redisLock.Obtain(ctx, fmt.Sprintf("lock:count:%s:%d", businessId, pool.ID), 30*time.Second, nil)
		if lockErr == redislock.ErrNotObtained {
			logger.WithFields(logrus.Fields{
				"field":       "cashPosition",
				"business_id": businessId,
				"pool_id":     pool.ID,
			}).Warn("could not obtain redis lock for count; proceeding without it")
		} else if lockErr != nil {
			logger.WithFields(logrus.Fields{
				"field":       "cashPosition",
				"business_id": businessId,
				"pool_id":     pool.ID,
			}).Warn("error obtaining redis lock for count; proceeding without it: " + lockErr.Error())
		} else {
			defer func() {
				_ = lock.Release(ctx)
			}()
		}
	}

	expected, err := GetExpectedBalance(ctx, input.StoreId, input.PoolType, countDate)
	if err != nil {
		config.LogError(logger, "cashPosition.go", "SubmitCount", "computing expected balance", input, err)
		return nil, err
	}

	lines := make([]DenominationLine, 0, len(input.Details))
	details := make([]models.DenominationCountDetail, 0, len(input.Details))
	for _, d := range input.Details {
		lines = append(lines, DenominationLine{Denomination: d.Denomination, Quantity: d.Quantity})
		details = append(details, models.DenominationCountDetail{
			Denomination: d.Denomination,
			Quantity:     d.Quantity,
			LineTotal:    d.Denomination.Mul(decimal.NewFromInt(int64(d.Quantity))),
		})
	}

	total := ComputeDenominationTotal(lines)
	variance := total.Sub(expected)
	level := ClassifyVariance(variance, input.PoolType)

	if level == models.VarianceLevelCritical && !input.AcknowledgeVariance {
		return nil, utils.NewValidationError("variance",
			"critical variance of "+variance.String()+" must be acknowledged before submission")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	acknowledged := input.AcknowledgeVariance && level == models.VarianceLevelCritical
	count := models.DenominationCount{
		BusinessId:           businessId,
		StoreId:              input.StoreId,
		PoolId:               pool.ID,
		PoolType:             input.PoolType,
		CountDate:            countDate,
		CountedTotal:         total,
		ExpectedTotal:        expected,
		Variance:             variance,
		VarianceLevel:        level,
		VarianceAcknowledged: &acknowledged,
		Notes:                input.Notes,
		CountedBy:            userId,
		Details:              details,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&count).Error; err != nil {
		config.LogError(logger, "cashPosition.go", "SubmitCount", "persisting count", input, err)
		return nil, err
	}
	if err := models.CreateHistory(tx, "*COUNT*", count.ID, "denomination_counts", nil, &count,
		"counted "+total.String()+" against expected "+expected.String()); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	response := CashPositionResponse{Count: &count}
	if pool.PoolType == models.CashPoolPettyCash &&
		pool.LowBalanceThreshold.IsPositive() &&
		total.LessThan(pool.LowBalanceThreshold) {
		response.LowBalance = true
		response.WarningMessage = "petty cash below threshold " + pool.LowBalanceThreshold.String()
	}
	if level == models.VarianceLevelWarning {
		response.WarningMessage = "variance of " + variance.String() + " exceeds the warning threshold"
	}
	return &response, nil
}
