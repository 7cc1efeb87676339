package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// CashTransfer moves funds from the sales drawer to the petty-cash box of one
// store. A pending request holds no funds; the availability check at request
// time is advisory and is repeated at approval, where the balances actually
// move. Rejection is terminal, the row is never deleted.
type CashTransfer struct {
	ID               int              `gorm:"primary_key" json:"id"`
	BusinessId       string           `gorm:"index;not null" json:"business_id"`
	StoreId          int              `gorm:"index;not null" json:"store_id"`
	FromPoolId       int              `gorm:"not null" json:"from_pool_id"`
	ToPoolId         int              `gorm:"not null" json:"to_pool_id"`
	RequestedAmount  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"requested_amount"`
	ApprovedAmount   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"approved_amount"`
	ApprovalVariance decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"approval_variance"`
	Reason           string           `gorm:"type:text;not null" json:"reason"`
	Priority         TransferPriority `gorm:"type:enum('low','medium','high');default:'low';size:8;not null" json:"priority"`
	Status           TransferStatus   `gorm:"type:enum('pending','approved','rejected');default:'pending';size:10;not null;index" json:"status"`
	SourceBalance    decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"source_balance"`
	DestBalance      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"dest_balance"`
	RequestedBy      int              `gorm:"index;not null" json:"requested_by"`
	ResolvedBy       int              `gorm:"index" json:"resolved_by"`
	ResolvedAt       *time.Time       `json:"resolved_at"`
	ApprovalNotes    string           `gorm:"type:text" json:"approval_notes"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCashTransfer struct {
	StoreId int             `json:"store_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Reason  string          `json:"reason" binding:"required"`
}

type CashTransfersEdge Edge[CashTransfer]
type CashTransfersConnection struct {
	PageInfo *PageInfo            `json:"pageInfo"`
	Edges    []*CashTransfersEdge `json:"edges"`
}

func (t CashTransfer) GetBusinessId() string {
	return t.BusinessId
}

func (t CashTransfer) GetCursor() string {
	return t.CreatedAt.String()
}

func (t CashTransfer) GetId() int {
	return t.ID
}

// DeriveTransferPriority classifies a request by amount. Age-based
// escalation is layered on top when listing, not stored.
func DeriveTransferPriority(amount decimal.Decimal) TransferPriority {
	if amount.GreaterThanOrEqual(config.TransferHighPriorityAmount()) {
		return TransferPriorityHigh
	}
	if amount.GreaterThanOrEqual(config.TransferMediumPriorityAmount()) {
		return TransferPriorityMedium
	}
	return TransferPriorityLow
}

// RequestTransfer creates a pending transfer after checking the requested
// amount is currently available in the store's sales drawer.
func RequestTransfer(ctx context.Context, input *NewCashTransfer) (*CashTransfer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	if input.Reason == "" {
		return nil, utils.NewValidationError("reason", "is required")
	}

	fromPool, err := GetCashPoolByStore(ctx, input.StoreId, CashPoolSalesCash)
	if err != nil {
		return nil, err
	}
	toPool, err := EnsureCashPool(ctx, input.StoreId, CashPoolPettyCash)
	if err != nil {
		return nil, err
	}
	if fromPool.CurrentBalance.LessThan(input.Amount) {
		return nil, utils.NewInsufficientBalanceError(string(fromPool.PoolType), input.Amount, fromPool.CurrentBalance)
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	transfer := CashTransfer{
		BusinessId:      businessId,
		StoreId:         input.StoreId,
		FromPoolId:      fromPool.ID,
		ToPoolId:        toPool.ID,
		RequestedAmount: input.Amount,
		Reason:          input.Reason,
		Priority:        DeriveTransferPriority(input.Amount),
		Status:          TransferStatusPending,
		SourceBalance:   fromPool.CurrentBalance,
		DestBalance:     toPool.CurrentBalance,
		RequestedBy:     userId,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&transfer).Error; err != nil {
		return nil, err
	}
	if err := CreateHistory(tx, "*REQUEST*", transfer.ID, "cash_transfers", nil, &transfer,
		"requested transfer of "+input.Amount.String()); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

// GetCashTransfer fetches directly from the db; resolution paths must see
// current status, never a cached copy.
func GetCashTransfer(ctx context.Context, id int) (*CashTransfer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[CashTransfer](ctx, businessId, id)
}

// GetPendingTransfers lists open requests oldest first, with priority
// escalated for requests that have aged past the given cutoff.
func GetPendingTransfers(ctx context.Context, storeId *int, escalateAfter time.Duration) ([]*CashTransfer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*CashTransfer
	dbCtx := db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessId, TransferStatusPending)
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if err := dbCtx.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}

	if escalateAfter > 0 {
		cutoff := time.Now().Add(-escalateAfter)
		for _, t := range results {
			if t.CreatedAt.Before(cutoff) && t.Priority != TransferPriorityHigh {
				t.Priority = TransferPriorityHigh
			}
		}
	}
	return results, nil
}

func PaginateCashTransfers(ctx context.Context, limit *int, after *string,
	storeId *int, status *TransferStatus) (*CashTransfersConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[CashTransfer](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection CashTransfersConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		transferEdge := CashTransfersEdge(edge)
		connection.Edges = append(connection.Edges, &transferEdge)
	}
	return &connection, err
}
