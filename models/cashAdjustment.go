package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// CashAdjustment is a non-transfer balance change to a single pool. The sign
// of FinalAmount is normalized once, at request time: a loss is stored
// negative even though the requester enters a positive figure. Approval and
// ledger application are distinct steps (approved then completed) so an
// approved-but-unapplied adjustment is observable.
type CashAdjustment struct {
	ID               int              `gorm:"primary_key" json:"id"`
	BusinessId       string           `gorm:"index;not null" json:"business_id"`
	StoreId          int              `gorm:"index;not null" json:"store_id"`
	PoolId           int              `gorm:"index;not null" json:"pool_id"`
	PoolType         CashPoolType     `gorm:"type:enum('sales_cash','petty_cash');size:12;not null" json:"pool_type"`
	AdjustmentType   AdjustmentType   `gorm:"type:enum('initial_setup','correction','injection','loss');size:15;not null" json:"adjustment_type"`
	RequestedAmount  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"requested_amount"`
	ApprovedAmount   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"approved_amount"`
	FinalAmount      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"final_amount"`
	ApprovalVariance decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"approval_variance"`
	Reason           string           `gorm:"type:text;not null" json:"reason"`
	Status           AdjustmentStatus `gorm:"type:enum('pending','approved','rejected','completed');default:'pending';size:10;not null;index" json:"status"`
	BalanceSnapshot  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"balance_snapshot"`
	RequestedBy      int              `gorm:"index;not null" json:"requested_by"`
	ApprovedBy       int              `gorm:"index" json:"approved_by"`
	ApprovedAt       *time.Time       `json:"approved_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
	ApprovalNotes    string           `gorm:"type:text" json:"approval_notes"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCashAdjustment struct {
	StoreId        int             `json:"store_id" binding:"required"`
	PoolType       CashPoolType    `json:"pool_type" binding:"required"`
	AdjustmentType AdjustmentType  `json:"adjustment_type" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Reason         string          `json:"reason" binding:"required"`
}

type CashAdjustmentsEdge Edge[CashAdjustment]
type CashAdjustmentsConnection struct {
	PageInfo *PageInfo              `json:"pageInfo"`
	Edges    []*CashAdjustmentsEdge `json:"edges"`
}

func (a CashAdjustment) GetBusinessId() string {
	return a.BusinessId
}

func (a CashAdjustment) GetCursor() string {
	return a.CreatedAt.String()
}

func (a CashAdjustment) GetId() int {
	return a.ID
}

// NormalizeFinalAmount applies the per-type sign convention: losses are
// stored negative, setups and injections positive, corrections keep the
// sign the requester entered.
func NormalizeFinalAmount(adjustmentType AdjustmentType, amount decimal.Decimal) (decimal.Decimal, error) {
	switch adjustmentType {
	case AdjustmentTypeLoss:
		if !amount.IsPositive() {
			return decimal.Zero, utils.NewValidationError("amount", "loss must be entered as a positive figure")
		}
		return amount.Neg(), nil
	case AdjustmentTypeInjection:
		if !amount.IsPositive() {
			return decimal.Zero, utils.NewValidationError("amount", "injection must be positive")
		}
		return amount, nil
	case AdjustmentTypeInitialSetup:
		if amount.IsNegative() {
			return decimal.Zero, utils.NewValidationError("amount", "opening balance must not be negative")
		}
		return amount, nil
	case AdjustmentTypeCorrection:
		if amount.IsZero() {
			return decimal.Zero, utils.NewValidationError("amount", "correction must not be zero")
		}
		return amount, nil
	}
	return decimal.Zero, utils.NewValidationError("adjustment_type", "unknown adjustment type")
}

// RequestAdjustment creates a pending adjustment with the sign already
// normalized. An initial_setup is only accepted for a pool that has never
// been counted and has no prior non-rejected adjustment.
func RequestAdjustment(ctx context.Context, input *NewCashAdjustment) (*CashAdjustment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if input.Reason == "" {
		return nil, utils.NewValidationError("reason", "is required")
	}
	finalAmount, err := NormalizeFinalAmount(input.AdjustmentType, input.Amount)
	if err != nil {
		return nil, err
	}

	pool, err := EnsureCashPool(ctx, input.StoreId, input.PoolType)
	if err != nil {
		return nil, err
	}

	if input.AdjustmentType == AdjustmentTypeInitialSetup {
		if err := validateInitialSetup(ctx, businessId, pool.ID); err != nil {
			return nil, err
		}
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	adjustment := CashAdjustment{
		BusinessId:      businessId,
		StoreId:         input.StoreId,
		PoolId:          pool.ID,
		PoolType:        input.PoolType,
		AdjustmentType:  input.AdjustmentType,
		RequestedAmount: input.Amount,
		FinalAmount:     finalAmount,
		Reason:          input.Reason,
		Status:          AdjustmentStatusPending,
		BalanceSnapshot: pool.CurrentBalance,
		RequestedBy:     userId,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&adjustment).Error; err != nil {
		return nil, err
	}
	if err := CreateHistory(tx, "*REQUEST*", adjustment.ID, "cash_adjustments", nil, &adjustment,
		"requested "+string(input.AdjustmentType)+" adjustment of "+input.Amount.String()); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

// a pool can only be initialized once
func validateInitialSetup(ctx context.Context, businessId string, poolId int) error {

	db := config.GetDB()
	var priorAdjustments int64
	err := db.WithContext(ctx).Model(&CashAdjustment{}).
		Where("business_id = ? AND pool_id = ? AND status <> ?", businessId, poolId, AdjustmentStatusRejected).
		Count(&priorAdjustments).Error
	if err != nil {
		return err
	}

	priorCounts, err := CountPoolSubmissions(ctx, businessId, poolId)
	if err != nil {
		return err
	}
	return CheckInitialSetupAllowed(priorAdjustments, priorCounts)
}

// CheckInitialSetupAllowed rejects an initial_setup once the pool carries any
// non-rejected adjustment or any denomination count. Rejected requests do not
// consume the one-shot.
func CheckInitialSetupAllowed(priorAdjustments, priorCounts int64) error {
	if priorAdjustments > 0 {
		return utils.NewValidationError("adjustment_type", "pool has already been initialized")
	}
	if priorCounts > 0 {
		return utils.NewValidationError("adjustment_type", "pool has already been counted")
	}
	return nil
}

// GetCashAdjustment fetches directly from the db; resolution paths must see
// current status, never a cached copy.
func GetCashAdjustment(ctx context.Context, id int) (*CashAdjustment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[CashAdjustment](ctx, businessId, id)
}

func GetPendingAdjustments(ctx context.Context, storeId *int) ([]*CashAdjustment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*CashAdjustment
	dbCtx := db.WithContext(ctx).
		Where("business_id = ? AND status IN ?", businessId,
			[]AdjustmentStatus{AdjustmentStatusPending, AdjustmentStatusApproved})
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if err := dbCtx.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateCashAdjustments(ctx context.Context, limit *int, after *string,
	storeId *int, status *AdjustmentStatus) (*CashAdjustmentsConnection, error) {

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
	edges, pageInfo, err := FetchPageCompositeCursor[CashAdjustment](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection CashAdjustmentsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		adjustmentEdge := CashAdjustmentsEdge(edge)
		connection.Edges = append(connection.Edges, &adjustmentEdge)
	}
	return &connection, err
}
