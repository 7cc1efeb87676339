package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// Expense is a cash outflow paid from one of the store's pools. The pool it
// was paid from matters for the expected-balance computation, not for the
// materialized balance (expenses do not post to the pool ledger).
type Expense struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	StoreId      int             `gorm:"index;not null" json:"store_id"`
	ExpenseDate  time.Time       `gorm:"type:date;index;not null" json:"expense_date"`
	Category     string          `gorm:"size:100;not null" json:"category"`
	Description  string          `gorm:"type:text" json:"description"`
	TenderType   TenderType      `gorm:"type:enum('cash','card','upi','credit');default:'cash';size:8;not null" json:"tender_type"`
	PaidFromPool CashPoolType    `gorm:"type:enum('sales_cash','petty_cash');default:'petty_cash';size:12;not null" json:"paid_from_pool"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedBy    int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	StoreId      int             `json:"store_id" binding:"required"`
	ExpenseDate  string          `json:"expense_date" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	Description  string          `json:"description"`
	TenderType   TenderType      `json:"tender_type" binding:"required"`
	PaidFromPool CashPoolType    `json:"paid_from_pool" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

func (e Expense) GetBusinessId() string { return e.BusinessId }

func (e Expense) TransactionKind() TransactionKind    { return TransactionKindExpense }
func (e Expense) TransactionId() int                  { return e.ID }
func (e Expense) TransactionStoreId() int             { return e.StoreId }
func (e Expense) TransactionDate() time.Time          { return e.ExpenseDate }
func (e Expense) TransactionAmount() decimal.Decimal  { return e.Amount }
func (e Expense) TransactionDescription() string      { return e.Category }
func (e Expense) TransactionTender() TenderType       { return e.TenderType }
func (e Expense) TransactionCreatedBy() int           { return e.CreatedBy }
func (e Expense) TransactionCreatedAt() time.Time     { return e.CreatedAt }
func (e Expense) GetEnvelope() ReconciliationEnvelope { return e.ReconciliationEnvelope }

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	expenseDate, err := time.Parse("2006-01-02", input.ExpenseDate)
	if err != nil {
		return nil, utils.NewValidationError("expense_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	expense := Expense{
		BusinessId:   businessId,
		StoreId:      input.StoreId,
		ExpenseDate:  expenseDate,
		Category:     input.Category,
		Description:  input.Description,
		TenderType:   input.TenderType,
		PaidFromPool: input.PaidFromPool,
		Amount:       input.Amount,
		CreatedBy:    userId,
	}
	expense.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func GetExpenses(ctx context.Context, storeId *int, date *string) ([]*Expense, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Expense
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if date != nil && *date != "" {
		dbCtx = dbCtx.Where("expense_date = ?", date)
	}
	if err := dbCtx.Order("expense_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SumCashExpensesByPool aggregates a store's cash expenses for one date,
// split by the pool they were paid from.
func SumCashExpensesByPool(ctx context.Context, storeId int, date time.Time, pool CashPoolType) (decimal.Decimal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, errors.New("business id is required")
	}

	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&Expense{}).
		Select("SUM(amount)").
		Where("business_id = ? AND store_id = ? AND expense_date = ? AND tender_type = ? AND paid_from_pool = ?",
			businessId, storeId, date, TenderTypeCash, pool).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
