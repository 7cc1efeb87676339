package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesOrder is an advance booking; the reconcilable amount is the advance
// collected, not the order value.
type SalesOrder struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	StoreId       int             `gorm:"index;not null" json:"store_id"`
	OrderDate     time.Time       `gorm:"type:date;index;not null" json:"order_date"`
	OrderNumber   string          `gorm:"index;size:50;not null" json:"order_number"`
	CustomerName  string          `gorm:"size:100;not null" json:"customer_name"`
	OrderValue    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"order_value"`
	AdvanceAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"advance_amount"`
	TenderType    TenderType      `gorm:"type:enum('cash','card','upi','credit');default:'cash';size:8;not null" json:"tender_type"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSalesOrder struct {
	StoreId       int             `json:"store_id" binding:"required"`
	OrderDate     string          `json:"order_date" binding:"required"`
	OrderNumber   string          `json:"order_number" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"required"`
	OrderValue    decimal.Decimal `json:"order_value" binding:"required"`
	AdvanceAmount decimal.Decimal `json:"advance_amount" binding:"required"`
	TenderType    TenderType      `json:"tender_type" binding:"required"`
	Notes         string          `json:"notes"`
}

func (o SalesOrder) GetBusinessId() string { return o.BusinessId }

func (o SalesOrder) TransactionKind() TransactionKind    { return TransactionKindSalesOrder }
func (o SalesOrder) TransactionId() int                  { return o.ID }
func (o SalesOrder) TransactionStoreId() int             { return o.StoreId }
func (o SalesOrder) TransactionDate() time.Time          { return o.OrderDate }
func (o SalesOrder) TransactionAmount() decimal.Decimal  { return o.AdvanceAmount }
func (o SalesOrder) TransactionDescription() string      { return "order " + o.OrderNumber }
func (o SalesOrder) TransactionTender() TenderType       { return o.TenderType }
func (o SalesOrder) TransactionCreatedBy() int           { return o.CreatedBy }
func (o SalesOrder) TransactionCreatedAt() time.Time     { return o.CreatedAt }
func (o SalesOrder) GetEnvelope() ReconciliationEnvelope { return o.ReconciliationEnvelope }

func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.OrderValue.IsPositive() {
		return nil, utils.NewValidationError("order_value", "must be positive")
	}
	if input.AdvanceAmount.IsNegative() {
		return nil, utils.NewValidationError("advance_amount", "must not be negative")
	}
	if input.AdvanceAmount.GreaterThan(input.OrderValue) {
		return nil, utils.NewValidationError("advance_amount", "must not exceed order value")
	}
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		return nil, utils.NewValidationError("order_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	order := SalesOrder{
		BusinessId:    businessId,
		StoreId:       input.StoreId,
		OrderDate:     orderDate,
		OrderNumber:   input.OrderNumber,
		CustomerName:  input.CustomerName,
		OrderValue:    input.OrderValue,
		AdvanceAmount: input.AdvanceAmount,
		TenderType:    input.TenderType,
		Notes:         input.Notes,
		CreatedBy:     userId,
	}
	order.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
