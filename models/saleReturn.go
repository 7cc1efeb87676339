package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// SaleReturn refunds a prior sale. Cash returns reduce the expected sales
// drawer balance for the return date.
type SaleReturn struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	BusinessId         string          `gorm:"index;not null" json:"business_id"`
	StoreId            int             `gorm:"index;not null" json:"store_id"`
	ReturnDate         time.Time       `gorm:"type:date;index;not null" json:"return_date"`
	OriginalBillNumber string          `gorm:"size:50;not null" json:"original_bill_number"`
	TenderType         TenderType      `gorm:"type:enum('cash','card','upi','credit');default:'cash';size:8;not null" json:"tender_type"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reason             string          `gorm:"type:text;not null" json:"reason"`
	CreatedBy          int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSaleReturn struct {
	StoreId            int             `json:"store_id" binding:"required"`
	ReturnDate         string          `json:"return_date" binding:"required"`
	OriginalBillNumber string          `json:"original_bill_number" binding:"required"`
	TenderType         TenderType      `json:"tender_type" binding:"required"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	Reason             string          `json:"reason" binding:"required"`
}

func (r SaleReturn) GetBusinessId() string { return r.BusinessId }

func (r SaleReturn) TransactionKind() TransactionKind    { return TransactionKindReturn }
func (r SaleReturn) TransactionId() int                  { return r.ID }
func (r SaleReturn) TransactionStoreId() int             { return r.StoreId }
func (r SaleReturn) TransactionDate() time.Time          { return r.ReturnDate }
func (r SaleReturn) TransactionAmount() decimal.Decimal  { return r.Amount }
func (r SaleReturn) TransactionDescription() string      { return "return of bill " + r.OriginalBillNumber }
func (r SaleReturn) TransactionTender() TenderType       { return r.TenderType }
func (r SaleReturn) TransactionCreatedBy() int           { return r.CreatedBy }
func (r SaleReturn) TransactionCreatedAt() time.Time     { return r.CreatedAt }
func (r SaleReturn) GetEnvelope() ReconciliationEnvelope { return r.ReconciliationEnvelope }

func CreateSaleReturn(ctx context.Context, input *NewSaleReturn) (*SaleReturn, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	returnDate, err := time.Parse("2006-01-02", input.ReturnDate)
	if err != nil {
		return nil, utils.NewValidationError("return_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	saleReturn := SaleReturn{
		BusinessId:         businessId,
		StoreId:            input.StoreId,
		ReturnDate:         returnDate,
		OriginalBillNumber: input.OriginalBillNumber,
		TenderType:         input.TenderType,
		Amount:             input.Amount,
		Reason:             input.Reason,
		CreatedBy:          userId,
	}
	saleReturn.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&saleReturn).Error; err != nil {
		return nil, err
	}
	return &saleReturn, nil
}

// SumCashReturns aggregates a store's cash refunds for one date.
func SumCashReturns(ctx context.Context, storeId int, date time.Time) (decimal.Decimal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, errors.New("business id is required")
	}

	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&SaleReturn{}).
		Select("SUM(amount)").
		Where("business_id = ? AND store_id = ? AND return_date = ? AND tender_type = ?",
			businessId, storeId, date, TenderTypeCash).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
