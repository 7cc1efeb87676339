package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// HandBill is a manually written sale recorded outside the point-of-sale
// system. It is later converted to a system sale; ConvertedSaleId links the
// two once that happens.
type HandBill struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	StoreId         int             `gorm:"index;not null" json:"store_id"`
	BillDate        time.Time       `gorm:"type:date;index;not null" json:"bill_date"`
	BillNumber      string          `gorm:"size:50;not null" json:"bill_number"`
	TenderType      TenderType      `gorm:"type:enum('cash','card','upi','credit');default:'cash';size:8;not null" json:"tender_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Notes           string          `gorm:"type:text" json:"notes"`
	ConvertedSaleId int             `gorm:"index" json:"converted_sale_id"`
	CreatedBy       int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewHandBill struct {
	StoreId    int             `json:"store_id" binding:"required"`
	BillDate   string          `json:"bill_date" binding:"required"`
	BillNumber string          `json:"bill_number" binding:"required"`
	TenderType TenderType      `json:"tender_type" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Notes      string          `json:"notes"`
}

func (h HandBill) GetBusinessId() string { return h.BusinessId }

func (h HandBill) TransactionKind() TransactionKind    { return TransactionKindHandBill }
func (h HandBill) TransactionId() int                  { return h.ID }
func (h HandBill) TransactionStoreId() int             { return h.StoreId }
func (h HandBill) TransactionDate() time.Time          { return h.BillDate }
func (h HandBill) TransactionAmount() decimal.Decimal  { return h.Amount }
func (h HandBill) TransactionDescription() string      { return "hand bill " + h.BillNumber }
func (h HandBill) TransactionTender() TenderType       { return h.TenderType }
func (h HandBill) TransactionCreatedBy() int           { return h.CreatedBy }
func (h HandBill) TransactionCreatedAt() time.Time     { return h.CreatedAt }
func (h HandBill) GetEnvelope() ReconciliationEnvelope { return h.ReconciliationEnvelope }

func CreateHandBill(ctx context.Context, input *NewHandBill) (*HandBill, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	billDate, err := time.Parse("2006-01-02", input.BillDate)
	if err != nil {
		return nil, utils.NewValidationError("bill_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	bill := HandBill{
		BusinessId: businessId,
		StoreId:    input.StoreId,
		BillDate:   billDate,
		BillNumber: input.BillNumber,
		TenderType: input.TenderType,
		Amount:     input.Amount,
		Notes:      input.Notes,
		CreatedBy:  userId,
	}
	bill.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// ConvertHandBill records the system sale created for a hand bill. A bill
// can be converted once; converting a reconciled bill is refused.
func ConvertHandBill(ctx context.Context, id int, saleId int) (*HandBill, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	bill, err := utils.FetchModel[HandBill](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if bill.ConvertedSaleId > 0 {
		return nil, utils.NewStateConflictError("hand bill", id, "converted")
	}
	if bill.ReconciliationStatus != ReconciliationStatusPending {
		return nil, utils.NewStateConflictError("hand bill", id, string(bill.ReconciliationStatus))
	}
	if err := utils.ValidateResourceId[Sale](ctx, businessId, saleId); err != nil {
		return nil, errors.New("sale not found")
	}

	// conditional update so a bill converts exactly once
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&HandBill{}).
		Where("business_id = ? AND id = ? AND converted_sale_id = 0 AND reconciliation_status = ?",
			businessId, id, ReconciliationStatusPending).
		UpdateColumn("converted_sale_id", saleId)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("hand bill", id, "converted")
	}

	bill.ConvertedSaleId = saleId
	return bill, nil
}
