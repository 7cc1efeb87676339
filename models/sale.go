package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	StoreId      int             `gorm:"index;not null" json:"store_id"`
	SaleDate     time.Time       `gorm:"type:date;index;not null" json:"sale_date"`
	BillNumber   string          `gorm:"index;size:50;not null" json:"bill_number"`
	CustomerName string          `gorm:"size:100" json:"customer_name"`
	TenderType   TenderType      `gorm:"type:enum('cash','card','upi','credit');default:'cash';size:8;not null" json:"tender_type"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedBy    int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSale struct {
	StoreId      int             `json:"store_id" binding:"required"`
	SaleDate     string          `json:"sale_date" binding:"required"`
	BillNumber   string          `json:"bill_number" binding:"required"`
	CustomerName string          `json:"customer_name"`
	TenderType   TenderType      `json:"tender_type" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Notes        string          `json:"notes"`
}

func (s Sale) GetBusinessId() string { return s.BusinessId }

func (s Sale) TransactionKind() TransactionKind    { return TransactionKindSale }
func (s Sale) TransactionId() int                  { return s.ID }
func (s Sale) TransactionStoreId() int             { return s.StoreId }
func (s Sale) TransactionDate() time.Time          { return s.SaleDate }
func (s Sale) TransactionAmount() decimal.Decimal  { return s.Amount }
func (s Sale) TransactionDescription() string      { return "bill " + s.BillNumber }
func (s Sale) TransactionTender() TenderType       { return s.TenderType }
func (s Sale) TransactionCreatedBy() int           { return s.CreatedBy }
func (s Sale) TransactionCreatedAt() time.Time     { return s.CreatedAt }
func (s Sale) GetEnvelope() ReconciliationEnvelope { return s.ReconciliationEnvelope }

func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	saleDate, err := time.Parse("2006-01-02", input.SaleDate)
	if err != nil {
		return nil, utils.NewValidationError("sale_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	sale := Sale{
		BusinessId:   businessId,
		StoreId:      input.StoreId,
		SaleDate:     saleDate,
		BillNumber:   input.BillNumber,
		CustomerName: input.CustomerName,
		TenderType:   input.TenderType,
		Amount:       input.Amount,
		Notes:        input.Notes,
		CreatedBy:    userId,
	}
	sale.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpdateSale edits the transactional fields of a sale. Once the record has
// left pending, edits are refused for everyone but accounts.
func UpdateSale(ctx context.Context, id int, input *NewSale) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	sale, err := utils.FetchModel[Sale](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if !CanEditTransaction(sale.ReconciliationStatus, CallerRole(ctx)) {
		return nil, utils.NewStateConflictError("sale", id, string(sale.ReconciliationStatus))
	}

	saleDate, err := time.Parse("2006-01-02", input.SaleDate)
	if err != nil {
		return nil, utils.NewValidationError("sale_date", "must be in YYYY-MM-DD format")
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&sale).Updates(map[string]interface{}{
		"SaleDate":     saleDate,
		"BillNumber":   input.BillNumber,
		"CustomerName": input.CustomerName,
		"TenderType":   input.TenderType,
		"Amount":       input.Amount,
		"Notes":        input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func GetSales(ctx context.Context, storeId *int, date *string) ([]*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Sale
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if date != nil && *date != "" {
		dbCtx = dbCtx.Where("sale_date = ?", date)
	}
	if err := dbCtx.Order("sale_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SumSalesByTender aggregates a store's sales for one date by tender type.
func SumSalesByTender(ctx context.Context, storeId int, date time.Time, tender TenderType) (decimal.Decimal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, errors.New("business id is required")
	}

	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&Sale{}).
		Select("SUM(amount)").
		Where("business_id = ? AND store_id = ? AND sale_date = ? AND tender_type = ?",
			businessId, storeId, date, tender).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
