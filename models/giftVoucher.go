package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// GiftVoucher is the one store-agnostic kind: it is issued centrally and can
// be redeemed at any store. Redemption is all-or-nothing; partial redemption
// is refused.
type GiftVoucher struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	VoucherNumber   string          `gorm:"uniqueIndex;size:50;not null" json:"voucher_number"`
	IssueDate       time.Time       `gorm:"type:date;index;not null" json:"issue_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	ExpiryDate      *time.Time      `gorm:"type:date" json:"expiry_date"`
	RedeemedAt      *time.Time      `json:"redeemed_at"`
	RedeemedStoreId int             `gorm:"index" json:"redeemed_store_id"`
	CreatedBy       int             `gorm:"index;not null" json:"created_by"`
	ReconciliationEnvelope
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGiftVoucher struct {
	VoucherNumber string          `json:"voucher_number" binding:"required"`
	IssueDate     string          `json:"issue_date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ExpiryDate    *string         `json:"expiry_date"`
}

type RedeemGiftVoucher struct {
	StoreId int             `json:"store_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

func (v GiftVoucher) GetBusinessId() string { return v.BusinessId }

func (v GiftVoucher) TransactionKind() TransactionKind    { return TransactionKindGiftVoucher }
func (v GiftVoucher) TransactionId() int                  { return v.ID }
func (v GiftVoucher) TransactionStoreId() int             { return 0 }
func (v GiftVoucher) TransactionDate() time.Time          { return v.IssueDate }
func (v GiftVoucher) TransactionAmount() decimal.Decimal  { return v.Amount }
func (v GiftVoucher) TransactionDescription() string      { return "voucher " + v.VoucherNumber }
func (v GiftVoucher) TransactionTender() TenderType       { return TenderTypeCash }
func (v GiftVoucher) TransactionCreatedBy() int           { return v.CreatedBy }
func (v GiftVoucher) TransactionCreatedAt() time.Time     { return v.CreatedAt }
func (v GiftVoucher) GetEnvelope() ReconciliationEnvelope { return v.ReconciliationEnvelope }

func CreateGiftVoucher(ctx context.Context, input *NewGiftVoucher) (*GiftVoucher, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	issueDate, err := time.Parse("2006-01-02", input.IssueDate)
	if err != nil {
		return nil, utils.NewValidationError("issue_date", "must be in YYYY-MM-DD format")
	}
	if err := utils.ValidateUnique[GiftVoucher](ctx, businessId, "voucher_number", input.VoucherNumber, 0); err != nil {
		return nil, err
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	voucher := GiftVoucher{
		BusinessId:    businessId,
		VoucherNumber: input.VoucherNumber,
		IssueDate:     issueDate,
		Amount:        input.Amount,
		CreatedBy:     userId,
	}
	if input.ExpiryDate != nil && *input.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", *input.ExpiryDate)
		if err != nil {
			return nil, utils.NewValidationError("expiry_date", "must be in YYYY-MM-DD format")
		}
		voucher.ExpiryDate = &expiry
	}
	voucher.ReconciliationStatus = ReconciliationStatusPending

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&voucher).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, utils.NewValidationError("voucher_number", "already exists")
		}
		return nil, err
	}
	return &voucher, nil
}

// RedeemVoucher marks a voucher redeemed at a store. The redeemed amount
// must match the face value exactly.
func RedeemVoucher(ctx context.Context, voucherNumber string, input *RedeemGiftVoucher) (*GiftVoucher, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var voucher GiftVoucher
	err := db.WithContext(ctx).
		Where("business_id = ? AND voucher_number = ?", businessId, voucherNumber).
		First(&voucher).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if voucher.RedeemedAt != nil {
		return nil, utils.NewStateConflictError("gift voucher", voucher.ID, "redeemed")
	}
	if voucher.ExpiryDate != nil && voucher.ExpiryDate.Before(time.Now()) {
		return nil, utils.NewStateConflictError("gift voucher", voucher.ID, "expired")
	}
	if !input.Amount.Equal(voucher.Amount) {
		return nil, utils.NewValidationError("amount", "partial redemption is not allowed")
	}
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	// conditional update so two terminals cannot both redeem
	now := time.Now()
	result := db.WithContext(ctx).Model(&GiftVoucher{}).
		Where("business_id = ? AND id = ? AND redeemed_at IS NULL", businessId, voucher.ID).
		Updates(map[string]interface{}{
			"redeemed_at":       now,
			"redeemed_store_id": input.StoreId,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("gift voucher", voucher.ID, "redeemed")
	}

	voucher.RedeemedAt = &now
	voucher.RedeemedStoreId = input.StoreId
	return &voucher, nil
}
