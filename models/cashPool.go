package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// CashPool holds the materialized balance of one physical drawer or box.
// Every store carries exactly one pool per pool type. CurrentBalance moves
// only through workflow postings (opening, transfer resolution, adjustment
// application, deposit); reads never mutate it.
type CashPool struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	StoreId        int             `gorm:"index;not null;uniqueIndex:idx_store_pool_type" json:"store_id" binding:"required"`
	PoolType       CashPoolType    `gorm:"type:enum('sales_cash','petty_cash');size:12;not null;uniqueIndex:idx_store_pool_type" json:"pool_type" binding:"required"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	// LowBalanceThreshold is used for petty cash only; zero disables the check.
	LowBalanceThreshold decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"low_balance_threshold"`
	IsActive            *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCashPool struct {
	StoreId             int              `json:"store_id" binding:"required"`
	PoolType            CashPoolType     `json:"pool_type" binding:"required"`
	OpeningBalance      decimal.Decimal  `json:"opening_balance"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
}

func (p CashPool) GetBusinessId() string {
	return p.BusinessId
}

func (p CashPool) GetId() int {
	return p.ID
}

func (input *NewCashPool) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return errors.New("store not found")
	}
	if input.OpeningBalance.IsNegative() {
		return utils.NewValidationError("opening_balance", "must not be negative")
	}
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&CashPool{}).
		Where("business_id = ? AND store_id = ? AND pool_type = ?", businessId, input.StoreId, input.PoolType).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("pool_type", "pool already exists for this store")
	}
	return nil
}

// OpenCashPool creates the pool and writes its opening ledger entry in one
// transaction.
func OpenCashPool(ctx context.Context, input *NewCashPool) (*CashPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	pool := CashPool{
		BusinessId:     businessId,
		StoreId:        input.StoreId,
		PoolType:       input.PoolType,
		CurrentBalance: input.OpeningBalance,
		IsActive:       utils.NewTrue(),
	}
	if input.PoolType == CashPoolPettyCash {
		if input.LowBalanceThreshold != nil {
			pool.LowBalanceThreshold = *input.LowBalanceThreshold
		} else {
			pool.LowBalanceThreshold = config.PettyLowBalanceThreshold()
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&pool).Error; err != nil {
		// idx_store_pool_type: two concurrent opens, one wins
		if isDuplicateKeyErr(err) {
			return nil, utils.NewValidationError("pool_type", "pool already exists for this store")
		}
		return nil, err
	}
	entry := CashPoolTransaction{
		BusinessId:      businessId,
		PoolId:          pool.ID,
		StoreId:         pool.StoreId,
		TransactionType: PoolTxnOpeningBalance,
		Amount:          input.OpeningBalance,
		BalanceAfter:    input.OpeningBalance,
		ReferenceType:   "cash_pools",
		ReferenceId:     pool.ID,
		Description:     "opening balance",
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

func GetCashPool(ctx context.Context, id int) (*CashPool, error) {
	return GetResource[CashPool](ctx, id)
}

// GetCashPoolByStore resolves a pool by its natural key.
// (may return RecordNotFound error)
func GetCashPoolByStore(ctx context.Context, storeId int, poolType CashPoolType) (*CashPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var pool CashPool
	err := db.WithContext(ctx).
		Where("business_id = ? AND store_id = ? AND pool_type = ? AND is_active = 1",
			businessId, storeId, poolType).
		First(&pool).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &pool, nil
}

// EnsureCashPool resolves a pool by its natural key, creating it with a zero
// balance on first use. Counts and adjustments never require an explicit
// open; a racing create falls back to the winner's row.
func EnsureCashPool(ctx context.Context, storeId int, poolType CashPoolType) (*CashPool, error) {

	pool, err := GetCashPoolByStore(ctx, storeId, poolType)
	if err == nil {
		return pool, nil
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	if err := utils.ValidateResourceId[Store](ctx, businessId, storeId); err != nil {
		return nil, errors.New("store not found")
	}

	created := CashPool{
		BusinessId: businessId,
		StoreId:    storeId,
		PoolType:   poolType,
		IsActive:   utils.NewTrue(),
	}
	if poolType == CashPoolPettyCash {
		created.LowBalanceThreshold = config.PettyLowBalanceThreshold()
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&created).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return GetCashPoolByStore(ctx, storeId, poolType)
		}
		return nil, err
	}
	return &created, nil
}

func GetCashPools(ctx context.Context, storeId *int) ([]*CashPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*CashPool
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	err := dbCtx.Order("store_id, pool_type").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
