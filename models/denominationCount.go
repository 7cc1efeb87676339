package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// DenominationCount records what was physically found in a drawer on a date,
// with the expected balance snapshotted at count time and the signed variance
// against it. A count never moves the pool balance; a recount is a new row.
type DenominationCount struct {
	ID                   int                       `gorm:"primary_key" json:"id"`
	BusinessId           string                    `gorm:"index;not null" json:"business_id"`
	StoreId              int                       `gorm:"index;not null" json:"store_id"`
	PoolId               int                       `gorm:"index;not null" json:"pool_id"`
	PoolType             CashPoolType              `gorm:"type:enum('sales_cash','petty_cash');size:12;not null" json:"pool_type"`
	CountDate            time.Time                 `gorm:"type:date;index;not null" json:"count_date"`
	CountedTotal         decimal.Decimal           `gorm:"type:decimal(20,4);not null" json:"counted_total"`
	ExpectedTotal        decimal.Decimal           `gorm:"type:decimal(20,4);not null" json:"expected_total"`
	Variance             decimal.Decimal           `gorm:"type:decimal(20,4);not null" json:"variance"`
	VarianceLevel        VarianceLevel             `gorm:"type:enum('none','warning','critical');default:'none';size:10;not null" json:"variance_level"`
	VarianceAcknowledged *bool                     `gorm:"not null;default:false" json:"variance_acknowledged"`
	Notes                string                    `gorm:"type:text" json:"notes"`
	CountedBy            int                       `gorm:"index;not null" json:"counted_by"`
	Details              []DenominationCountDetail `gorm:"foreignKey:CountId" json:"details"`
	CreatedAt            time.Time                 `gorm:"autoCreateTime" json:"created_at"`
}

// DenominationCountDetail is one (face value, quantity) line of a count.
type DenominationCountDetail struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CountId      int             `gorm:"index;not null" json:"count_id"`
	Denomination decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"denomination"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
}

type NewDenominationCountDetail struct {
	Denomination decimal.Decimal `json:"denomination" binding:"required"`
	Quantity     int             `json:"quantity"`
}

type NewDenominationCount struct {
	StoreId             int                          `json:"store_id" binding:"required"`
	PoolType            CashPoolType                 `json:"pool_type" binding:"required"`
	CountDate           string                       `json:"count_date" binding:"required"`
	Details             []NewDenominationCountDetail `json:"details" binding:"required"`
	Notes               string                       `json:"notes"`
	AcknowledgeVariance bool                         `json:"acknowledge_variance"`
}

type DenominationCountsEdge Edge[DenominationCount]
type DenominationCountsConnection struct {
	PageInfo *PageInfo                 `json:"pageInfo"`
	Edges    []*DenominationCountsEdge `json:"edges"`
}

func (c DenominationCount) GetBusinessId() string {
	return c.BusinessId
}

func (c DenominationCount) GetCursor() string {
	return c.CreatedAt.String()
}

func (c DenominationCount) GetId() int {
	return c.ID
}

// Validate rejects malformed denomination input at the boundary so the
// computation downstream only ever sees non-negative integer quantities.
func (input *NewDenominationCount) Validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
		return errors.New("store not found")
	}
	if _, err := time.Parse("2006-01-02", input.CountDate); err != nil {
		return utils.NewValidationError("count_date", "must be in YYYY-MM-DD format")
	}
	if len(input.Details) == 0 {
		return utils.NewValidationError("details", "at least one denomination line is required")
	}
	seen := make(map[string]bool, len(input.Details))
	for _, line := range input.Details {
		if !line.Denomination.IsPositive() {
			return utils.NewValidationError("denomination", "must be positive")
		}
		if line.Quantity < 0 {
			return utils.NewValidationError("quantity", "must not be negative")
		}
		key := line.Denomination.String()
		if seen[key] {
			return utils.NewValidationError("denomination", "duplicate denomination "+key)
		}
		seen[key] = true
	}
	return nil
}

func GetDenominationCount(ctx context.Context, id int) (*DenominationCount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[DenominationCount](ctx, businessId, id, "Details")
}

// GetLatestDenominationCount returns the most recent count for a pool, or
// RecordNotFound when the pool has never been counted.
func GetLatestDenominationCount(ctx context.Context, poolId int) (*DenominationCount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var count DenominationCount
	err := db.WithContext(ctx).
		Where("business_id = ? AND pool_id = ?", businessId, poolId).
		Order("count_date DESC, created_at DESC").
		First(&count).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &count, nil
}

// CountPoolSubmissions reports how many counts a pool has ever received.
func CountPoolSubmissions(ctx context.Context, businessId string, poolId int) (int64, error) {

	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&DenominationCount{}).
		Where("business_id = ? AND pool_id = ?", businessId, poolId).
		Count(&count).Error
	return count, err
}

func PaginateDenominationCounts(ctx context.Context, limit *int, after *string,
	storeId *int, poolType *CashPoolType) (*DenominationCountsConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Details")
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	if poolType != nil && *poolType != "" {
		dbCtx = dbCtx.Where("pool_type = ?", poolType)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[DenominationCount](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection DenominationCountsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		countEdge := DenominationCountsEdge(edge)
		connection.Edges = append(connection.Edges, &countEdge)
	}
	return &connection, err
}
