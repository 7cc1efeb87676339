package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
)

// CashPoolTransaction is the append-only balance ledger. One row per
// balance-changing event, written in the same transaction as the pool
// update. Rows are never updated or deleted, so a pool's balance can be
// rebuilt by replaying them in order.
type CashPoolTransaction struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	BusinessId      string              `gorm:"index;not null" json:"business_id"`
	PoolId          int                 `gorm:"index;not null" json:"pool_id"`
	StoreId         int                 `gorm:"index;not null" json:"store_id"`
	TransactionType PoolTransactionType `gorm:"type:enum('opening_balance','transfer_in','transfer_out','adjustment','deposit');size:20;not null" json:"transaction_type"`
	Amount          decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter    decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	ReferenceType   string              `gorm:"size:255" json:"reference_type"`
	ReferenceId     int                 `gorm:"index" json:"reference_id"`
	Description     string              `gorm:"type:text" json:"description"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

type CashPoolTransactionsEdge Edge[CashPoolTransaction]
type CashPoolTransactionsConnection struct {
	PageInfo *PageInfo                   `json:"pageInfo"`
	Edges    []*CashPoolTransactionsEdge `json:"edges"`
}

func (t CashPoolTransaction) GetBusinessId() string {
	return t.BusinessId
}

func (t CashPoolTransaction) GetCursor() string {
	return t.CreatedAt.String()
}

func (t CashPoolTransaction) GetId() int {
	return t.ID
}

// PaginateCashPoolTransactions walks a pool's ledger newest first.
func PaginateCashPoolTransactions(ctx context.Context, poolId int, limit *int, after *string) (*CashPoolTransactionsConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("pool_id = ?", poolId)
	edges, pageInfo, err := FetchPageCompositeCursor[CashPoolTransaction](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection CashPoolTransactionsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		ledgerEdge := CashPoolTransactionsEdge(edge)
		connection.Edges = append(connection.Edges, &ledgerEdge)
	}
	return &connection, err
}
