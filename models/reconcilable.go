package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconciliationEnvelope is embedded in all six reconcilable transaction
// kinds. Only a pending record may transition; once reconciled or completed
// the core transactional fields are frozen (enforced in the workflow layer,
// not by the schema).
type ReconciliationEnvelope struct {
	ReconciliationStatus ReconciliationStatus  `gorm:"type:enum('pending','reconciled','completed');default:'pending';size:12;not null;index" json:"reconciliation_status"`
	ReconciliationSource *ReconciliationSource `gorm:"type:enum('bank','erp','cash','voucher');size:10" json:"reconciliation_source"`
	ExternalReference    string                `gorm:"size:100" json:"external_reference"`
	ReconciliationNotes  string                `gorm:"type:text" json:"reconciliation_notes"`
	ReconciledBy         int                   `gorm:"index" json:"reconciled_by"`
	ReconciledAt         *time.Time            `json:"reconciled_at"`
}

// Reconcilable is the union over the six transaction kinds. Each concrete
// model implements it so the reconciliation ledger can operate uniformly.
type Reconcilable interface {
	TransactionKind() TransactionKind
	TransactionId() int
	TransactionStoreId() int
	TransactionDate() time.Time
	TransactionAmount() decimal.Decimal
	TransactionDescription() string
	TransactionTender() TenderType
	TransactionCreatedBy() int
	TransactionCreatedAt() time.Time
	GetEnvelope() ReconciliationEnvelope
}

// ReconcilableRecord is the kind-agnostic projection handed to the
// reconciliation workflow and to API listings.
type ReconcilableRecord struct {
	Kind        TransactionKind        `json:"kind"`
	Id          int                    `json:"id"`
	StoreId     int                    `json:"store_id"`
	Date        time.Time              `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
	TenderType  TenderType             `json:"tender_type"`
	CreatedBy   int                    `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	Envelope    ReconciliationEnvelope `json:"envelope"`
}

func toRecord(r Reconcilable) *ReconcilableRecord {
	return &ReconcilableRecord{
		Kind:        r.TransactionKind(),
		Id:          r.TransactionId(),
		StoreId:     r.TransactionStoreId(),
		Date:        r.TransactionDate(),
		Amount:      r.TransactionAmount(),
		Description: r.TransactionDescription(),
		TenderType:  r.TransactionTender(),
		CreatedBy:   r.TransactionCreatedBy(),
		CreatedAt:   r.TransactionCreatedAt(),
		Envelope:    r.GetEnvelope(),
	}
}

// kindSpec is the per-kind adapter: where the rows live, which column
// carries the business date, whether the kind is store scoped, and which
// terminal status an ordinary reconcile lands on.
type kindSpec struct {
	table       string
	dateColumn  string
	storeScoped bool
	terminal    ReconciliationStatus
	list        func(ctx context.Context, businessId string, from, to time.Time, storeIds []int) ([]*ReconcilableRecord, error)
	fetch       func(ctx context.Context, businessId string, id int) (*ReconcilableRecord, error)
}

// Sales orders and gift vouchers settle in one step; the other kinds pass
// through "reconciled" and are closed out by accounts. Populated in init()
// because the list/fetch functions read the registry back for their kindSpec.
var kindRegistry map[TransactionKind]kindSpec

func init() {
	kindRegistry = map[TransactionKind]kindSpec{
		TransactionKindSale: {
			table: "sales", dateColumn: "sale_date", storeScoped: true,
			terminal: ReconciliationStatusReconciled,
			list:     listPendingKind[Sale], fetch: fetchRecordKind[Sale],
		},
		TransactionKindExpense: {
			table: "expenses", dateColumn: "expense_date", storeScoped: true,
			terminal: ReconciliationStatusReconciled,
			list:     listPendingKind[Expense], fetch: fetchRecordKind[Expense],
		},
		TransactionKindReturn: {
			table: "sale_returns", dateColumn: "return_date", storeScoped: true,
			terminal: ReconciliationStatusReconciled,
			list:     listPendingKind[SaleReturn], fetch: fetchRecordKind[SaleReturn],
		},
		TransactionKindHandBill: {
			table: "hand_bills", dateColumn: "bill_date", storeScoped: true,
			terminal: ReconciliationStatusReconciled,
			list:     listPendingKind[HandBill], fetch: fetchRecordKind[HandBill],
		},
		TransactionKindGiftVoucher: {
			table: "gift_vouchers", dateColumn: "issue_date", storeScoped: false,
			terminal: ReconciliationStatusCompleted,
			list:     listPendingKind[GiftVoucher], fetch: fetchRecordKind[GiftVoucher],
		},
		TransactionKindSalesOrder: {
			table: "sales_orders", dateColumn: "order_date", storeScoped: true,
			terminal: ReconciliationStatusCompleted,
			list:     listPendingKind[SalesOrder], fetch: fetchRecordKind[SalesOrder],
		},
	}
}

// KindSpecTerminal reports the status an ordinary reconcile of this kind
// lands on.
func KindSpecTerminal(kind TransactionKind) (ReconciliationStatus, error) {
	spec, ok := kindRegistry[kind]
	if !ok {
		return "", utils.NewValidationError("kind", "unknown transaction kind")
	}
	return spec.terminal, nil
}

func listPendingKind[T Reconcilable](ctx context.Context, businessId string, from, to time.Time, storeIds []int) ([]*ReconcilableRecord, error) {

	spec := kindRegistry[(*new(T)).TransactionKind()]

	db := config.GetDB()
	var rows []T
	dbCtx := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("reconciliation_status = ?", ReconciliationStatusPending).
		Where(spec.dateColumn+" BETWEEN ? AND ?", from, to)
	if spec.storeScoped {
		if len(storeIds) > 0 {
			dbCtx = dbCtx.Where("store_id IN ?", storeIds)
		}
	} else {
		// store-agnostic kinds are pending while never reconciled
		dbCtx = dbCtx.Where("reconciled_at IS NULL")
	}
	if err := dbCtx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*ReconcilableRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func fetchRecordKind[T Reconcilable](ctx context.Context, businessId string, id int) (*ReconcilableRecord, error) {

	db := config.GetDB()
	var row T
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		First(&row, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return toRecord(row), nil
}

// ListPendingByKind runs one kind's pending query over a date range.
func ListPendingByKind(ctx context.Context, kind TransactionKind, from, to time.Time, storeIds []int) ([]*ReconcilableRecord, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	spec, ok := kindRegistry[kind]
	if !ok {
		return nil, utils.NewValidationError("kind", "unknown transaction kind")
	}
	return spec.list(ctx, businessId, from, to, storeIds)
}

// GetReconcilableRecord fetches one transaction of any kind for permission
// and state checks. Always reads the db, never a cache.
func GetReconcilableRecord(ctx context.Context, kind TransactionKind, id int) (*ReconcilableRecord, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	spec, ok := kindRegistry[kind]
	if !ok {
		return nil, utils.NewValidationError("kind", "unknown transaction kind")
	}
	return spec.fetch(ctx, businessId, id)
}

// ApplyReconciliation performs the conditional status transition inside the
// caller's transaction: the UPDATE only matches while the row is still in
// fromStatus, so of two concurrent resolvers exactly one sees
// RowsAffected == 1.
func ApplyReconciliation(tx *gorm.DB, businessId string, kind TransactionKind, id int,
	fromStatus ReconciliationStatus, update map[string]interface{}) (int64, error) {

	spec, ok := kindRegistry[kind]
	if !ok {
		return 0, utils.NewValidationError("kind", "unknown transaction kind")
	}

	result := tx.Table(spec.table).
		Where("business_id = ? AND id = ? AND reconciliation_status = ?", businessId, id, fromStatus).
		Updates(update)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// KindTable exposes the storage table for audit references.
func KindTable(kind TransactionKind) string {
	return kindRegistry[kind].table
}

// SummarizeKind reports total/reconciled/pending row counts for one kind
// over a date range.
type KindSummary struct {
	Kind       TransactionKind `json:"kind"`
	Total      int64           `json:"total"`
	Reconciled int64           `json:"reconciled"`
	Pending    int64           `json:"pending"`
}

func SummarizeKind(ctx context.Context, kind TransactionKind, from, to time.Time, storeIds []int) (*KindSummary, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	spec, ok := kindRegistry[kind]
	if !ok {
		return nil, utils.NewValidationError("kind", "unknown transaction kind")
	}

	db := config.GetDB()
	scoped := func() *gorm.DB {
		dbCtx := db.WithContext(ctx).Table(spec.table).
			Where("business_id = ?", businessId).
			Where(spec.dateColumn+" BETWEEN ? AND ?", from, to)
		if spec.storeScoped && len(storeIds) > 0 {
			dbCtx = dbCtx.Where("store_id IN ?", storeIds)
		}
		return dbCtx
	}

	summary := KindSummary{Kind: kind}
	if err := scoped().Count(&summary.Total).Error; err != nil {
		return nil, err
	}
	if err := scoped().
		Where("reconciliation_status IN ?", []ReconciliationStatus{ReconciliationStatusReconciled, ReconciliationStatusCompleted}).
		Count(&summary.Reconciled).Error; err != nil {
		return nil, err
	}
	summary.Pending = summary.Total - summary.Reconciled
	return &summary, nil
}
