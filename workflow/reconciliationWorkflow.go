package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/sirupsen/logrus"
)

type ReconcileInput struct {
	Kind              models.TransactionKind      `json:"kind" binding:"required"`
	Id                int                         `json:"id" binding:"required"`
	Source            models.ReconciliationSource `json:"source" binding:"required"`
	ExternalReference string                      `json:"external_reference"`
	Notes             string                      `json:"notes"`
}

// ListPending fans out to the six kind-specific pending queries
// concurrently, merges the results and sorts them by creation time.
func ListPending(ctx context.Context, logger *logrus.Logger, date string, storeIds []int) ([]*models.ReconcilableRecord, error) {

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, utils.NewValidationError("date", "must be in YYYY-MM-DD format")
	}

	kinds := models.AllTransactionKinds()
	perKind := make([][]*models.ReconcilableRecord, len(kinds))
	errs := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind models.TransactionKind) {
			defer wg.Done()
			perKind[i], errs[i] = models.ListPendingByKind(ctx, kind, day, day, storeIds)
		}(i, kind)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "ListPending",
				"querying pending "+string(kinds[i]), date, err)
			return nil, err
		}
	}

	merged := make([]*models.ReconcilableRecord, 0)
	for _, records := range perKind {
		merged = append(merged, records...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged, nil
}

// Reconcile transitions one transaction out of pending. Ordinary reconciles
// land on the kind's terminal status; acting on an already-reconciled record
// is reserved for accounts and moves it to completed. The transition is a
// conditional update, so a record is resolved exactly once.
func Reconcile(ctx context.Context, logger *logrus.Logger, input *ReconcileInput) (*models.ReconcilableRecord, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	record, err := models.GetReconcilableRecord(ctx, input.Kind, input.Id)
	if err != nil {
		return nil, err
	}

	status := record.Envelope.ReconciliationStatus
	pctx := models.PermissionContext{
		Status:  status,
		SameDay: sameCalendarDay(record.CreatedAt, time.Now()),
		IsOwner: record.CreatedBy == userId,
	}

	now := time.Now()
	var fromStatus, toStatus models.ReconciliationStatus
	var update map[string]interface{}

	switch status {
	case models.ReconciliationStatusPending:
		if err := models.RequirePermission(ctx, models.ActionReconcile, pctx); err != nil {
			return nil, err
		}
		toStatus, err = models.KindSpecTerminal(input.Kind)
		if err != nil {
			return nil, err
		}
		fromStatus = models.ReconciliationStatusPending
		source := input.Source
		if source == "" {
			return nil, utils.NewValidationError("source", "is required")
		}
		update = map[string]interface{}{
			"reconciliation_status": toStatus,
			"reconciliation_source": source,
			"external_reference":    input.ExternalReference,
			"reconciliation_notes":  input.Notes,
			"reconciled_by":         userId,
			"reconciled_at":         now,
		}
	case models.ReconciliationStatusReconciled:
		if err := models.RequirePermission(ctx, models.ActionReReconcile, pctx); err != nil {
			return nil, err
		}
		fromStatus = models.ReconciliationStatusReconciled
		toStatus = models.ReconciliationStatusCompleted
		update = map[string]interface{}{
			"reconciliation_status": toStatus,
			"reconciliation_notes":  input.Notes,
			"reconciled_by":         userId,
			"reconciled_at":         now,
		}
	default:
		return nil, utils.NewStateConflictError(string(input.Kind), input.Id, string(status))
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := models.ApplyReconciliation(tx, businessId, input.Kind, input.Id, fromStatus, update)
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "Reconcile", "applying transition", input, err)
		return nil, err
	}
	if rows == 0 {
		return nil, utils.NewStateConflictError(string(input.Kind), input.Id, "resolved")
	}

	if err := models.CreateHistory(tx, "*RECONCILE*", input.Id, models.KindTable(input.Kind),
		&record.Envelope, update,
		"reconciled "+string(input.Kind)+" against "+string(input.Source)); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return models.GetReconcilableRecord(ctx, input.Kind, input.Id)
}

// BatchItemResult reports the outcome of one item in a batch reconcile.
type BatchItemResult struct {
	Kind  models.TransactionKind `json:"kind"`
	Id    int                    `json:"id"`
	Error string                 `json:"error,omitempty"`
}

type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

// ReconcileBatch groups the items by kind and processes the kinds
// concurrently. Kinds are independent: a failure in one kind's items never
// blocks another kind, and failures within a kind are reported per item.
func ReconcileBatch(ctx context.Context, logger *logrus.Logger, items []ReconcileInput) (*BatchResult, error) {

	if len(items) == 0 {
		return nil, utils.NewValidationError("items", "at least one item is required")
	}

	byKind := make(map[models.TransactionKind][]ReconcileInput)
	for _, item := range items {
		byKind[item.Kind] = append(byKind[item.Kind], item)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	result := BatchResult{Items: make([]BatchItemResult, 0, len(items))}

	for kind, kindItems := range byKind {
		wg.Add(1)
		go func(kind models.TransactionKind, kindItems []ReconcileInput) {
			defer wg.Done()
			for _, item := range kindItems {
				item := item
				_, err := Reconcile(ctx, logger, &item)

				mu.Lock()
				itemResult := BatchItemResult{Kind: item.Kind, Id: item.Id}
				if err != nil {
					itemResult.Error = err.Error()
					result.Failed++
				} else {
					result.Succeeded++
				}
				result.Items = append(result.Items, itemResult)
				mu.Unlock()
			}
		}(kind, kindItems)
	}
	wg.Wait()

	sort.SliceStable(result.Items, func(i, j int) bool {
		if result.Items[i].Kind != result.Items[j].Kind {
			return result.Items[i].Kind < result.Items[j].Kind
		}
		return result.Items[i].Id < result.Items[j].Id
	})
	return &result, nil
}

// ReconciliationSummary aggregates per-kind and overall counts for a date
// range, for compliance dashboards.
type ReconciliationSummary struct {
	FromDate string                `json:"from_date"`
	ToDate   string                `json:"to_date"`
	Kinds    []*models.KindSummary `json:"kinds"`
	Overall  models.KindSummary    `json:"overall"`
}

func Summarize(ctx context.Context, logger *logrus.Logger, fromDate, toDate string, storeIds []int) (*ReconciliationSummary, error) {

	from, err := time.Parse("2006-01-02", fromDate)
	if err != nil {
		return nil, utils.NewValidationError("from_date", "must be in YYYY-MM-DD format")
	}
	to, err := time.Parse("2006-01-02", toDate)
	if err != nil {
		return nil, utils.NewValidationError("to_date", "must be in YYYY-MM-DD format")
	}
	if to.Before(from) {
		return nil, utils.NewValidationError("to_date", "must not be before from_date")
	}

	kinds := models.AllTransactionKinds()
	summaries := make([]*models.KindSummary, len(kinds))
	errs := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind models.TransactionKind) {
			defer wg.Done()
			summaries[i], errs[i] = models.SummarizeKind(ctx, kind, from, to, storeIds)
		}(i, kind)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "Summarize",
				"summarizing "+string(kinds[i]), fromDate+".."+toDate, err)
			return nil, err
		}
	}

	summary := ReconciliationSummary{FromDate: fromDate, ToDate: toDate, Kinds: summaries}
	summary.Overall.Kind = "overall"
	for _, s := range summaries {
		summary.Overall.Total += s.Total
		summary.Overall.Reconciled += s.Reconciled
		summary.Overall.Pending += s.Pending
	}
	return &summary, nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
