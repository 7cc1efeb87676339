package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ApproveAdjustment resolves a pending adjustment. Approval records the
// decision only; the balance moves in the separate ApplyAdjustment step so
// an approved-but-unapplied adjustment stays observable.
func ApproveAdjustment(ctx context.Context, logger *logrus.Logger, id int,
	approvedAmount *decimal.Decimal, notes string) (*models.CashAdjustment, error) {

	if err := models.RequirePermission(ctx, models.ActionApproveAdjustment, models.PermissionContext{}); err != nil {
		return nil, err
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}

	adjustment, err := models.GetCashAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if adjustment.Status != models.AdjustmentStatusPending {
		return nil, utils.NewStateConflictError("cash adjustment", id, string(adjustment.Status))
	}

	amount := adjustment.RequestedAmount
	if approvedAmount != nil {
		amount = *approvedAmount
	}
	finalAmount, err := models.NormalizeFinalAmount(adjustment.AdjustmentType, amount)
	if err != nil {
		return nil, err
	}
	// always computed and stored, even when zero
	approvalVariance := amount.Sub(adjustment.RequestedAmount)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	now := time.Now()
	result := tx.Model(&models.CashAdjustment{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, models.AdjustmentStatusPending).
		Updates(map[string]interface{}{
			"Status":           models.AdjustmentStatusApproved,
			"ApprovedAmount":   amount,
			"FinalAmount":      finalAmount,
			"ApprovalVariance": approvalVariance,
			"ApprovedBy":       userId,
			"ApprovedAt":       now,
			"ApprovalNotes":    notes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("cash adjustment", id, "resolved")
	}

	before := *adjustment
	adjustment.Status = models.AdjustmentStatusApproved
	adjustment.ApprovedAmount = &amount
	adjustment.FinalAmount = finalAmount
	adjustment.ApprovalVariance = approvalVariance
	adjustment.ApprovedBy = userId
	adjustment.ApprovedAt = &now
	adjustment.ApprovalNotes = notes

	if err := models.CreateHistory(tx, "*APPROVE*", id, "cash_adjustments", &before, adjustment,
		"approved "+string(adjustment.AdjustmentType)+" adjustment of "+amount.String()); err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "ApproveAdjustment", "writing history", adjustment, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return adjustment, nil
}

// ApplyAdjustment posts an approved adjustment to the pool ledger, moving
// the record to completed. The approved -> completed transition is a
// conditional update under the store posting lock, so the balance mutation
// is applied exactly once.
func ApplyAdjustment(ctx context.Context, logger *logrus.Logger, id int) (*models.CashAdjustment, error) {

	if err := models.RequirePermission(ctx, models.ActionApproveAdjustment, models.PermissionContext{}); err != nil {
		return nil, err
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	adjustment, err := models.GetCashAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if adjustment.Status != models.AdjustmentStatusApproved {
		return nil, utils.NewStateConflictError("cash adjustment", id, string(adjustment.Status))
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := AcquireStorePostingLock(tx, businessId, adjustment.StoreId); err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "ApplyAdjustment", "acquiring posting lock", adjustment, err)
		return nil, err
	}
	defer ReleaseStorePostingLock(tx, businessId, adjustment.StoreId)

	now := time.Now()
	result := tx.Model(&models.CashAdjustment{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, models.AdjustmentStatusApproved).
		Updates(map[string]interface{}{
			"Status":      models.AdjustmentStatusCompleted,
			"CompletedAt": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("cash adjustment", id, "applied")
	}

	description := string(adjustment.AdjustmentType) + " adjustment " + adjustment.FinalAmount.String()
	if _, err := applyPoolTransaction(tx, businessId, adjustment.PoolId,
		models.PoolTxnAdjustment, adjustment.FinalAmount, "cash_adjustments", id, description); err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "ApplyAdjustment", "posting to pool", adjustment, err)
		return nil, err
	}

	before := *adjustment
	adjustment.Status = models.AdjustmentStatusCompleted
	adjustment.CompletedAt = &now

	if err := models.CreateHistory(tx, "*APPLY*", id, "cash_adjustments", &before, adjustment,
		"applied "+string(adjustment.AdjustmentType)+" adjustment of "+adjustment.FinalAmount.String()); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return adjustment, nil
}

// RejectAdjustment terminates a pending adjustment without any balance change.
func RejectAdjustment(ctx context.Context, logger *logrus.Logger, id int, notes string) (*models.CashAdjustment, error) {

	if err := models.RequirePermission(ctx, models.ActionApproveAdjustment, models.PermissionContext{}); err != nil {
		return nil, err
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}
	if notes == "" {
		return nil, utils.NewValidationError("notes", "rejection notes are required")
	}

	adjustment, err := models.GetCashAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}
	if adjustment.Status != models.AdjustmentStatusPending {
		return nil, utils.NewStateConflictError("cash adjustment", id, string(adjustment.Status))
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	now := time.Now()
	result := tx.Model(&models.CashAdjustment{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, models.AdjustmentStatusPending).
		Updates(map[string]interface{}{
			"Status":        models.AdjustmentStatusRejected,
			"ApprovedBy":    userId,
			"ApprovedAt":    now,
			"ApprovalNotes": notes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("cash adjustment", id, "resolved")
	}

	before := *adjustment
	adjustment.Status = models.AdjustmentStatusRejected
	adjustment.ApprovedBy = userId
	adjustment.ApprovedAt = &now
	adjustment.ApprovalNotes = notes

	if err := models.CreateHistory(tx, "*REJECT*", id, "cash_adjustments", &before, adjustment,
		"rejected "+string(adjustment.AdjustmentType)+" adjustment"); err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "RejectAdjustment", "writing history", adjustment, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return adjustment, nil
}
