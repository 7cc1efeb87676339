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

// ApproveTransfer resolves a pending transfer and moves the money. The
// approver may override the requested amount; the balances move at the
// approved amount and the difference is stored as approval_variance. The
// pending -> approved transition is a conditional update, so a transfer can
// be resolved exactly once even under concurrent approvers.
func ApproveTransfer(ctx context.Context, logger *logrus.Logger, id int,
	approvedAmount *decimal.Decimal, notes string) (*models.CashTransfer, error) {

	if err := models.RequirePermission(ctx, models.ActionApproveTransfer, models.PermissionContext{}); err != nil {
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

	transfer, err := models.GetCashTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer.Status != models.TransferStatusPending {
		return nil, utils.NewStateConflictError("cash transfer", id, string(transfer.Status))
	}

	amount := transfer.RequestedAmount
	if approvedAmount != nil {
		amount = *approvedAmount
	}
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("approved_amount", "must be positive")
	}
	approvalVariance := amount.Sub(transfer.RequestedAmount)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := AcquireStorePostingLock(tx, businessId, transfer.StoreId); err != nil {
		config.LogError(logger, "transferWorkflow.go", "ApproveTransfer", "acquiring posting lock", transfer, err)
		return nil, err
	}
	defer ReleaseStorePostingLock(tx, businessId, transfer.StoreId)

	now := time.Now()
	result := tx.Model(&models.CashTransfer{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, models.TransferStatusPending).
		Updates(map[string]interface{}{
			"Status":           models.TransferStatusApproved,
			"ApprovedAmount":   amount,
			"ApprovalVariance": approvalVariance,
			"ResolvedBy":       userId,
			"ResolvedAt":       now,
			"ApprovalNotes":    notes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("cash transfer", id, "resolved")
	}

	description := "transfer " + amount.String() + " approved"
	if _, err := applyPoolTransaction(tx, businessId, transfer.FromPoolId,
		models.PoolTxnTransferOut, amount.Neg(), "cash_transfers", id, description); err != nil {
		config.LogError(logger, "transferWorkflow.go", "ApproveTransfer", "debiting source pool", transfer, err)
		return nil, err
	}
	if _, err := applyPoolTransaction(tx, businessId, transfer.ToPoolId,
		models.PoolTxnTransferIn, amount, "cash_transfers", id, description); err != nil {
		return nil, err
	}

	before := *transfer
	transfer.Status = models.TransferStatusApproved
	transfer.ApprovedAmount = &amount
	transfer.ApprovalVariance = approvalVariance
	transfer.ResolvedBy = userId
	transfer.ResolvedAt = &now
	transfer.ApprovalNotes = notes

	if err := models.CreateHistory(tx, "*APPROVE*", id, "cash_transfers", &before, transfer,
		"approved transfer of "+amount.String()); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return transfer, nil
}

// RejectTransfer terminates a pending transfer without any balance change.
func RejectTransfer(ctx context.Context, logger *logrus.Logger, id int, notes string) (*models.CashTransfer, error) {

	if err := models.RequirePermission(ctx, models.ActionApproveTransfer, models.PermissionContext{}); err != nil {
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

	transfer, err := models.GetCashTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer.Status != models.TransferStatusPending {
		return nil, utils.NewStateConflictError("cash transfer", id, string(transfer.Status))
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	now := time.Now()
	result := tx.Model(&models.CashTransfer{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, models.TransferStatusPending).
		Updates(map[string]interface{}{
			"Status":        models.TransferStatusRejected,
			"ResolvedBy":    userId,
			"ResolvedAt":    now,
			"ApprovalNotes": notes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateConflictError("cash transfer", id, "resolved")
	}

	before := *transfer
	transfer.Status = models.TransferStatusRejected
	transfer.ResolvedBy = userId
	transfer.ResolvedAt = &now
	transfer.ApprovalNotes = notes

	if err := models.CreateHistory(tx, "*REJECT*", id, "cash_transfers", &before, transfer,
		"rejected transfer of "+transfer.RequestedAmount.String()); err != nil {
		config.LogError(logger, "transferWorkflow.go", "RejectTransfer", "writing history", transfer, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return transfer, nil
}
