package models

import (
	"context"

	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
)

type PermissionAction string

const (
	ActionSubmitCount       PermissionAction = "submit_count"
	ActionRequestTransfer   PermissionAction = "request_transfer"
	ActionApproveTransfer   PermissionAction = "approve_transfer"
	ActionRequestAdjustment PermissionAction = "request_adjustment"
	ActionApproveAdjustment PermissionAction = "approve_adjustment"
	ActionReconcile         PermissionAction = "reconcile"
	ActionReReconcile       PermissionAction = "re_reconcile"
	ActionRecordTransaction PermissionAction = "record_transaction"
	ActionViewReports       PermissionAction = "view_reports"
)

// PermissionContext carries the request-dependent facts the gate needs.
// Zero value means "no context constraint applies".
type PermissionContext struct {
	Status  ReconciliationStatus
	SameDay bool
	IsOwner bool
}

// rolePermissions is the static half of the gate. Entries marked here can
// still be narrowed by context predicates in CanPerform.
var rolePermissions = map[UserRole]map[PermissionAction]bool{
	UserRoleSuperUser: {
		ActionSubmitCount:       true,
		ActionRequestTransfer:   true,
		ActionApproveTransfer:   true,
		ActionRequestAdjustment: true,
		ActionApproveAdjustment: true,
		ActionReconcile:         true,
		ActionReReconcile:       true,
		ActionRecordTransaction: true,
		ActionViewReports:       true,
	},
	UserRoleAccountsIncharge: {
		ActionApproveTransfer:   true,
		ActionApproveAdjustment: true,
		ActionReconcile:         true,
		ActionReReconcile:       true,
		ActionViewReports:       true,
	},
	UserRoleStoreManager: {
		ActionSubmitCount:       true,
		ActionRequestTransfer:   true,
		ActionRequestAdjustment: true,
		ActionReconcile:         true,
		ActionRecordTransaction: true,
		ActionViewReports:       true,
	},
	UserRoleCashier: {
		ActionSubmitCount:       true,
		ActionRequestTransfer:   true,
		ActionRequestAdjustment: true,
		ActionReconcile:         true,
		ActionRecordTransaction: true,
	},
}

// CanPerform is the authorization gate: a deterministic function of
// (role, action, context) with no hidden state. It is evaluated before every
// mutating operation in the transfer, adjustment and reconciliation flows.
func CanPerform(role UserRole, action PermissionAction, pctx PermissionContext) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	if !perms[action] {
		return false
	}

	switch action {
	case ActionReconcile:
		// Store staff may only reconcile same-day pending items they own.
		// Elevated roles reconcile anything still pending.
		if pctx.Status != "" && pctx.Status != ReconciliationStatusPending {
			return false
		}
		if role == UserRoleStoreManager || role == UserRoleCashier {
			return pctx.SameDay && pctx.IsOwner
		}
		return true
	case ActionReReconcile:
		// Acting on an already-reconciled record is reserved for
		// accounts-incharge (and super user), and only moves it to completed.
		return pctx.Status == ReconciliationStatusReconciled
	}
	return true
}

// CanEditTransaction reports whether a transaction's core fields are still
// editable for the given role. Editable only while pending, except that
// accounts-incharge may act on a reconciled record.
func CanEditTransaction(status ReconciliationStatus, role UserRole) bool {
	switch status {
	case ReconciliationStatusPending:
		return true
	case ReconciliationStatusReconciled:
		return role == UserRoleAccountsIncharge || role == UserRoleSuperUser
	default:
		return false
	}
}

// RequirePermission resolves the caller's role from context and returns an
// AuthorizationError when the gate denies the action. No mutation may run
// before this check.
func RequirePermission(ctx context.Context, action PermissionAction, pctx PermissionContext) error {
	roleStr, _ := utils.GetUserRoleFromContext(ctx)
	role := UserRole(roleStr)
	if !CanPerform(role, action, pctx) {
		return utils.NewAuthorizationError(string(role), string(action))
	}
	return nil
}

// CallerRole returns the caller's role from context.
func CallerRole(ctx context.Context) UserRole {
	roleStr, _ := utils.GetUserRoleFromContext(ctx)
	return UserRole(roleStr)
}
