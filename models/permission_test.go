package models

import "testing"

func TestCanPerform_RoleMatrix(t *testing.T) {
	cases := []struct {
		name    string
		role    UserRole
		action  PermissionAction
		pctx    PermissionContext
		allowed bool
	}{
		{"cashier submits count", UserRoleCashier, ActionSubmitCount, PermissionContext{}, true},
		{"cashier cannot approve transfer", UserRoleCashier, ActionApproveTransfer, PermissionContext{}, false},
		{"cashier cannot view reports", UserRoleCashier, ActionViewReports, PermissionContext{}, false},
		{"store manager requests transfer", UserRoleStoreManager, ActionRequestTransfer, PermissionContext{}, true},
		{"store manager cannot approve transfer", UserRoleStoreManager, ActionApproveTransfer, PermissionContext{}, false},
		{"accounts approves transfer", UserRoleAccountsIncharge, ActionApproveTransfer, PermissionContext{}, true},
		{"accounts cannot submit count", UserRoleAccountsIncharge, ActionSubmitCount, PermissionContext{}, false},
		{"accounts cannot record transactions", UserRoleAccountsIncharge, ActionRecordTransaction, PermissionContext{}, false},
		{"super user approves adjustment", UserRoleSuperUser, ActionApproveAdjustment, PermissionContext{}, true},
		{"unknown role denied", UserRole("auditor"), ActionViewReports, PermissionContext{}, false},
	}
	for _, tc := range cases {
		if got := CanPerform(tc.role, tc.action, tc.pctx); got != tc.allowed {
			t.Fatalf("%s: expected allowed=%v, got %v", tc.name, tc.allowed, got)
		}
	}
}

func TestCanPerform_ReconcileContext(t *testing.T) {
	pendingOwnToday := PermissionContext{Status: ReconciliationStatusPending, SameDay: true, IsOwner: true}
	pendingOwnYesterday := PermissionContext{Status: ReconciliationStatusPending, SameDay: false, IsOwner: true}
	pendingOthersToday := PermissionContext{Status: ReconciliationStatusPending, SameDay: true, IsOwner: false}
	alreadyReconciled := PermissionContext{Status: ReconciliationStatusReconciled}

	if !CanPerform(UserRoleCashier, ActionReconcile, pendingOwnToday) {
		t.Fatal("cashier should reconcile own same-day pending record")
	}
	if CanPerform(UserRoleCashier, ActionReconcile, pendingOwnYesterday) {
		t.Fatal("cashier should not reconcile a prior day's record")
	}
	if CanPerform(UserRoleStoreManager, ActionReconcile, pendingOthersToday) {
		t.Fatal("store manager should not reconcile someone else's record")
	}
	if !CanPerform(UserRoleAccountsIncharge, ActionReconcile, pendingOwnYesterday) {
		t.Fatal("accounts should reconcile any pending record")
	}
	if CanPerform(UserRoleAccountsIncharge, ActionReconcile, alreadyReconciled) {
		t.Fatal("reconcile must not act on an already reconciled record")
	}

	if CanPerform(UserRoleStoreManager, ActionReReconcile, alreadyReconciled) {
		t.Fatal("store manager must not re-reconcile")
	}
	if !CanPerform(UserRoleAccountsIncharge, ActionReReconcile, alreadyReconciled) {
		t.Fatal("accounts should re-reconcile a reconciled record")
	}
	if !CanPerform(UserRoleSuperUser, ActionReReconcile, alreadyReconciled) {
		t.Fatal("super user should re-reconcile a reconciled record")
	}
	if CanPerform(UserRoleSuperUser, ActionReReconcile, pendingOwnToday) {
		t.Fatal("re-reconcile only applies to reconciled records")
	}
}

func TestCanEditTransaction(t *testing.T) {
	cases := []struct {
		status   ReconciliationStatus
		role     UserRole
		editable bool
	}{
		{ReconciliationStatusPending, UserRoleCashier, true},
		{ReconciliationStatusPending, UserRoleAccountsIncharge, true},
		{ReconciliationStatusReconciled, UserRoleStoreManager, false},
		{ReconciliationStatusReconciled, UserRoleCashier, false},
		{ReconciliationStatusReconciled, UserRoleAccountsIncharge, true},
		{ReconciliationStatusReconciled, UserRoleSuperUser, true},
		{ReconciliationStatusCompleted, UserRoleSuperUser, false},
		{ReconciliationStatusCompleted, UserRoleAccountsIncharge, false},
	}
	for _, tc := range cases {
		if got := CanEditTransaction(tc.status, tc.role); got != tc.editable {
			t.Fatalf("status=%s role=%s: expected editable=%v, got %v",
				tc.status, tc.role, tc.editable, got)
		}
	}
}
