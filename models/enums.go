package models

import (
	"errors"
	"strconv"
)

type UserRole string

const (
	UserRoleSuperUser        UserRole = "super_user"
	UserRoleAccountsIncharge UserRole = "accounts_incharge"
	UserRoleStoreManager     UserRole = "store_manager"
	UserRoleCashier          UserRole = "cashier"
)

func (r UserRole) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(r))), nil
}

func (r *UserRole) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("user role must be string")
	}
	userRoles := map[string]UserRole{
		"super_user":        UserRoleSuperUser,
		"accounts_incharge": UserRoleAccountsIncharge,
		"store_manager":     UserRoleStoreManager,
		"cashier":           UserRoleCashier,
	}
	var ok bool
	*r, ok = userRoles[str]
	if !ok {
		return errors.New("invalid user role")
	}
	return nil
}

type CashPoolType string

const (
	CashPoolSalesCash CashPoolType = "sales_cash"
	CashPoolPettyCash CashPoolType = "petty_cash"
)

func (p CashPoolType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(p))), nil
}

func (p *CashPoolType) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("cash pool type must be string")
	}
	poolTypes := map[string]CashPoolType{
		"sales_cash": CashPoolSalesCash,
		"petty_cash": CashPoolPettyCash,
	}
	var ok bool
	*p, ok = poolTypes[str]
	if !ok {
		return errors.New("invalid cash pool type")
	}
	return nil
}

type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusApproved TransferStatus = "approved"
	TransferStatusRejected TransferStatus = "rejected"
)

type TransferPriority string

const (
	TransferPriorityLow    TransferPriority = "low"
	TransferPriorityMedium TransferPriority = "medium"
	TransferPriorityHigh   TransferPriority = "high"
)

type AdjustmentType string

const (
	AdjustmentTypeInitialSetup AdjustmentType = "initial_setup"
	AdjustmentTypeCorrection   AdjustmentType = "correction"
	AdjustmentTypeInjection    AdjustmentType = "injection"
	AdjustmentTypeLoss         AdjustmentType = "loss"
)

func (t AdjustmentType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *AdjustmentType) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("adjustment type must be string")
	}
	adjustmentTypes := map[string]AdjustmentType{
		"initial_setup": AdjustmentTypeInitialSetup,
		"correction":    AdjustmentTypeCorrection,
		"injection":     AdjustmentTypeInjection,
		"loss":          AdjustmentTypeLoss,
	}
	var ok bool
	*t, ok = adjustmentTypes[str]
	if !ok {
		return errors.New("invalid adjustment type")
	}
	return nil
}

type AdjustmentStatus string

const (
	AdjustmentStatusPending   AdjustmentStatus = "pending"
	AdjustmentStatusApproved  AdjustmentStatus = "approved"
	AdjustmentStatusRejected  AdjustmentStatus = "rejected"
	AdjustmentStatusCompleted AdjustmentStatus = "completed"
)

type ReconciliationStatus string

const (
	ReconciliationStatusPending    ReconciliationStatus = "pending"
	ReconciliationStatusReconciled ReconciliationStatus = "reconciled"
	ReconciliationStatusCompleted  ReconciliationStatus = "completed"
)

type ReconciliationSource string

const (
	ReconciliationSourceBank    ReconciliationSource = "bank"
	ReconciliationSourceErp     ReconciliationSource = "erp"
	ReconciliationSourceCash    ReconciliationSource = "cash"
	ReconciliationSourceVoucher ReconciliationSource = "voucher"
)

func (s ReconciliationSource) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *ReconciliationSource) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("reconciliation source must be string")
	}
	sources := map[string]ReconciliationSource{
		"bank":    ReconciliationSourceBank,
		"erp":     ReconciliationSourceErp,
		"cash":    ReconciliationSourceCash,
		"voucher": ReconciliationSourceVoucher,
	}
	var ok bool
	*s, ok = sources[str]
	if !ok {
		return errors.New("invalid reconciliation source")
	}
	return nil
}

// TransactionKind identifies the six reconcilable transaction kinds.
type TransactionKind string

const (
	TransactionKindSale        TransactionKind = "sale"
	TransactionKindExpense     TransactionKind = "expense"
	TransactionKindReturn      TransactionKind = "return"
	TransactionKindHandBill    TransactionKind = "hand_bill"
	TransactionKindGiftVoucher TransactionKind = "gift_voucher"
	TransactionKindSalesOrder  TransactionKind = "sales_order"
)

func (k TransactionKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(k))), nil
}

func (k *TransactionKind) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("transaction kind must be string")
	}
	kinds := map[string]TransactionKind{
		"sale":         TransactionKindSale,
		"expense":      TransactionKindExpense,
		"return":       TransactionKindReturn,
		"hand_bill":    TransactionKindHandBill,
		"gift_voucher": TransactionKindGiftVoucher,
		"sales_order":  TransactionKindSalesOrder,
	}
	var ok bool
	*k, ok = kinds[str]
	if !ok {
		return errors.New("invalid transaction kind")
	}
	return nil
}

// AllTransactionKinds in fan-out order.
func AllTransactionKinds() []TransactionKind {
	return []TransactionKind{
		TransactionKindSale,
		TransactionKindExpense,
		TransactionKindReturn,
		TransactionKindHandBill,
		TransactionKindGiftVoucher,
		TransactionKindSalesOrder,
	}
}

type TenderType string

const (
	TenderTypeCash   TenderType = "cash"
	TenderTypeCard   TenderType = "card"
	TenderTypeUpi    TenderType = "upi"
	TenderTypeCredit TenderType = "credit"
)

func (t TenderType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *TenderType) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("tender type must be string")
	}
	tenderTypes := map[string]TenderType{
		"cash":   TenderTypeCash,
		"card":   TenderTypeCard,
		"upi":    TenderTypeUpi,
		"credit": TenderTypeCredit,
	}
	var ok bool
	*t, ok = tenderTypes[str]
	if !ok {
		return errors.New("invalid tender type")
	}
	return nil
}

// PoolTransactionType classifies entries in the cash pool event ledger.
// Counts never appear here: a count records what was found, it does not move
// the balance.
type PoolTransactionType string

const (
	PoolTxnOpeningBalance PoolTransactionType = "opening_balance"
	PoolTxnTransferIn     PoolTransactionType = "transfer_in"
	PoolTxnTransferOut    PoolTransactionType = "transfer_out"
	PoolTxnAdjustment     PoolTransactionType = "adjustment"
	PoolTxnDeposit        PoolTransactionType = "deposit"
)

type VarianceLevel string

const (
	VarianceLevelNone     VarianceLevel = "none"
	VarianceLevelWarning  VarianceLevel = "warning"
	VarianceLevelCritical VarianceLevel = "critical"
)
