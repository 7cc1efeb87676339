package models

import "testing"

// The registry is populated in init(); these pin that every kind is wired
// with its table, date column and terminal status.
func TestKindRegistryComplete(t *testing.T) {
	kinds := []TransactionKind{
		TransactionKindSale, TransactionKindExpense, TransactionKindReturn,
		TransactionKindHandBill, TransactionKindGiftVoucher, TransactionKindSalesOrder,
	}
	if len(kindRegistry) != len(kinds) {
		t.Fatalf("expected %d registered kinds, got %d", len(kinds), len(kindRegistry))
	}
	for _, kind := range kinds {
		spec, ok := kindRegistry[kind]
		if !ok {
			t.Fatalf("kind %s is not registered", kind)
		}
		if spec.table == "" || spec.dateColumn == "" {
			t.Fatalf("kind %s is missing table or date column", kind)
		}
		if spec.list == nil || spec.fetch == nil {
			t.Fatalf("kind %s is missing a list or fetch function", kind)
		}
	}
}

func TestKindSpecTerminal(t *testing.T) {
	cases := []struct {
		kind     TransactionKind
		expected ReconciliationStatus
	}{
		{TransactionKindSale, ReconciliationStatusReconciled},
		{TransactionKindExpense, ReconciliationStatusReconciled},
		{TransactionKindReturn, ReconciliationStatusReconciled},
		{TransactionKindHandBill, ReconciliationStatusReconciled},
		{TransactionKindGiftVoucher, ReconciliationStatusCompleted},
		{TransactionKindSalesOrder, ReconciliationStatusCompleted},
	}
	for _, tc := range cases {
		terminal, err := KindSpecTerminal(tc.kind)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.kind, err)
		}
		if terminal != tc.expected {
			t.Fatalf("%s: expected terminal %s, got %s", tc.kind, tc.expected, terminal)
		}
	}

	if _, err := KindSpecTerminal(TransactionKind("refund")); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestGiftVoucherKindIsStoreAgnostic(t *testing.T) {
	if kindRegistry[TransactionKindGiftVoucher].storeScoped {
		t.Fatal("gift vouchers must not be store scoped")
	}
	for _, kind := range []TransactionKind{
		TransactionKindSale, TransactionKindExpense, TransactionKindReturn,
		TransactionKindHandBill, TransactionKindSalesOrder,
	} {
		if !kindRegistry[kind].storeScoped {
			t.Fatalf("kind %s must be store scoped", kind)
		}
	}
}
