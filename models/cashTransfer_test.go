package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDeriveTransferPriority(t *testing.T) {
	cases := []struct {
		amount   string
		expected TransferPriority
	}{
		{"500", TransferPriorityLow},
		{"4999", TransferPriorityLow},
		{"5000", TransferPriorityMedium},
		{"9999", TransferPriorityMedium},
		{"10000", TransferPriorityHigh},
		{"25000", TransferPriorityHigh},
	}
	for _, tc := range cases {
		if got := DeriveTransferPriority(amt(tc.amount)); got != tc.expected {
			t.Fatalf("amount=%s: expected %s, got %s", tc.amount, tc.expected, got)
		}
	}
}

// An approval moves exactly the approved amount: source loses it, destination
// gains it, and the approval variance records the difference against the
// request.
func TestTransferApprovalArithmetic(t *testing.T) {
	source := amt("10000")
	dest := amt("1500")
	requested := amt("3000")

	// full approval
	approved := requested
	if got := source.Sub(approved); got.String() != "7000" {
		t.Fatalf("expected source 7000 after full approval, got %s", got.String())
	}
	if got := dest.Add(approved); got.String() != "4500" {
		t.Fatalf("expected destination 4500 after full approval, got %s", got.String())
	}
	if v := approved.Sub(requested); !v.IsZero() {
		t.Fatalf("full approval variance should be zero, got %s", v.String())
	}

	// partial approval
	approved = amt("2000")
	if got := source.Sub(approved); got.String() != "8000" {
		t.Fatalf("expected source 8000 after partial approval, got %s", got.String())
	}
	if got := dest.Add(approved); got.String() != "3500" {
		t.Fatalf("expected destination 3500 after partial approval, got %s", got.String())
	}
	if v := approved.Sub(requested); v.String() != "-1000" {
		t.Fatalf("expected approval variance -1000, got %s", v.String())
	}

	// conservation: the two legs cancel
	if !approved.Neg().Add(approved).IsZero() {
		t.Fatal("transfer legs must sum to zero")
	}
}
