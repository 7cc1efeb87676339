package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

// fakeSetupLedger tracks what a pool has already seen so the one-shot
// initialization rule can be driven without a database.
type fakeSetupLedger struct {
	adjustments int64
	counts      int64
}

func (f *fakeSetupLedger) requestInitialSetup() error {
	if err := CheckInitialSetupAllowed(f.adjustments, f.counts); err != nil {
		return err
	}
	f.adjustments++
	return nil
}

func TestCheckInitialSetupAllowed(t *testing.T) {
	cases := []struct {
		name        string
		adjustments int64
		counts      int64
		wantErr     bool
	}{
		{"fresh pool", 0, 0, false},
		{"prior adjustment blocks", 1, 0, true},
		{"prior count blocks", 0, 1, true},
		{"both block", 2, 3, true},
	}
	for _, tc := range cases {
		err := CheckInitialSetupAllowed(tc.adjustments, tc.counts)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestInitialSetupIsOneShot(t *testing.T) {
	ledger := &fakeSetupLedger{}

	if err := ledger.requestInitialSetup(); err != nil {
		t.Fatalf("first initial setup should succeed: %v", err)
	}
	if err := ledger.requestInitialSetup(); err == nil {
		t.Fatal("second initial setup for the same pool must fail")
	}
}

func TestInitialSetupBlockedAfterCount(t *testing.T) {
	ledger := &fakeSetupLedger{counts: 1}

	if err := ledger.requestInitialSetup(); err == nil {
		t.Fatal("initial setup must fail once the pool has been counted")
	}
}

func TestNormalizeFinalAmount(t *testing.T) {
	cases := []struct {
		name     string
		adjType  AdjustmentType
		amount   string
		expected string
		wantErr  bool
	}{
		{"loss stored negative", AdjustmentTypeLoss, "250", "-250", false},
		{"loss rejects negative input", AdjustmentTypeLoss, "-250", "", true},
		{"loss rejects zero", AdjustmentTypeLoss, "0", "", true},
		{"injection positive", AdjustmentTypeInjection, "5000", "5000", false},
		{"injection rejects negative", AdjustmentTypeInjection, "-5000", "", true},
		{"initial setup non-negative", AdjustmentTypeInitialSetup, "10000", "10000", false},
		{"initial setup allows zero", AdjustmentTypeInitialSetup, "0", "0", false},
		{"initial setup rejects negative", AdjustmentTypeInitialSetup, "-1", "", true},
		{"correction keeps positive sign", AdjustmentTypeCorrection, "120", "120", false},
		{"correction keeps negative sign", AdjustmentTypeCorrection, "-120", "-120", false},
		{"correction rejects zero", AdjustmentTypeCorrection, "0", "", true},
		{"unknown type", AdjustmentType("writeoff"), "10", "", true},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		if err != nil {
			t.Fatalf("%s: bad test amount: %v", tc.name, err)
		}
		got, err := NormalizeFinalAmount(tc.adjType, amount)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected an error, got %s", tc.name, got.String())
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}
