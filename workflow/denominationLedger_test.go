package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeDenominationTotal(t *testing.T) {
	cases := []struct {
		name     string
		lines    []DenominationLine
		expected string
	}{
		{
			name: "mixed denominations",
			lines: []DenominationLine{
				{Denomination: d("500"), Quantity: 20},
				{Denomination: d("100"), Quantity: 50},
				{Denomination: d("10"), Quantity: 5},
			},
			expected: "15050",
		},
		{
			name: "all zero quantities",
			lines: []DenominationLine{
				{Denomination: d("500"), Quantity: 0},
				{Denomination: d("100"), Quantity: 0},
			},
			expected: "0",
		},
		{
			name:     "empty count",
			lines:    nil,
			expected: "0",
		},
	}
	for _, tc := range cases {
		total := ComputeDenominationTotal(tc.lines)
		if total.String() != tc.expected {
			t.Fatalf("%s: expected total %s, got %s", tc.name, tc.expected, total.String())
		}
	}
}

func TestComputeVariance(t *testing.T) {
	expected := d("15000")
	variance := ComputeVariance(d("15050"), &expected)
	if variance == nil {
		t.Fatal("expected a variance when an expected amount is available")
	}
	if variance.String() != "50" {
		t.Fatalf("expected variance 50, got %s", variance.String())
	}

	shortage := ComputeVariance(d("14400"), &expected)
	if shortage.String() != "-600" {
		t.Fatalf("expected variance -600, got %s", shortage.String())
	}

	if v := ComputeVariance(d("15050"), nil); v != nil {
		t.Fatalf("expected nil variance without an expected amount, got %s", v.String())
	}
}

func TestComposeExpectedBalance(t *testing.T) {
	cases := []struct {
		name         string
		balance      string
		poolType     models.CashPoolType
		cashSales    string
		cashReturns  string
		cashExpenses string
		expected     string
	}{
		{"sales drawer with full day activity", "5000", models.CashPoolSalesCash, "12000", "800", "1500", "14700"},
		{"sales drawer quiet day", "5000", models.CashPoolSalesCash, "0", "0", "0", "5000"},
		{"petty cash ignores sales and returns", "2000", models.CashPoolPettyCash, "12000", "800", "350", "1650"},
		{"expenses can take the drawer to zero", "1000", models.CashPoolSalesCash, "0", "0", "1000", "0"},
	}
	for _, tc := range cases {
		got := ComposeExpectedBalance(d(tc.balance), tc.poolType,
			d(tc.cashSales), d(tc.cashReturns), d(tc.cashExpenses))
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestClassifyVariance(t *testing.T) {
	cases := []struct {
		name     string
		variance string
		poolType models.CashPoolType
		expected models.VarianceLevel
	}{
		{"small excess on sales cash", "50", models.CashPoolSalesCash, models.VarianceLevelNone},
		{"at sales warning boundary", "100", models.CashPoolSalesCash, models.VarianceLevelNone},
		{"above sales warning", "101", models.CashPoolSalesCash, models.VarianceLevelWarning},
		{"small excess on petty cash", "50", models.CashPoolPettyCash, models.VarianceLevelNone},
		{"above petty warning", "51", models.CashPoolPettyCash, models.VarianceLevelWarning},
		{"shortage magnitude counts", "-600", models.CashPoolSalesCash, models.VarianceLevelCritical},
		{"at critical boundary", "500", models.CashPoolPettyCash, models.VarianceLevelCritical},
		{"zero variance", "0", models.CashPoolSalesCash, models.VarianceLevelNone},
	}
	for _, tc := range cases {
		level := ClassifyVariance(d(tc.variance), tc.poolType)
		if level != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, level)
		}
	}
}
