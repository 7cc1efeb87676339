package workflow

import (
	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"github.com/shopspring/decimal"
)

// DenominationLine is one (face value, quantity) entry of a physical count.
// Quantities are assumed already validated as non-negative integers.
type DenominationLine struct {
	Denomination decimal.Decimal
	Quantity     int
}

// ComputeDenominationTotal sums value x count over the lines. An empty or
// all-zero count is valid and yields zero.
func ComputeDenominationTotal(lines []DenominationLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Denomination.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// ComputeVariance returns counted minus expected, or nil when no expected
// amount is available. Positive means excess cash, negative a shortage.
func ComputeVariance(total decimal.Decimal, expected *decimal.Decimal) *decimal.Decimal {
	if expected == nil {
		return nil
	}
	variance := total.Sub(*expected)
	return &variance
}

// ClassifyVariance grades a variance against policy thresholds. The critical
// threshold is pool-independent; the warning threshold depends on the pool.
func ClassifyVariance(variance decimal.Decimal, poolType models.CashPoolType) models.VarianceLevel {
	abs := variance.Abs()
	if abs.GreaterThanOrEqual(config.CriticalVarianceThreshold()) {
		return models.VarianceLevelCritical
	}
	warning := config.SalesVarianceWarning()
	if poolType == models.CashPoolPettyCash {
		warning = config.PettyVarianceWarning()
	}
	if abs.GreaterThan(warning) {
		return models.VarianceLevelWarning
	}
	return models.VarianceLevelNone
}
