package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Cash-count variance policy. Thresholds are policy, not domain constants:
// they are resolved once from env (with the documented defaults) so a
// deployment can tighten or relax them without a code change.
//
// Env overrides:
// - CRITICAL_VARIANCE_THRESHOLD   (default 500)  |variance| at or above this blocks a count
// - SALES_VARIANCE_WARNING        (default 100)  sales-cash warning threshold
// - PETTY_VARIANCE_WARNING        (default 50)   petty-cash warning threshold
// - PETTY_LOW_BALANCE_THRESHOLD   (default 1000) petty-cash low-balance notice

func CriticalVarianceThreshold() decimal.Decimal {
	return decimalFromEnv("CRITICAL_VARIANCE_THRESHOLD", "500")
}

func SalesVarianceWarning() decimal.Decimal {
	return decimalFromEnv("SALES_VARIANCE_WARNING", "100")
}

func PettyVarianceWarning() decimal.Decimal {
	return decimalFromEnv("PETTY_VARIANCE_WARNING", "50")
}

func PettyLowBalanceThreshold() decimal.Decimal {
	return decimalFromEnv("PETTY_LOW_BALANCE_THRESHOLD", "1000")
}

// Transfer priority policy: a request at or above the high/medium amount is
// escalated immediately; age-based escalation is applied when listing.
//
// Env overrides:
// - TRANSFER_HIGH_PRIORITY_AMOUNT   (default 10000)
// - TRANSFER_MEDIUM_PRIORITY_AMOUNT (default 5000)

func TransferHighPriorityAmount() decimal.Decimal {
	return decimalFromEnv("TRANSFER_HIGH_PRIORITY_AMOUNT", "10000")
}

func TransferMediumPriorityAmount() decimal.Decimal {
	return decimalFromEnv("TRANSFER_MEDIUM_PRIORITY_AMOUNT", "5000")
}

func decimalFromEnv(key string, def string) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}
