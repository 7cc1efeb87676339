// balance-rebuild replays a pool's ledger in insertion order and verifies the
// stored running balances. With --fix it rewrites mismatched balance_after
// values and the pool's current balance inside one transaction under the
// store's posting lock.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/balance-rebuild --business-id <uuid> [--pool-id N] [--fix]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	businessId := flag.String("business-id", "", "Required: business id (uuid)")
	poolId := flag.Int("pool-id", 0, "Optional: limit to one pool")
	fix := flag.Bool("fix", false, "Rewrite mismatched balances instead of only reporting them")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing pools and continue rebuilding others")
	flag.Parse()

	if strings.TrimSpace(*businessId) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	var pools []models.CashPool
	dbCtx := db.Where("business_id = ?", *businessId)
	if *poolId > 0 {
		dbCtx = dbCtx.Where("id = ?", *poolId)
	}
	if err := dbCtx.Order("id ASC").Find(&pools).Error; err != nil {
		fmt.Fprintf(os.Stderr, "discover pools: %v\n", err)
		os.Exit(1)
	}
	if len(pools) == 0 {
		fmt.Fprintln(os.Stderr, "no pools found")
		os.Exit(2)
	}

	clean := true
	for _, pool := range pools {
		fmt.Printf("Replaying pool=%d store=%d type=%s\n", pool.ID, pool.StoreId, string(pool.PoolType))
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := workflow.AcquireStorePostingLock(tx, *businessId, pool.StoreId); err != nil {
				return err
			}
			defer workflow.ReleaseStorePostingLock(tx, *businessId, pool.StoreId)

			var entries []models.CashPoolTransaction
			if err := tx.
				Where("business_id = ? AND pool_id = ?", *businessId, pool.ID).
				Order("id ASC").
				Find(&entries).Error; err != nil {
				return err
			}

			running := decimal.Zero
			mismatched := 0
			for _, entry := range entries {
				running = running.Add(entry.Amount)
				if entry.BalanceAfter.Equal(running) {
					continue
				}
				mismatched++
				fmt.Printf("  entry=%d %s: balance_after=%s expected=%s\n",
					entry.ID, string(entry.TransactionType),
					entry.BalanceAfter.String(), running.String())
				if *fix {
					if err := tx.Model(&models.CashPoolTransaction{}).
						Where("id = ?", entry.ID).
						Update("balance_after", running).Error; err != nil {
						return err
					}
				}
			}

			if !pool.CurrentBalance.Equal(running) {
				mismatched++
				fmt.Printf("  pool balance=%s replayed=%s\n", pool.CurrentBalance.String(), running.String())
				if *fix {
					if err := tx.Model(&models.CashPool{}).
						Where("id = ?", pool.ID).
						Update("current_balance", running).Error; err != nil {
						return err
					}
				}
			}

			if mismatched > 0 {
				clean = false
				if *fix {
					fmt.Printf("  fixed %d mismatch(es)\n", mismatched)
				}
			}
			return nil
		})
		if err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "rebuild failed (skipping): %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
			os.Exit(1)
		}
	}

	if clean {
		fmt.Println("all pool balances match the ledger")
	} else if !*fix {
		fmt.Println("mismatches found; rerun with --fix to rewrite them")
		os.Exit(3)
	} else {
		fmt.Println("balance rebuild complete")
	}
}
