// seed-admin creates or updates the first super user for a business so the
// console has a login before any other user exists.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-admin --business-id <uuid> [--username dailysalesAdmin] [--password ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultUsername = "dailysalesAdmin"
	defaultName     = "Daily Sales Admin"
)

func main() {
	businessId := flag.String("business-id", "", "Required: business id (uuid)")
	username := flag.String("username", defaultUsername, "Optional: admin username")
	password := flag.String("password", "", "Required: admin password (min 8 chars)")
	flag.Parse()

	if strings.TrimSpace(*businessId) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}
	if len(strings.TrimSpace(*password)) < 8 {
		fmt.Fprintln(os.Stderr, "--password is required (min 8 chars)")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := context.Background()
	ctx = utils.SetBusinessIdInContext(ctx, *businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, *username)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).
		Where("business_id = ? AND username = ?", *businessId, *username).
		First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			BusinessId: *businessId,
			Username:   *username,
			Name:       defaultName,
			Password:   string(hashed),
			Role:       models.UserRoleSuperUser,
			IsActive:   utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create super user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created super user: username=%q\n", *username)
		return
	}

	// Update existing user: ensure password and super user role
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("business_id = ? AND username = ?", *businessId, *username).
		Updates(map[string]any{
			"password":  string(hashed),
			"name":      defaultName,
			"is_active": utils.NewTrue(),
			"role":      models.UserRoleSuperUser,
		}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update super user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated super user: username=%q\n", *username)
}
