// seed-admin creates or updates the back-office admin user, creating a
// default firm first when the database has none.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "backofficeAdmin"
	adminName     = "Backoffice Admin"
	defaultFirm   = "Default Firm"
)

func main() {
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_PASSWORD is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var firm models.Firm
	err := db.WithContext(ctx).Model(&models.Firm{}).First(&firm).Error
	if err == gorm.ErrRecordNotFound {
		created, createErr := models.CreateFirm(ctx, &models.NewFirm{Name: defaultFirm})
		if createErr != nil {
			fmt.Fprintf(os.Stderr, "failed to create firm: %v\n", createErr)
			os.Exit(1)
		}
		firm = *created
		fmt.Println("created firm:", firm.ID)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup firm: %v\n", err)
		os.Exit(1)
	}

	firmId := firm.ID.String()
	ctx = utils.SetFirmIdInContext(ctx, firmId)

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			FirmId:   firmId,
			Username: adminUsername,
			Name:     adminName,
			Password: hashedStr,
			IsActive: utils.NewTrue(),
			Role:     models.UserRoleAdmin,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created admin user:", adminUsername)
		return
	}

	if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"Password": hashedStr,
		"IsActive": utils.NewTrue(),
		"Role":     models.UserRoleAdmin,
		"FirmId":   firmId,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("updated admin user:", adminUsername)

	_ = existing.RemoveInstanceRedis()
}
