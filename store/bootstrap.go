package store

import (
	"fmt"
	"strings"

	"laundry-api/config"
	"laundry-api/logger"
	"laundry-api/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Bootstrap creates a tenant with one location and an owner when the
// database holds no tenants yet. It is a no-op without an owner email.
func Bootstrap(db *gorm.DB, cfg config.BootstrapConfig) error {
	if cfg.OwnerEmail == "" {
		return nil
	}
	if len(cfg.OwnerPassword) < 6 {
		return fmt.Errorf("bootstrap.owner_password must be at least 6 characters")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var tenants int64
		if err := tx.Model(&models.Tenant{}).Count(&tenants).Error; err != nil {
			return err
		}
		if tenants > 0 {
			return nil
		}

		tenant := models.Tenant{
			Name:    cfg.TenantName,
			TaxRate: decimal.NewFromFloat(cfg.TaxRate).Round(4),
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		loc := models.Location{
			TenantID:     tenant.ID,
			Name:         cfg.LocationName,
			TotalWashers: cfg.Washers,
			TotalDryers:  cfg.Dryers,
			DeliveryFee:  decimal.NewFromFloat(cfg.DeliveryFee).Round(2),
		}
		if err := tx.Create(&loc).Error; err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.OwnerPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		owner := models.User{
			TenantID:     tenant.ID,
			Name:         cfg.OwnerName,
			Email:        strings.ToLower(cfg.OwnerEmail),
			PasswordHash: string(hash),
			Role:         models.RoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		logger.Info("bootstrapped first tenant",
			zap.Uint("tenant_id", tenant.ID),
			zap.Uint("location_id", loc.ID),
			zap.String("owner", owner.Email),
		)
		return nil
	})
}
