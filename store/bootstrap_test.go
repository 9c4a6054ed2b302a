package store_test

import (
	"testing"

	"laundry-api/config"
	"laundry-api/models"
	"laundry-api/store"
	"laundry-api/store/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBootstrapSeedsEmptyDatabaseOnce(t *testing.T) {
	db := testdb.Open(t)
	cfg := config.BootstrapConfig{
		TenantName:    "Fresh Folds",
		TaxRate:       0.0725,
		LocationName:  "Downtown",
		Washers:       6,
		Dryers:        4,
		DeliveryFee:   4.5,
		OwnerName:     "Pat",
		OwnerEmail:    "Pat@Example.com",
		OwnerPassword: "hunter22",
	}
	require.NoError(t, store.Bootstrap(db, cfg))
	require.NoError(t, store.Bootstrap(db, cfg))

	var tenants []models.Tenant
	require.NoError(t, db.Find(&tenants).Error)
	require.Len(t, tenants, 1)
	assert.Equal(t, "0.0725", tenants[0].TaxRate.String())

	var loc models.Location
	require.NoError(t, db.Where("tenant_id = ?", tenants[0].ID).First(&loc).Error)
	assert.Equal(t, 6, loc.TotalWashers)
	assert.Equal(t, 4, loc.TotalDryers)
	assert.Equal(t, "4.50", loc.DeliveryFee.StringFixed(2))

	var owner models.User
	require.NoError(t, db.Where("email = ?", "pat@example.com").First(&owner).Error)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte("hunter22")))
}

func TestBootstrapDisabledWithoutOwner(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, store.Bootstrap(db, config.BootstrapConfig{TenantName: "x"}))

	var n int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestBootstrapRejectsShortPassword(t *testing.T) {
	db := testdb.Open(t)
	err := store.Bootstrap(db, config.BootstrapConfig{OwnerEmail: "a@b.test", OwnerPassword: "123"})
	assert.Error(t, err)
}
