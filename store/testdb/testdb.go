// Package testdb opens throwaway SQLite databases seeded with one tenant.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"laundry-api/logger"
	"laundry-api/models"
	"laundry-api/store"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const Password = "secret123"

// Open returns a migrated database living in the test's temp dir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.NewGormAdapter(gormlogger.Silent, 0),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Fixture is one tenant with a location of 5 washers and 3 dryers, a tax rate
// of 8%, one user per role and two catalog services.
type Fixture struct {
	Tenant    models.Tenant
	Location  models.Location
	Owner     models.User
	Attendant models.User
	Driver    models.User
	Customer  models.User
	WashFold  models.Service // per lb
	Shirt     models.Service // per item
}

func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	payout := "acct_tenant_1"
	f := &Fixture{
		Tenant: models.Tenant{Name: "Suds & Co", TaxRate: decimal.RequireFromString("0.08"), PayoutAccount: &payout},
	}
	must(t, db.Create(&f.Tenant).Error)

	f.Location = models.Location{TenantID: f.Tenant.ID, Name: "Main St", TotalWashers: 5, TotalDryers: 3}
	must(t, db.Create(&f.Location).Error)

	mkUser := func(name, email string, role models.UserRole) models.User {
		u := models.User{
			TenantID:     f.Tenant.ID,
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
		}
		if role == models.RoleCustomer {
			u.PaymentRef = "cus_" + name
		}
		must(t, db.Create(&u).Error)
		return u
	}
	f.Owner = mkUser("owner", "owner@suds.test", models.RoleOwner)
	f.Attendant = mkUser("attendant", "attendant@suds.test", models.RoleAttendant)
	f.Driver = mkUser("driver", "driver@suds.test", models.RoleDriver)
	f.Customer = mkUser("customer", "customer@suds.test", models.RoleCustomer)

	f.WashFold = models.Service{TenantID: f.Tenant.ID, Name: "Wash & Fold", Unit: models.UnitPerPound, Price: decimal.RequireFromString("1.75"), IsAvailable: true}
	must(t, db.Create(&f.WashFold).Error)
	f.Shirt = models.Service{TenantID: f.Tenant.ID, Name: "Shirt Press", Unit: models.UnitPerItem, Price: decimal.RequireFromString("4.00"), IsAvailable: true}
	must(t, db.Create(&f.Shirt).Error)
	return f
}

// Order inserts an order for the fixture customer in the given status.
// mutate may adjust fields before insert.
func (f *Fixture) Order(t testing.TB, db *gorm.DB, status models.OrderStatus, mutate func(o *models.Order)) *models.Order {
	t.Helper()
	cust := f.Customer.ID
	o := &models.Order{
		TenantID:   f.Tenant.ID,
		LocationID: f.Location.ID,
		CustomerID: &cust,
		Status:     status,
	}
	if mutate != nil {
		mutate(o)
	}
	err := db.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
		return store.CreateOrder(tx, o)
	})
	must(t, err)
	return o
}

// Reload reads the order row back.
func Reload(t testing.TB, db *gorm.DB, id uint) *models.Order {
	t.Helper()
	var o models.Order
	must(t, db.First(&o, id).Error)
	return &o
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}
