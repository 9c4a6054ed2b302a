package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Name            string          `json:"name" gorm:"not null"`
	TaxRate         decimal.Decimal `json:"tax_rate" gorm:"type:decimal(6,4);not null;default:0"`
	PayoutAccount   *string         `json:"payout_account"` // gateway sub-account receiving tips
	NextOrderNumber int             `json:"-" gorm:"not null;default:1"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Location is a physical store. DeliveryFee is charged on every order placed
// there. EquipmentVersion is bumped by every slot assignment so concurrent
// assigners at one location serialise on this row.
type Location struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	TenantID         uint            `json:"tenant_id" gorm:"index;not null"`
	Name             string          `json:"name" gorm:"not null"`
	Address          string          `json:"address"`
	TotalWashers     int             `json:"total_washers" gorm:"not null;default:0"`
	TotalDryers      int             `json:"total_dryers" gorm:"not null;default:0"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(12,2);not null;default:0"`
	EquipmentVersion int64           `json:"-" gorm:"not null;default:0"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type PricingUnit string

const (
	UnitPerItem  PricingUnit = "per_item"
	UnitPerPound PricingUnit = "per_lb"
)

// Service is a priced catalog entry (wash & fold per lb, shirt pressing per item...).
type Service struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	TenantID    uint            `json:"tenant_id" gorm:"index;not null"`
	Name        string          `json:"name" gorm:"not null"`
	Unit        PricingUnit     `json:"unit" gorm:"not null;default:'per_item'"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	IsAvailable bool            `json:"is_available" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type PromoType string

const (
	PromoPercent PromoType = "percent"
	PromoFlat    PromoType = "flat"
)

type PromoCode struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	TenantID  uint            `json:"tenant_id" gorm:"uniqueIndex:idx_promo_tenant_code;not null"`
	Code      string          `json:"code" gorm:"uniqueIndex:idx_promo_tenant_code;not null"`
	Type      PromoType       `json:"type" gorm:"not null"`
	Value     decimal.Decimal `json:"value" gorm:"type:decimal(12,2);not null"`
	Active    bool            `json:"active" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
}
