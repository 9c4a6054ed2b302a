package store

import (
	"errors"
	"fmt"

	"laundry-api/apperr"
	"laundry-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotFound maps gorm.ErrRecordNotFound to a typed NotFound error.
func NotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// LockOrder reads the order row with FOR UPDATE. SQLite ignores the clause
// and serialises writers at the database level instead.
func LockOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
		return nil, NotFound(err, "order")
	}
	return &o, nil
}

// SaveOrder writes every column of o guarded by its version. A lost race
// returns apperr.ErrConcurrentModification and leaves o.Version unchanged.
func SaveOrder(tx *gorm.DB, o *models.Order) error {
	prev := o.Version
	o.Version++
	res := tx.Model(o).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(o)
	if res.Error != nil {
		o.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		o.Version = prev
		return apperr.ErrConcurrentModification
	}
	return nil
}

// AppendHistory writes one immutable audit row.
func AppendHistory(tx *gorm.DB, orderID uint, from, to models.OrderStatus, actorID uint, note string) error {
	return tx.Create(&models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actorID,
		Note:       note,
	}).Error
}

func LoadItems(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func LoadHistory(tx *gorm.DB, orderID uint) ([]models.OrderStatusHistory, error) {
	var h []models.OrderStatusHistory
	if err := tx.Where("order_id = ?", orderID).Order("created_at, id").Find(&h).Error; err != nil {
		return nil, err
	}
	return h, nil
}

func LoadTenant(tx *gorm.DB, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := tx.First(&t, id).Error; err != nil {
		return nil, NotFound(err, "tenant")
	}
	return &t, nil
}

func LoadLocation(tx *gorm.DB, id uint) (*models.Location, error) {
	var l models.Location
	if err := tx.First(&l, id).Error; err != nil {
		return nil, NotFound(err, "location")
	}
	return &l, nil
}

func LoadUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, id).Error; err != nil {
		return nil, NotFound(err, "user")
	}
	return &u, nil
}

// LoadPromo returns nil when id is nil.
func LoadPromo(tx *gorm.DB, id *uint) (*models.PromoCode, error) {
	if id == nil {
		return nil, nil
	}
	var p models.PromoCode
	if err := tx.First(&p, *id).Error; err != nil {
		return nil, NotFound(err, "promo code")
	}
	return &p, nil
}

// CreateOrder inserts o with the tenant's next sequential order number.
func CreateOrder(tx *gorm.DB, o *models.Order) error {
	res := tx.Model(&models.Tenant{}).
		Where("id = ?", o.TenantID).
		Update("next_order_number", gorm.Expr("next_order_number + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tenant not found")
	}
	var next int
	if err := tx.Model(&models.Tenant{}).Where("id = ?", o.TenantID).
		Pluck("next_order_number", &next).Error; err != nil {
		return err
	}
	o.OrderNumber = next - 1
	if err := tx.Create(o).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}
