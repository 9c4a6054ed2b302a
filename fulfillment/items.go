package fulfillment

import (
	"context"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/models"
	"laundry-api/pricing"
	"laundry-api/statemachine"
	"laundry-api/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemInput adds one catalog service. Quantity of a per-lb service defaults
// to the order's recorded weight.
type ItemInput struct {
	ServiceID uint            `json:"service_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (s *Service) AddItem(ctx context.Context, orderID uint, in ItemInput) (*models.Order, error) {
	return s.edit(ctx, orderID, func(tx *store.Tx, o *models.Order) error {
		svc, err := loadService(tx.DB, o.TenantID, in.ServiceID)
		if err != nil {
			return err
		}
		qty := in.Quantity
		if svc.Unit == models.UnitPerPound && qty.IsZero() {
			qty = o.TotalWeightLbs
		}
		if !qty.IsPositive() {
			return apperr.Validation("quantity must be positive")
		}
		return tx.Create(&models.OrderItem{
			OrderID:   o.ID,
			ServiceID: svc.ID,
			Name:      svc.Name,
			Unit:      svc.Unit,
			UnitPrice: svc.Price,
			Quantity:  qty,
		}).Error
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	return s.edit(ctx, orderID, func(tx *store.Tx, o *models.Order) error {
		res := tx.Where("id = ? AND order_id = ?", itemID, o.ID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("order item not found")
		}
		return nil
	})
}

// UpdateWeight records the weighed load and reprices per-lb lines.
func (s *Service) UpdateWeight(ctx context.Context, orderID uint, weight decimal.Decimal) (*models.Order, error) {
	return s.edit(ctx, orderID, func(tx *store.Tx, o *models.Order) error {
		return setWeight(tx, o, weight)
	})
}

// edit runs mutate on an editable order, then recomputes and saves it.
func (s *Service) edit(ctx context.Context, orderID uint, mutate func(tx *store.Tx, o *models.Order) error) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx, models.StaffRoles...)
	if err != nil {
		return nil, err
	}
	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := lockEditable(tx, actor, orderID)
		if err != nil {
			return err
		}
		if err := mutate(tx, o); err != nil {
			return err
		}
		if err := recompute(tx.DB, o); err != nil {
			return err
		}
		if err := store.SaveOrder(tx.DB, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockEditable(tx *store.Tx, actor authz.Actor, orderID uint) (*models.Order, error) {
	o, err := lockVisible(tx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !statemachine.IsEditable(o.Status) {
		return nil, apperr.OrderNotEditable("order in status " + string(o.Status) + " cannot be edited").
			WithDetail("current_status", o.Status)
	}
	return o, nil
}

// setWeight updates the weight and per-lb line quantities, then reprices.
func setWeight(tx *store.Tx, o *models.Order, weight decimal.Decimal) error {
	if weight.IsNegative() {
		return apperr.Validation("weight must not be negative")
	}
	o.TotalWeightLbs = weight.Round(2)
	if weight.IsPositive() {
		err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND unit = ?", o.ID, models.UnitPerPound).
			Update("quantity", o.TotalWeightLbs).Error
		if err != nil {
			return err
		}
	}
	return recompute(tx.DB, o)
}

// recompute reloads the items and writes fresh totals onto o.
func recompute(tx *gorm.DB, o *models.Order) error {
	items, err := store.LoadItems(tx, o.ID)
	if err != nil {
		return err
	}
	tenant, err := store.LoadTenant(tx, o.TenantID)
	if err != nil {
		return err
	}
	promo, err := store.LoadPromo(tx, o.PromoCodeID)
	if err != nil {
		return err
	}
	totals, err := pricing.Recompute(o, items, promo, tenant.TaxRate)
	if err != nil {
		return err
	}
	pricing.Apply(o, totals)
	return nil
}

func loadService(tx *gorm.DB, tenantID, serviceID uint) (*models.Service, error) {
	var svc models.Service
	err := tx.Where("id = ? AND tenant_id = ?", serviceID, tenantID).First(&svc).Error
	if err != nil {
		return nil, store.NotFound(err, "service")
	}
	if !svc.IsAvailable {
		return nil, apperr.Validation("service " + svc.Name + " is not available")
	}
	return &svc, nil
}
