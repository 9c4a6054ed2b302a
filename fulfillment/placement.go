package fulfillment

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"laundry-api/apperr"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/pricing"
	"laundry-api/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlaceOrderInput struct {
	LocationID  uint               `json:"location_id" binding:"required"`
	Items       []ItemInput        `json:"items" binding:"required,min=1,dive"`
	PromoCode   string             `json:"promo_code"`
	Preferences models.Preferences `json:"preferences"`
	// DeliveryFee overrides the location's fee. Staff only; ignored for customers.
	DeliveryFee *decimal.Decimal `json:"delivery_fee"`
	// CustomerID lets staff place an order on behalf of a customer. Nil
	// from staff makes a guest order; ignored for customers.
	CustomerID *uint `json:"customer_id"`
}

// PlaceOrder creates a pending order with priced item snapshots and the
// location's delivery fee.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx, append([]models.UserRole{models.RoleCustomer}, models.StaffRoles...)...)
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("an order needs at least one item")
	}
	if actor.Role == models.RoleCustomer {
		in.DeliveryFee = nil
	}
	if in.DeliveryFee != nil && in.DeliveryFee.IsNegative() {
		return nil, apperr.Validation("delivery fee must not be negative")
	}
	prefs, err := models.NewPreferences(in.Preferences)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		loc, err := store.LoadLocation(tx.DB, in.LocationID)
		if err != nil {
			return err
		}
		if loc.TenantID != actor.TenantID {
			return apperr.NotFound("location not found")
		}
		tenant, err := store.LoadTenant(tx.DB, actor.TenantID)
		if err != nil {
			return err
		}

		fee := loc.DeliveryFee
		if in.DeliveryFee != nil {
			fee = *in.DeliveryFee
		}
		o := &models.Order{
			TenantID:    actor.TenantID,
			LocationID:  loc.ID,
			Status:      models.StatusPending,
			DeliveryFee: pricing.Money(fee),
			Preferences: prefs,
		}
		if actor.Role == models.RoleCustomer {
			id := actor.ID
			o.CustomerID = &id
		} else if in.CustomerID != nil {
			cust, err := store.LoadUser(tx.DB, *in.CustomerID)
			if err != nil {
				return err
			}
			if cust.TenantID != actor.TenantID || cust.Role != models.RoleCustomer {
				return apperr.NotFound("customer not found")
			}
			o.CustomerID = &cust.ID
		}

		for _, it := range in.Items {
			svc, err := loadService(tx.DB, actor.TenantID, it.ServiceID)
			if err != nil {
				return err
			}
			if !it.Quantity.IsPositive() {
				return apperr.Validation("quantity of " + svc.Name + " must be positive")
			}
			o.Items = append(o.Items, models.OrderItem{
				ServiceID: svc.ID,
				Name:      svc.Name,
				Unit:      svc.Unit,
				UnitPrice: svc.Price,
				Quantity:  it.Quantity,
			})
		}

		promo, err := findPromo(tx.DB, actor.TenantID, in.PromoCode)
		if err != nil {
			return err
		}
		if promo != nil {
			o.PromoCodeID = &promo.ID
		}
		totals, err := pricing.Recompute(o, o.Items, promo, tenant.TaxRate)
		if err != nil {
			return err
		}
		pricing.Apply(o, totals)

		if err := store.CreateOrder(tx.DB, o); err != nil {
			return err
		}
		if err := store.AppendHistory(tx.DB, o.ID, "", models.StatusPending, actor.ID, ""); err != nil {
			return err
		}
		tx.Emit(notify.Event{
			Type:      notify.EventOrderPlaced,
			TenantID:  o.TenantID,
			OrderID:   o.ID,
			Recipient: recipient(o),
			Variables: map[string]string{
				"order_number": strconv.Itoa(o.OrderNumber),
				"total":        o.TotalAmount.StringFixed(2),
			},
		})
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func findPromo(tx *gorm.DB, tenantID uint, code string) (*models.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var p models.PromoCode
	err := tx.Where("tenant_id = ? AND code = ?", tenantID, code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !p.Active) {
		return nil, apperr.Validation("promo code " + code + " is not valid")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
