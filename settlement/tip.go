package settlement

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"laundry-api/apperr"
	"laundry-api/gateway"
	"laundry-api/logger"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/pricing"
	"laundry-api/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	minTip = decimal.RequireFromString("0.50")
	maxTip = decimal.RequireFromString("500.00")

	tippableStatuses = []models.OrderStatus{
		models.StatusOutForDelivery,
		models.StatusDelivered,
		models.StatusCompleted,
	}
)

// SubmitTip records the calling customer's tip and adds it to the order
// total. When the tenant has a payout account the tip is charged straight
// to it and counts as settled. A failed payout still keeps the tip, without
// a transfer reference, and leaves it in the balance due for the next Pay.
func (s *Service) SubmitTip(ctx context.Context, orderID uint, amount decimal.Decimal) (*models.Tip, error) {
	actor, err := s.gate.RequireRole(ctx, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if !amount.Equal(pricing.Money(amount)) {
		return nil, apperr.Validation("tip must have at most two decimal places")
	}
	if amount.LessThan(minTip) || amount.GreaterThan(maxTip) {
		return nil, apperr.Validation("tip must be between 0.50 and 500.00")
	}

	var out *models.Tip
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := store.LockOrder(tx.DB, orderID)
		if err != nil {
			return err
		}
		if o.TenantID != actor.TenantID || o.CustomerID == nil || *o.CustomerID != actor.ID {
			return apperr.NotFound("order not found")
		}
		if !slices.Contains(tippableStatuses, o.Status) {
			return apperr.Validation("tips are accepted once the order is out for delivery").
				WithDetail("current_status", o.Status)
		}

		var existing int64
		err = tx.Model(&models.Tip{}).
			Where("order_id = ? AND payer_id = ?", o.ID, actor.ID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return apperr.DuplicateTip()
		}

		tip := &models.Tip{
			OrderID:  o.ID,
			PayerID:  actor.ID,
			DriverID: o.DriverID,
			Amount:   amount,
		}
		if err := tx.Create(tip).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.DuplicateTip()
			}
			return err
		}

		updates := map[string]any{
			"tip_amount":   gorm.Expr("tip_amount + ?", amount),
			"total_amount": gorm.Expr("total_amount + ?", amount),
			"version":      gorm.Expr("version + 1"),
		}
		if ref := s.routeTip(ctx, tx, o, amount); ref != nil {
			if err := tx.Model(tip).Update("transfer_ref", *ref).Error; err != nil {
				return err
			}
			tip.TransferRef = ref
			updates["tip_settled_amount"] = gorm.Expr("tip_settled_amount + ?", amount)
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
			return err
		}

		vars := map[string]string{
			"order_number": strconv.Itoa(o.OrderNumber),
			"amount":       amount.StringFixed(2),
		}
		if o.DriverID != nil {
			tx.Emit(notify.Event{Type: notify.EventTipReceived, TenantID: o.TenantID, OrderID: o.ID, Recipient: *o.DriverID, Variables: vars})
		} else {
			tx.Emit(notify.Event{Type: notify.EventTipReceived, TenantID: o.TenantID, OrderID: o.ID, Variables: vars})
		}
		out = tip
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// routeTip charges the payer with the tenant's payout account as destination.
// Failures are logged and yield a nil reference.
func (s *Service) routeTip(ctx context.Context, tx *store.Tx, o *models.Order, amount decimal.Decimal) *string {
	tenant, err := store.LoadTenant(tx.DB, o.TenantID)
	if err != nil || tenant.PayoutAccount == nil || *tenant.PayoutAccount == "" {
		return nil
	}
	ref, err := s.gw.Charge(ctx, gateway.ChargeRequest{
		CustomerRef:    s.customerRef(tx, o),
		Amount:         amount,
		Destination:    tenant.PayoutAccount,
		Description:    "tip for order #" + strconv.Itoa(o.OrderNumber),
		IdempotencyKey: gateway.IdempotencyKey(o.ID, "tip", amount, int(*o.CustomerID)),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("tip payout routing failed, keeping tip without transfer",
			zap.Uint("order_id", o.ID),
			zap.Error(err),
		)
		return nil
	}
	return &ref
}
