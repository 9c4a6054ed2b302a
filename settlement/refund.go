package settlement

import (
	"context"
	"errors"
	"strconv"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/equipment"
	"laundry-api/gateway"
	"laundry-api/logger"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/pricing"
	"laundry-api/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	minRefund   = decimal.RequireFromString("0.01")
	errNoCharge = errors.New("order has no gateway charge to refund")
)

// RefundInput requests a refund. A nil Amount refunds everything still paid.
type RefundInput struct {
	Amount         *decimal.Decimal    `json:"amount"`
	Reason         models.RefundReason `json:"reason"`
	RefundToWallet bool                `json:"refund_to_wallet"`
}

type RefundResult struct {
	RefundAmount decimal.Decimal      `json:"refund_amount"`
	RefundType   models.FundingSource `json:"refund_type"`
	Refund       *models.Refund       `json:"refund"`
	Order        *models.Order        `json:"order"`
}

// Refund returns money to the customer. Wallet refunds credit the balance;
// otherwise the card-paid share goes back through the gateway and any
// wallet-paid share returns to the wallet. A gateway failure leaves no trace.
func (s *Service) Refund(ctx context.Context, orderID uint, in RefundInput) (*RefundResult, error) {
	actor, err := s.gate.RequireRole(ctx, models.RoleManager, models.RoleOwner)
	if err != nil {
		return nil, err
	}
	if in.Reason == "" {
		in.Reason = models.ReasonRequestedByCustomer
	}
	if !in.Reason.Valid() {
		return nil, apperr.Validation("unknown refund reason " + string(in.Reason))
	}

	var out *RefundResult
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := store.LockOrder(tx.DB, orderID)
		if err != nil {
			return err
		}
		if err := authz.CanSeeOrder(actor, o); err != nil {
			return err
		}
		if o.PaidAt == nil {
			return apperr.Validation("order has not been paid")
		}
		if o.Status == models.StatusCancelled || o.Status == models.StatusRefunded {
			return apperr.InvalidTransition("order in status " + string(o.Status) + " cannot be refunded").
				WithDetail("current_status", o.Status)
		}

		remaining := pricing.Money(o.RemainingPaid())
		amount := remaining
		if in.Amount != nil {
			amount = pricing.Money(*in.Amount)
		}
		if amount.LessThan(minRefund) {
			return apperr.Validation("refund amount must be at least 0.01")
		}
		if amount.GreaterThan(remaining) {
			return apperr.RefundExceedsPaid("refund of " + amount.StringFixed(2) +
				" exceeds the remaining paid amount of " + remaining.StringFixed(2)).
				WithDetail("remaining_paid", remaining.StringFixed(2))
		}

		var seq int64
		if err := tx.Model(&models.Refund{}).Where("order_id = ?", o.ID).Count(&seq).Error; err != nil {
			return err
		}
		key := gateway.IdempotencyKey(o.ID, "refund", amount, int(seq)+1)

		gatewayPart, walletPart := split(o, amount, in.RefundToWallet)
		if walletPart.IsPositive() && o.CustomerID == nil {
			return apperr.Validation("guest orders cannot be refunded to a wallet")
		}

		var gatewayRef *string
		if gatewayPart.IsPositive() {
			if o.ExternalPaymentRef == nil {
				return apperr.Gateway(errNoCharge)
			}
			ref, err := s.gw.Refund(ctx, gateway.RefundRequest{
				ChargeRef:      *o.ExternalPaymentRef,
				Amount:         gatewayPart,
				IdempotencyKey: key,
			})
			if err != nil {
				return apperr.Gateway(err)
			}
			gatewayRef = &ref
		}
		if walletPart.IsPositive() {
			if err := creditWallet(tx.DB, *o.CustomerID, walletPart); err != nil {
				return err
			}
		}

		from := o.Status
		o.RefundedAmount = o.RefundedAmount.Add(amount)
		o.WalletRefundedAmount = o.WalletRefundedAmount.Add(walletPart)
		if o.RemainingPaid().IsZero() {
			o.Status = models.StatusRefunded
			equipment.ReleaseOrder(o)
		} else {
			o.Status = models.StatusPartiallyRefunded
		}
		if err := store.SaveOrder(tx.DB, o); err != nil {
			return err
		}
		if err := store.AppendHistory(tx.DB, o.ID, from, o.Status, actor.ID, "refund "+amount.StringFixed(2)+" ("+string(in.Reason)+")"); err != nil {
			return err
		}

		refund := &models.Refund{
			OrderID:        o.ID,
			Amount:         amount,
			GatewayAmount:  gatewayPart,
			WalletAmount:   walletPart,
			Reason:         in.Reason,
			Source:         source(gatewayPart, walletPart),
			GatewayRef:     gatewayRef,
			IdempotencyKey: key,
			IssuedBy:       actor.ID,
		}
		if err := tx.Create(refund).Error; err != nil {
			return err
		}

		tx.Emit(notify.Event{
			Type:      notify.EventRefundIssued,
			TenantID:  o.TenantID,
			OrderID:   o.ID,
			Recipient: recipientOf(o),
			Variables: map[string]string{
				"order_number": strconv.Itoa(o.OrderNumber),
				"amount":       amount.StringFixed(2),
				"refund_type":  string(refund.Source),
			},
		})
		out = &RefundResult{RefundAmount: amount, RefundType: refund.Source, Refund: refund, Order: o}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("refund issued",
		zap.Uint("order_id", orderID),
		zap.String("amount", out.RefundAmount.StringFixed(2)),
		zap.String("refund_type", string(out.RefundType)),
	)
	return out, nil
}

// split divides a refund between the gateway and the wallet. Card-paid money
// goes back to the card first; the wallet-paid share returns to the wallet.
func split(o *models.Order, amount decimal.Decimal, toWallet bool) (gatewayPart, walletPart decimal.Decimal) {
	if toWallet && o.CustomerID != nil {
		return decimal.Zero, amount
	}
	cardPaid := o.PaidAmount.Sub(o.WalletPaidAmount)
	cardRefunded := o.RefundedAmount.Sub(o.WalletRefundedAmount)
	refundable := decimal.Max(cardPaid.Sub(cardRefunded), decimal.Zero)
	gatewayPart = decimal.Min(amount, refundable)
	return gatewayPart, amount.Sub(gatewayPart)
}

func source(gatewayPart, walletPart decimal.Decimal) models.FundingSource {
	switch {
	case gatewayPart.IsPositive() && walletPart.IsPositive():
		return models.FundingMixed
	case walletPart.IsPositive():
		return models.FundingWallet
	}
	return models.FundingGateway
}

// Refunds lists the refunds issued against an order, oldest first.
func (s *Service) Refunds(ctx context.Context, orderID uint) ([]models.Refund, error) {
	actor, err := s.gate.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	db := s.uow.DB(ctx)
	var o models.Order
	if err := db.Select("id", "tenant_id", "customer_id", "driver_id").First(&o, orderID).Error; err != nil {
		return nil, store.NotFound(err, "order")
	}
	if err := authz.CanSeeOrder(actor, &o); err != nil {
		return nil, err
	}
	var refunds []models.Refund
	if err := db.Where("order_id = ?", orderID).Order("id").Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
