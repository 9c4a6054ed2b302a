// Package settlement moves money for orders across the card gateway and the
// customer wallet, keeping the order's paid and refunded amounts in step.
package settlement

import (
	"context"
	"strconv"
	"time"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/gateway"
	"laundry-api/logger"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/pricing"
	"laundry-api/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	uow  *store.UnitOfWork
	gate authz.Gate
	gw   gateway.Gateway
}

func NewService(uow *store.UnitOfWork, gate authz.Gate, gw gateway.Gateway) *Service {
	return &Service{uow: uow, gate: gate, gw: gw}
}

type PayInput struct {
	UseWallet bool `json:"use_wallet"`
}

type PayResult struct {
	Order         *models.Order   `json:"order"`
	Charged       decimal.Decimal `json:"charged"`
	WalletAmount  decimal.Decimal `json:"wallet_amount"`
	GatewayAmount decimal.Decimal `json:"gateway_amount"`
}

// Pay settles the order's outstanding balance, drawing on the wallet first
// when asked and charging the rest to the card on file.
func (s *Service) Pay(ctx context.Context, orderID uint, in PayInput) (*PayResult, error) {
	actor, err := s.gate.RequireRole(ctx, append([]models.UserRole{models.RoleCustomer}, models.StaffRoles...)...)
	if err != nil {
		return nil, err
	}

	var out *PayResult
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := store.LockOrder(tx.DB, orderID)
		if err != nil {
			return err
		}
		if err := authz.CanSeeOrder(actor, o); err != nil {
			return err
		}
		if o.Status == models.StatusCancelled || o.Status == models.StatusRefunded {
			return apperr.Validation("order in status " + string(o.Status) + " cannot be paid")
		}
		due := pricing.Money(o.BalanceDue())
		if !due.IsPositive() {
			return apperr.Validation("order has no outstanding balance")
		}

		walletPart := decimal.Zero
		if in.UseWallet && o.CustomerID != nil {
			balance, err := walletBalance(tx.DB, *o.CustomerID)
			if err != nil {
				return err
			}
			walletPart = decimal.Min(balance, due)
			if walletPart.IsPositive() {
				if err := debitWallet(tx.DB, *o.CustomerID, walletPart); err != nil {
					// the balance moved under us; start over
					if apperr.Is(err, apperr.CodeInsufficientWallet) {
						return apperr.ErrConcurrentModification
					}
					return err
				}
			}
		}

		gatewayPart := due.Sub(walletPart)
		if gatewayPart.IsPositive() {
			ref, err := s.gw.Charge(ctx, gateway.ChargeRequest{
				CustomerRef:    s.customerRef(tx, o),
				Amount:         gatewayPart,
				Description:    "order #" + strconv.Itoa(o.OrderNumber),
				IdempotencyKey: gateway.IdempotencyKey(o.ID, "charge", gatewayPart, o.Version),
			})
			if err != nil {
				return apperr.Gateway(err)
			}
			o.ExternalPaymentRef = &ref
		}

		o.PaidAmount = o.PaidAmount.Add(due)
		o.WalletPaidAmount = o.WalletPaidAmount.Add(walletPart)
		o.PaymentMethod = combineMethod(o.PaymentMethod, walletPart, gatewayPart)
		if o.PaidAt == nil {
			now := time.Now()
			o.PaidAt = &now
		}
		if err := store.SaveOrder(tx.DB, o); err != nil {
			return err
		}
		tx.Emit(notify.Event{
			Type:      notify.EventPaymentReceived,
			TenantID:  o.TenantID,
			OrderID:   o.ID,
			Recipient: recipientOf(o),
			Variables: map[string]string{
				"order_number": strconv.Itoa(o.OrderNumber),
				"amount":       due.StringFixed(2),
				"method":       string(o.PaymentMethod),
			},
		})
		out = &PayResult{Order: o, Charged: due, WalletAmount: walletPart, GatewayAmount: gatewayPart}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("order paid",
		zap.Uint("order_id", orderID),
		zap.String("amount", out.Charged.StringFixed(2)),
		zap.String("method", string(out.Order.PaymentMethod)),
	)
	return out, nil
}

func (s *Service) customerRef(tx *store.Tx, o *models.Order) string {
	if o.CustomerID != nil {
		if u, err := store.LoadUser(tx.DB, *o.CustomerID); err == nil && u.PaymentRef != "" {
			return u.PaymentRef
		}
	}
	return "guest-order-" + strconv.FormatUint(uint64(o.ID), 10)
}

func combineMethod(prev models.PaymentMethod, wallet, card decimal.Decimal) models.PaymentMethod {
	var m models.PaymentMethod
	switch {
	case wallet.IsPositive() && card.IsPositive():
		m = models.PaymentMixed
	case wallet.IsPositive():
		m = models.PaymentWallet
	default:
		m = models.PaymentCard
	}
	if prev != models.PaymentNone && prev != m {
		return models.PaymentMixed
	}
	return m
}

func recipientOf(o *models.Order) uint {
	if o.CustomerID == nil {
		return 0
	}
	return *o.CustomerID
}
