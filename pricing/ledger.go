// Package pricing computes order totals. It performs no I/O.
package pricing

import (
	"fmt"

	"laundry-api/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived monetary fields of an order.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Money rounds to cents, half away from zero.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Subtotal sums unit price × quantity over the line items.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(it.Quantity))
	}
	return Money(sum)
}

// Discount derives the promo reduction, never more than subtotal and never negative.
// An inactive or nil promo yields zero.
func Discount(subtotal decimal.Decimal, promo *models.PromoCode) decimal.Decimal {
	if promo == nil || !promo.Active {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch promo.Type {
	case models.PromoPercent:
		d = subtotal.Mul(promo.Value).Div(hundred)
	case models.PromoFlat:
		d = promo.Value
	default:
		return decimal.Zero
	}
	d = Money(d)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// Recompute derives subtotal, discount, tax and total. DeliveryFee and
// TipAmount are read from the order and passed through unchanged.
func Recompute(order *models.Order, items []models.OrderItem, promo *models.PromoCode, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, fmt.Errorf("tax rate must not be negative, got %s", taxRate)
	}
	subtotal := Subtotal(items)
	discount := Discount(subtotal, promo)
	tax := Money(subtotal.Sub(discount).Mul(taxRate))
	total := subtotal.Sub(discount).Add(tax).Add(order.DeliveryFee).Add(order.TipAmount)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    Money(total),
	}, nil
}

// Apply writes totals onto the order.
func Apply(order *models.Order, t Totals) {
	order.Subtotal = t.Subtotal
	order.DiscountAmount = t.DiscountAmount
	order.TaxAmount = t.TaxAmount
	order.TotalAmount = t.TotalAmount
}

// Verify checks total == subtotal − discount + tax + delivery fee + tip.
func Verify(order *models.Order) error {
	want := Money(order.Subtotal.Sub(order.DiscountAmount).Add(order.TaxAmount).
		Add(order.DeliveryFee).Add(order.TipAmount))
	if !want.Equal(Money(order.TotalAmount)) {
		return fmt.Errorf("order %d total %s does not reconcile, expected %s", order.ID, order.TotalAmount, want)
	}
	return nil
}
