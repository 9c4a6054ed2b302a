package pricing

import (
	"testing"

	"laundry-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(price, qty string) models.OrderItem {
	return models.OrderItem{UnitPrice: dec(price), Quantity: dec(qty)}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestRecomputeDeliveryOrderWithTax(t *testing.T) {
	order := &models.Order{DeliveryFee: dec("5.00")}
	totals, err := Recompute(order, []models.OrderItem{item("10.00", "2")}, nil, dec("0.08"))
	require.NoError(t, err)

	assertDec(t, "20.00", totals.Subtotal)
	assertDec(t, "0", totals.DiscountAmount)
	assertDec(t, "1.60", totals.TaxAmount)
	assertDec(t, "26.60", totals.TotalAmount)

	Apply(order, totals)
	assert.NoError(t, Verify(order))
}

func TestRecomputeDiscounts(t *testing.T) {
	items := []models.OrderItem{item("1.75", "12.5"), item("4.00", "3")} // 21.875 + 12 -> 33.88
	cases := []struct {
		name     string
		promo    *models.PromoCode
		discount string
		tax      string
		total    string
	}{
		{"none", nil, "0", "2.71", "36.59"},
		{"percent", &models.PromoCode{Type: models.PromoPercent, Value: dec("10"), Active: true}, "3.39", "2.44", "32.93"},
		{"flat", &models.PromoCode{Type: models.PromoFlat, Value: dec("5"), Active: true}, "5.00", "2.31", "31.19"},
		{"flat capped at subtotal", &models.PromoCode{Type: models.PromoFlat, Value: dec("100"), Active: true}, "33.88", "0", "0"},
		{"inactive", &models.PromoCode{Type: models.PromoFlat, Value: dec("5"), Active: false}, "0", "2.71", "36.59"},
		{"negative flat ignored", &models.PromoCode{Type: models.PromoFlat, Value: dec("-5"), Active: true}, "0", "2.71", "36.59"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := &models.Order{}
			totals, err := Recompute(order, items, tc.promo, dec("0.08"))
			require.NoError(t, err)
			assertDec(t, "33.88", totals.Subtotal)
			assertDec(t, tc.discount, totals.DiscountAmount)
			assertDec(t, tc.tax, totals.TaxAmount)
			assertDec(t, tc.total, totals.TotalAmount)
			assert.False(t, totals.TotalAmount.IsNegative())
		})
	}
}

func TestRecomputePassesThroughTipAndFee(t *testing.T) {
	order := &models.Order{DeliveryFee: dec("3.50"), TipAmount: dec("4.00")}
	totals, err := Recompute(order, []models.OrderItem{item("10", "1")}, nil, decimal.Zero)
	require.NoError(t, err)
	assertDec(t, "17.50", totals.TotalAmount)
	assertDec(t, "3.50", order.DeliveryFee)
	assertDec(t, "4.00", order.TipAmount)
}

func TestRecomputeRejectsNegativeTaxRate(t *testing.T) {
	_, err := Recompute(&models.Order{}, nil, nil, dec("-0.01"))
	assert.Error(t, err)
}

func TestVerifyDetectsDrift(t *testing.T) {
	order := &models.Order{
		Subtotal:    dec("20"),
		TaxAmount:   dec("1.60"),
		DeliveryFee: dec("5"),
		TotalAmount: dec("26.61"),
	}
	assert.Error(t, Verify(order))
	order.TotalAmount = dec("26.6")
	assert.NoError(t, Verify(order))
}
