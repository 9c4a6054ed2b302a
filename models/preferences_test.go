package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreferencesDefaults(t *testing.T) {
	p, err := NewPreferences(Preferences{Starch: true})
	require.NoError(t, err)
	assert.Equal(t, DetergentStandard, p.Detergent)
	assert.Equal(t, WaterCold, p.WaterTemp)
	assert.Equal(t, FoldStandard, p.FoldStyle)
	assert.True(t, p.Starch)
}

func TestNewPreferencesRejectsUnknownValues(t *testing.T) {
	cases := map[string]Preferences{
		"detergent": {Detergent: "bleach"},
		"water":     {WaterTemp: "boiling"},
		"fold":      {FoldStyle: "origami"},
		"note":      {Note: strings.Repeat("x", maxPreferenceNote+1)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPreferences(p)
			assert.Error(t, err)
		})
	}
}

func TestOrderBalances(t *testing.T) {
	o := Order{
		TotalAmount:    decimal.RequireFromString("60.00"),
		PaidAmount:     decimal.RequireFromString("50.00"),
		RefundedAmount: decimal.RequireFromString("20.00"),
	}
	assert.True(t, decimal.RequireFromString("30").Equal(o.RemainingPaid()))
	assert.True(t, decimal.RequireFromString("10").Equal(o.BalanceDue()))

	o.TipSettledAmount = decimal.RequireFromString("4.00")
	o.TotalAmount = decimal.RequireFromString("64.00")
	assert.True(t, decimal.RequireFromString("10").Equal(o.BalanceDue()))
	assert.True(t, decimal.RequireFromString("30").Equal(o.RemainingPaid()))
}
