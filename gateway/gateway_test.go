package gateway

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedChargeAndRefund(t *testing.T) {
	ctx := context.Background()
	g := NewSimulated(false, false)

	ref, err := g.Charge(ctx, ChargeRequest{CustomerRef: "cus_1", Amount: decimal.RequireFromString("50"), IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Contains(t, ref, "ch_")

	_, err = g.Refund(ctx, RefundRequest{ChargeRef: ref, Amount: decimal.RequireFromString("20"), IdempotencyKey: "r1"})
	require.NoError(t, err)
	_, err = g.Refund(ctx, RefundRequest{ChargeRef: ref, Amount: decimal.RequireFromString("31"), IdempotencyKey: "r2"})
	assert.Error(t, err)
	assert.True(t, decimal.RequireFromString("20").Equal(g.Refunded(ref)))
}

func TestSimulatedReplaysIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	g := NewSimulated(false, false)
	req := ChargeRequest{CustomerRef: "cus_1", Amount: decimal.NewFromInt(10), IdempotencyKey: "same"}

	first, err := g.Charge(ctx, req)
	require.NoError(t, err)
	second, err := g.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	r1, err := g.Refund(ctx, RefundRequest{ChargeRef: first, Amount: decimal.NewFromInt(10), IdempotencyKey: "ref"})
	require.NoError(t, err)
	r2, err := g.Refund(ctx, RefundRequest{ChargeRef: first, Amount: decimal.NewFromInt(10), IdempotencyKey: "ref"})
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.True(t, decimal.NewFromInt(10).Equal(g.Refunded(first)))
}

func TestSimulatedFailureInjection(t *testing.T) {
	ctx := context.Background()
	g := NewSimulated(true, true)
	_, err := g.Charge(ctx, ChargeRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrDeclined)
	_, err = g.Refund(ctx, RefundRequest{ChargeRef: "ch_x", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRefundRejected)
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	a := IdempotencyKey(7, "refund", decimal.RequireFromString("20"), 1)
	b := IdempotencyKey(7, "refund", decimal.RequireFromString("20.00"), 1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, IdempotencyKey(7, "refund", decimal.RequireFromString("20"), 2))
	assert.NotEqual(t, a, IdempotencyKey(7, "charge", decimal.RequireFromString("20"), 1))
}
