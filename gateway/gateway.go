// Package gateway abstracts the external card processor.
package gateway

//go:generate mockgen -destination=mocks/gateway_mock.go -package=mocks laundry-api/gateway Gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeRequest charges CustomerRef. A non-nil Destination routes the funds
// to a connected payout account with no platform fee.
type ChargeRequest struct {
	CustomerRef    string
	Amount         decimal.Decimal
	Destination    *string
	Description    string
	IdempotencyKey string
}

type RefundRequest struct {
	ChargeRef      string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Gateway returns a reference for every successful call. Retrying a call with
// the same idempotency key must not move money twice.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (string, error)
	Refund(ctx context.Context, req RefundRequest) (string, error)
}

var (
	ErrDeclined       = errors.New("gateway: charge declined")
	ErrRefundRejected = errors.New("gateway: refund rejected")
)

// Simulated is an in-memory gateway with failure injection. Calls replayed
// with a known idempotency key return the original reference.
type Simulated struct {
	FailCharges bool
	FailRefunds bool

	mu       sync.Mutex
	replies  map[string]string
	charged  map[string]decimal.Decimal
	refunded map[string]decimal.Decimal
}

func NewSimulated(failCharges, failRefunds bool) *Simulated {
	return &Simulated{
		FailCharges: failCharges,
		FailRefunds: failRefunds,
		replies:     make(map[string]string),
		charged:     make(map[string]decimal.Decimal),
		refunded:    make(map[string]decimal.Decimal),
	}
}

func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.replies[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return ref, nil
	}
	if s.FailCharges {
		return "", ErrDeclined
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("gateway: invalid charge amount %s", req.Amount)
	}
	ref := "ch_" + uuid.NewString()
	s.charged[ref] = req.Amount
	s.remember(req.IdempotencyKey, ref)
	return ref, nil
}

func (s *Simulated) Refund(ctx context.Context, req RefundRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.replies[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return ref, nil
	}
	if s.FailRefunds {
		return "", ErrRefundRejected
	}
	charged, ok := s.charged[req.ChargeRef]
	if !ok {
		return "", fmt.Errorf("gateway: unknown charge %q", req.ChargeRef)
	}
	if s.refunded[req.ChargeRef].Add(req.Amount).GreaterThan(charged) {
		return "", fmt.Errorf("gateway: refund of %s exceeds charge %s", req.Amount, req.ChargeRef)
	}
	s.refunded[req.ChargeRef] = s.refunded[req.ChargeRef].Add(req.Amount)
	ref := "re_" + uuid.NewString()
	s.remember(req.IdempotencyKey, ref)
	return ref, nil
}

// Refunded reports the total refunded against a charge.
func (s *Simulated) Refunded(chargeRef string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunded[chargeRef]
}

func (s *Simulated) remember(key, ref string) {
	if key != "" {
		s.replies[key] = ref
	}
}

// idempotencyNamespace scopes keys produced by IdempotencyKey.
var idempotencyNamespace = uuid.MustParse("6f1c8d52-3a4e-4b8e-9a51-0c7d2e9b4f10")

// IdempotencyKey derives a stable key for one money movement so a replayed
// unit of work reuses the key of its first attempt.
func IdempotencyKey(orderID uint, operation string, amount decimal.Decimal, seq int) string {
	name := fmt.Sprintf("%d:%s:%s:%d", orderID, operation, amount.StringFixed(2), seq)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}
