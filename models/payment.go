package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tip is unique per (order, payer); a second submission is rejected.
type Tip struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"uniqueIndex:idx_tip_order_payer;not null"`
	PayerID     uint            `json:"payer_id" gorm:"uniqueIndex:idx_tip_order_payer;not null"`
	DriverID    *uint           `json:"driver_id"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	TransferRef *string         `json:"transfer_ref"` // nil when payout routing failed or is not configured
	CreatedAt   time.Time       `json:"created_at"`
}

type RefundReason string

const (
	ReasonDuplicate           RefundReason = "duplicate"
	ReasonFraudulent          RefundReason = "fraudulent"
	ReasonRequestedByCustomer RefundReason = "requested_by_customer"
)

func (r RefundReason) Valid() bool {
	switch r {
	case ReasonDuplicate, ReasonFraudulent, ReasonRequestedByCustomer:
		return true
	}
	return false
}

type FundingSource string

const (
	FundingWallet  FundingSource = "wallet"
	FundingGateway FundingSource = "gateway"
	FundingMixed   FundingSource = "mixed"
)

// Refund records one settled refund. Rows exist only for refunds whose
// gateway leg (if any) succeeded.
type Refund struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        uint            `json:"order_id" gorm:"index;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	GatewayAmount  decimal.Decimal `json:"gateway_amount" gorm:"type:decimal(12,2);not null;default:0"`
	WalletAmount   decimal.Decimal `json:"wallet_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Reason         RefundReason    `json:"reason" gorm:"not null"`
	Source         FundingSource   `json:"source" gorm:"not null"`
	GatewayRef     *string         `json:"gateway_ref"`
	IdempotencyKey string          `json:"-" gorm:"size:64;uniqueIndex"`
	IssuedBy       uint            `json:"issued_by"`
	CreatedAt      time.Time       `json:"created_at"`
}
