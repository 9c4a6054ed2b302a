package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a laundry order
type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusConfirmed         OrderStatus = "confirmed"
	StatusPickedUp          OrderStatus = "picked_up"
	StatusProcessing        OrderStatus = "processing"
	StatusReady             OrderStatus = "ready"
	StatusOutForDelivery    OrderStatus = "out_for_delivery"
	StatusDelivered         OrderStatus = "delivered"
	StatusCompleted         OrderStatus = "completed"
	StatusCancelled         OrderStatus = "cancelled"
	StatusRefunded          OrderStatus = "refunded"
	StatusPartiallyRefunded OrderStatus = "partially_refunded"
)

var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPickedUp, StatusProcessing, StatusReady,
	StatusOutForDelivery, StatusDelivered, StatusCompleted, StatusCancelled,
	StatusRefunded, StatusPartiallyRefunded,
}

type PaymentMethod string

const (
	PaymentNone   PaymentMethod = ""
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentMixed  PaymentMethod = "mixed"
)

// Order is never deleted; cancelled and refunded are terminal statuses.
type Order struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	OrderNumber int         `json:"order_number" gorm:"uniqueIndex:idx_order_tenant_number;not null"`
	TenantID    uint        `json:"tenant_id" gorm:"uniqueIndex:idx_order_tenant_number;not null"`
	LocationID  uint        `json:"location_id" gorm:"index;not null"`
	CustomerID  *uint       `json:"customer_id" gorm:"index"` // nil for guest orders
	DriverID    *uint       `json:"driver_id"`
	Status      OrderStatus `json:"status" gorm:"index;not null;default:'pending'"`

	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null;default:0"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	TipAmount      decimal.Decimal `json:"tip_amount" gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null;default:0"`
	PromoCodeID    *uint           `json:"promo_code_id"`

	BinNumber      string          `json:"bin_number"`
	WasherNumber   *int            `json:"washer_number"`
	DryerNumber    *int            `json:"dryer_number"`
	TotalWeightLbs decimal.Decimal `json:"total_weight_lbs" gorm:"type:decimal(8,2);not null;default:0"`
	NumBags        int             `json:"num_bags"`
	Preferences    Preferences     `json:"preferences" gorm:"serializer:json"`

	PaymentMethod        PaymentMethod   `json:"payment_method"`
	PaidAt               *time.Time      `json:"paid_at"`
	ExternalPaymentRef   *string         `json:"external_payment_ref"`
	PaidAmount           decimal.Decimal `json:"paid_amount" gorm:"type:decimal(12,2);not null;default:0"`
	WalletPaidAmount     decimal.Decimal `json:"wallet_paid_amount" gorm:"type:decimal(12,2);not null;default:0"`
	RefundedAmount       decimal.Decimal `json:"refunded_amount" gorm:"type:decimal(12,2);not null;default:0"`
	WalletRefundedAmount decimal.Decimal `json:"wallet_refunded_amount" gorm:"type:decimal(12,2);not null;default:0"`
	// TipSettledAmount is tip money charged straight to the tenant's payout
	// account. It is not part of PaidAmount and never refunded with the order.
	TipSettledAmount     decimal.Decimal `json:"tip_settled_amount" gorm:"type:decimal(12,2);not null;default:0"`

	Version       int                  `json:"version" gorm:"not null;default:0"`
	Items         []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RemainingPaid is what can still be refunded.
func (o *Order) RemainingPaid() decimal.Decimal {
	return o.PaidAmount.Sub(o.RefundedAmount)
}

// BalanceDue is what the customer still owes after edits and tips. Refunded
// money is returned, not owed again.
func (o *Order) BalanceDue() decimal.Decimal {
	return o.TotalAmount.Sub(o.PaidAmount).Sub(o.TipSettledAmount)
}

type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"index;not null"`
	ServiceID uint            `json:"service_id" gorm:"not null"`
	Name      string          `json:"name"`                                           // snapshot name
	Unit      PricingUnit     `json:"unit"`                                           // snapshot unit
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"` // snapshot price at time of order
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(8,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderStatusHistory is append-only; rows are never updated or deleted.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
