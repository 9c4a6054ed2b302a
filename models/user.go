package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer  UserRole = "customer"
	RoleAttendant UserRole = "attendant"
	RoleDriver    UserRole = "driver"
	RoleManager   UserRole = "manager"
	RoleOwner     UserRole = "owner"
)

// StaffRoles may drive any order transition for their tenant.
var StaffRoles = []UserRole{RoleAttendant, RoleManager, RoleOwner}

// User is a staff member or a customer. Only customers carry a wallet.
// Emails are unique per tenant.
type User struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	TenantID      uint            `json:"tenant_id" gorm:"uniqueIndex:idx_user_tenant_email;not null"`
	Name          string          `json:"name" gorm:"not null"`
	Email         string          `json:"email" gorm:"uniqueIndex:idx_user_tenant_email;not null"`
	PasswordHash  string          `json:"-" gorm:"not null"`
	Role          UserRole        `json:"role" gorm:"not null;default:'customer'"`
	Phone         string          `json:"phone"`
	PaymentRef    string          `json:"-"` // gateway customer reference
	WalletBalance decimal.Decimal `json:"wallet_balance" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
