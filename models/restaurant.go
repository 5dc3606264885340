package models

import (
	"time"
)

// Restaurant is one tenant of the system
type Restaurant struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Slug              string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name              string    `gorm:"not null" json:"name"`
	Currency          string    `gorm:"not null;default:'usd'" json:"currency"`
	TaxRateBps        int       `gorm:"not null;default:0;check:tax_rate_bps >= 0 AND tax_rate_bps <= 10000" json:"tax_rate_bps"`
	DefaultTipRateBps int       `gorm:"not null;default:0;check:default_tip_rate_bps >= 0 AND default_tip_rate_bps <= 10000" json:"default_tip_rate_bps"`
	StripeAccountID   *string   `json:"stripe_account_id"` // connected payment account, nullable until onboarding finishes
	PaymentsEnabled   bool      `gorm:"not null;default:false" json:"payments_enabled"`
	OrderCounter      int64     `gorm:"not null;default:0" json:"-"` // source of the human-readable order codes
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Restaurant model
func (Restaurant) TableName() string {
	return "restaurants"
}

// AcceptsPayments reports whether checkout can create payment sessions for this restaurant
func (r Restaurant) AcceptsPayments() bool {
	return r.PaymentsEnabled && r.StripeAccountID != nil && *r.StripeAccountID != ""
}

// Table is a physical table carrying a QR code
type Table struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;uniqueIndex:idx_tables_restaurant_code" json:"restaurant_id"`
	Code         string    `gorm:"not null;uniqueIndex:idx_tables_restaurant_code" json:"code"` // token printed in the QR code
	Label        string    `gorm:"not null" json:"label"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Table model
func (Table) TableName() string {
	return "tables"
}
