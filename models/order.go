package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a priced, persisted cart belonging to one restaurant
type Order struct {
	ID                       string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID             uint        `gorm:"not null;index;uniqueIndex:idx_orders_restaurant_code" json:"restaurant_id"`
	Restaurant               *Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	TableID                  *uint       `gorm:"index" json:"table_id"` // nullable, pickup orders have no table
	Table                    *Table      `gorm:"foreignKey:TableID" json:"table,omitempty"`
	Code                     string      `gorm:"not null;uniqueIndex:idx_orders_restaurant_code" json:"code"`
	Status                   OrderStatus `gorm:"type:varchar(16);not null;default:'NEW';index" json:"status"`
	SubtotalCents            int64       `gorm:"not null;check:subtotal_cents >= 0" json:"subtotal_cents"`
	TaxCents                 int64       `gorm:"not null;check:tax_cents >= 0" json:"tax_cents"`
	TipCents                 int64       `gorm:"not null;check:tip_cents >= 0" json:"tip_cents"`
	TotalCents               int64       `gorm:"not null;check:total_cents >= 0" json:"total_cents"`
	TaxRateBps               int         `gorm:"not null" json:"tax_rate_bps"`
	TipRateBps               int         `gorm:"not null" json:"tip_rate_bps"`
	Currency                 string      `gorm:"not null" json:"currency"`
	ExternalPaymentSessionID *string     `gorm:"uniqueIndex" json:"external_payment_session_id"` // set once, after the payment session is created
	Notes                    *string     `gorm:"type:text" json:"notes"`
	ReconciliationRequired   bool        `gorm:"not null;default:false" json:"reconciliation_required"` // captured amount differed from the computed total
	PaidAt                   *time.Time  `json:"paid_at"`
	Lines                    []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt                time.Time   `json:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns a UUID when the caller did not
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderLine is one priced menu item inside an order
type OrderLine struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	OrderID           string             `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Position          int                `gorm:"not null" json:"position"`
	MenuItemID        uint               `gorm:"not null" json:"menu_item_id"`
	Name              string             `gorm:"not null" json:"name"`
	Quantity          int                `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPriceCents    int64              `gorm:"not null;check:unit_price_cents >= 0" json:"unit_price_cents"`
	SelectedModifiers []ModifierSnapshot `gorm:"serializer:json;type:text" json:"selected_modifiers"`
	Notes             *string            `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for the OrderLine model
func (OrderLine) TableName() string {
	return "order_lines"
}

// LineTotalCents is (unit price + modifier deltas) * quantity
func (l OrderLine) LineTotalCents() int64 {
	unit := l.UnitPriceCents
	for _, m := range l.SelectedModifiers {
		unit += m.PriceDeltaCents
	}
	return unit * int64(l.Quantity)
}

// Sources of a status change, recorded on OrderStatusEvent
const (
	SourceCheckout = "checkout"
	SourceStaff    = "staff"
	SourceWebhook  = "webhook"
	SourceSweeper  = "sweeper"
)

// OrderStatusEvent is the audit trail of status changes
type OrderStatusEvent struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	OrderID    string       `gorm:"type:varchar(36);not null;index" json:"order_id"`
	FromStatus *OrderStatus `gorm:"type:varchar(16)" json:"from_status"` // nil for the creation event
	ToStatus   OrderStatus  `gorm:"type:varchar(16);not null" json:"to_status"`
	Source     string       `gorm:"not null" json:"source"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusEvent model
func (OrderStatusEvent) TableName() string {
	return "order_status_events"
}
