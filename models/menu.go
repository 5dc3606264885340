package models

import (
	"time"
)

// ModifierType controls how many options of a modifier may be selected
type ModifierType string

const (
	// ModifierSingle allows at most one option
	ModifierSingle ModifierType = "SINGLE"
	// ModifierMulti allows any subset of options
	ModifierMulti ModifierType = "MULTI"
)

// Valid reports whether t is a known modifier type
func (t ModifierType) Valid() bool {
	return t == ModifierSingle || t == ModifierMulti
}

// MenuItem is a dish or drink offered by a restaurant
type MenuItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Name         string     `gorm:"not null" json:"name"`
	Description  string     `json:"description"`
	Category     string     `gorm:"index" json:"category"`
	PriceCents   int64      `gorm:"not null;check:price_cents >= 0" json:"price_cents"`
	IsAvailable  bool       `gorm:"not null;default:true" json:"is_available"`
	ImageS3Key   *string    `json:"-"`                            // nullable, S3 key for the uploaded photo
	ImageURL     *string    `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for the photo
	Modifiers    []Modifier `gorm:"foreignKey:MenuItemID" json:"modifiers"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// Modifier is a named group of options on a menu item ("Size", "Extras")
type Modifier struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	MenuItemID uint             `gorm:"not null;index" json:"menu_item_id"`
	Name       string           `gorm:"not null" json:"name"`
	Type       ModifierType     `gorm:"not null;default:'SINGLE'" json:"type"`
	Options    []ModifierOption `gorm:"foreignKey:ModifierID" json:"options"`
}

// TableName specifies the table name for the Modifier model
func (Modifier) TableName() string {
	return "modifiers"
}

// ModifierOption is one selectable value of a modifier
type ModifierOption struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	ModifierID      uint   `gorm:"not null;index" json:"modifier_id"`
	Name            string `gorm:"not null" json:"name"`
	PriceDeltaCents int64  `gorm:"not null;default:0" json:"price_delta_cents"`
}

// TableName specifies the table name for the ModifierOption model
func (ModifierOption) TableName() string {
	return "modifier_options"
}

// ModifierSnapshot freezes a selected option at order time
type ModifierSnapshot struct {
	Name            string `json:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}
