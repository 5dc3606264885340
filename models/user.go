package models

import (
	"time"
)

// Staff roles
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// User represents a staff member of a restaurant
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Auth0ID      string      `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name         string      `gorm:"not null" json:"name"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	Role         string      `gorm:"not null;default:'staff'" json:"role"` // "owner" or "staff"
	RestaurantID *uint       `gorm:"index" json:"restaurant_id"`           // nullable until the user creates or joins a restaurant
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsOwner reports whether the user owns their restaurant
func (u User) IsOwner() bool {
	return u.Role == RoleOwner
}
