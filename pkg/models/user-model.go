package models

import (
	"time"
)

// User represents a registered user
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Push delivery target for the user's current device. Empty means the
	// user has no registered device and deliveries to them fail softly.
	DeviceToken string `json:"device_token,omitempty"`

	// Relationships
	Packages []Package `gorm:"foreignKey:OwnerID" json:"packages,omitempty"`
	Travels  []Travel  `gorm:"foreignKey:OwnerID" json:"travels,omitempty"`
}
