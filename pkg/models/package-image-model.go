package models

import (
	"time"
)

// PackageImage references a stored image blob for a Package. The record and
// the blob are deleted together, record first, so a missing record never
// points at a still-existing file within the same transaction.
type PackageImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PackageID uint    `gorm:"not null;index" json:"package_id"`
	Package   Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`

	// Locator is the opaque blob storage reference.
	Locator string `gorm:"not null" json:"locator"`
}
