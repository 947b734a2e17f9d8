package models

import (
	"time"
)

// DoneDeal marks exactly one Deal of a Package as the confirmed match. It is
// immutable after creation; the unique index on DealID guarantees that
// concurrent confirmations cannot both commit.
type DoneDeal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DealID uint `gorm:"not null;uniqueIndex" json:"deal_id"`
	Deal   Deal `gorm:"foreignKey:DealID" json:"deal,omitempty"`
}
