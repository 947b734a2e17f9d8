package models

import (
	"time"
)

// Travel represents a trip able to carry packages
type Travel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID uint `gorm:"not null;index" json:"owner_id"`
	Owner   User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	OriginDescription  string `gorm:"size:200;default:''" json:"origin_description"`
	DestinyDescription string `gorm:"size:200;default:''" json:"destiny_description"`

	// Date of travel; deal listings only consider travels dated today or later.
	TravelDate time.Time `gorm:"not null;index" json:"travel_date"`

	// Largest weight bucket the traveler is willing to carry.
	WeightCapacity WeightRange `gorm:"not null" json:"weight_capacity"`

	// Relationships
	Deals []Deal `gorm:"foreignKey:TravelID" json:"deals,omitempty"`
}
