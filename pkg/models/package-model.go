package models

import (
	"time"
)

// WeightRange enum, buckets by kg
type WeightRange int

const (
	Weight0To5   WeightRange = 1 // 0 a 5kg
	Weight6To10  WeightRange = 2 // 6 a 10kg
	Weight11To15 WeightRange = 3 // 11 a 15kg
	Weight16To20 WeightRange = 4 // 16 a 20kg
	WeightOver20 WeightRange = 5 // mais de 20kg
)

// Valid reports whether the weight range is one of the known buckets.
func (w WeightRange) Valid() bool {
	return w >= Weight0To5 && w <= WeightOver20
}

// Package represents a parcel a user wants delivered
type Package struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID uint `gorm:"not null;index" json:"owner_id"`
	Owner   User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Description        string      `gorm:"size:140;not null" json:"description"`
	WeightRange        WeightRange `gorm:"not null" json:"weight_range"`
	DestinyLat         float64     `json:"destiny_lat"`
	DestinyLng         float64     `json:"destiny_lng"`
	DestinyDescription string      `gorm:"size:200;default:''" json:"destiny_description"`
	ReceiverName       string      `gorm:"size:100" json:"receiver_name"`
	ReceiverPhone      string      `gorm:"size:15" json:"receiver_phone"`

	Closed bool `gorm:"default:false" json:"closed"`

	// Soft delete is a domain flag, not gorm's DeletedAt: deleted packages
	// stay queryable and DeletedAt is settled by the lifecycle hook so that
	// it is non-nil exactly while Deleted is true.
	Deleted   bool       `gorm:"default:false;index" json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Relationships
	Images []PackageImage `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Deals  []Deal         `gorm:"foreignKey:PackageID" json:"deals,omitempty"`

	// Computed on read, never stored. CountDeals is the number of open
	// proposals and drops to 0 once a done deal exists; HasDoneDeal reports
	// that committed state.
	CountDeals  int  `gorm:"-" json:"count_deals"`
	HasDoneDeal bool `gorm:"-" json:"has_donedeal"`
}
