package models

import (
	"time"
)

// DealStatus enum. The numeric values are part of the wire contract and of
// stored rows; status 4 is written by the package-deletion cascade.
type DealStatus int

const (
	DealStatusProposed       DealStatus = 1
	DealStatusNegotiating    DealStatus = 2
	DealStatusRejected       DealStatus = 3
	DealStatusPackageDeleted DealStatus = 4
	DealStatusExpired        DealStatus = 5
)

// TerminalDealStatuses are excluded from deal listings.
var TerminalDealStatuses = []DealStatus{
	DealStatusRejected,
	DealStatusPackageDeleted,
	DealStatusExpired,
}

// Terminal reports whether the status is one a deal cannot leave through
// normal negotiation (re-proposing an existing pair still resets it to 1).
func (s DealStatus) Terminal() bool {
	for _, t := range TerminalDealStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// Deal is a proposed pairing between a Package and a Travel. At most one
// Deal exists per (package, travel) pair, enforced by a unique index.
type Deal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PackageID uint    `gorm:"not null;uniqueIndex:idx_deals_package_travel" json:"package_id"`
	Package   Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	TravelID  uint    `gorm:"not null;uniqueIndex:idx_deals_package_travel" json:"travel_id"`
	Travel    Travel  `gorm:"foreignKey:TravelID" json:"travel,omitempty"`

	// UserID is the side that last proposed the deal.
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status DealStatus `gorm:"not null;default:1;index" json:"status"`

	DoneDeal *DoneDeal `gorm:"foreignKey:DealID" json:"done_deal,omitempty"`
}
