package models

import (
	"time"
)

// Capability enum
type Capability string

const (
	CapabilityChange Capability = "change"
	CapabilityDelete Capability = "delete"
)

// PermissionGrant is an instance-scoped capability held by a user over one
// entity. The composite unique index makes re-granting a no-op.
type PermissionGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint `gorm:"not null;uniqueIndex:idx_grants_cap_user_resource" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Capability   Capability `gorm:"not null;uniqueIndex:idx_grants_cap_user_resource" json:"capability"`
	ResourceType string     `gorm:"not null;uniqueIndex:idx_grants_cap_user_resource" json:"resource_type"`
	ResourceID   uint       `gorm:"not null;uniqueIndex:idx_grants_cap_user_resource" json:"resource_id"`
}
