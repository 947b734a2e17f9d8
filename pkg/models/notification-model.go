package models

import (
	"time"
)

// NotificationStatus enum
type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "pending"
	NotificationStatusProcessing NotificationStatus = "processing"
	NotificationStatusSent       NotificationStatus = "sent"
	NotificationStatusFailed     NotificationStatus = "failed"
)

// Notification is one queued push message for one recipient. Rows are
// consumed asynchronously by the queue workers, at-least-once; senders never
// observe delivery results.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecipientID uint `gorm:"not null;index" json:"recipient_id"`
	Recipient   User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`

	Title string `gorm:"not null" json:"title"`
	Body  string `gorm:"type:text" json:"body"`
	Data  JSON   `gorm:"type:json" json:"data,omitempty"`

	// Queue metadata
	Status       NotificationStatus `gorm:"default:'pending';index" json:"status"`
	ScheduledFor time.Time          `gorm:"index" json:"scheduled_for"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`

	// Retry logic
	Attempts    int        `gorm:"default:0" json:"attempts"`
	MaxAttempts int        `gorm:"default:3" json:"max_attempts"`
	NextRetryAt *time.Time `gorm:"index" json:"next_retry_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
