package models

import "time"

// Persisted inbound provider callback, kept for audit and idempotency.
// (provider, event_id) is unique: the first insert wins, duplicates are
// acknowledged without reprocessing.
type WebhookEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Provider string `gorm:"size:20;uniqueIndex:idx_webhook_provider_event" json:"provider"`
	EventID  string `gorm:"size:100;uniqueIndex:idx_webhook_provider_event" json:"event_id"`

	EventType string `gorm:"size:50" json:"event_type"`
	Payload   string `gorm:"type:text" json:"-"`

	ProcessedAt *time.Time `json:"processed_at"`
	Error       string     `gorm:"size:255" json:"error"`

	CreatedAt time.Time `json:"created_at"`
}
