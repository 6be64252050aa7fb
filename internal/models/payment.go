package models

import "time"

type Payment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarbershopID  uint `gorm:"index" json:"barbershop_id"`
	AppointmentID uint `gorm:"index" json:"appointment_id"`

	Provider         string `gorm:"size:20;not null" json:"provider"`
	ProviderIntentID string `gorm:"size:100;index" json:"provider_intent_id"`

	AmountCents int64  `json:"amount_cents"`
	Currency    string `gorm:"size:3" json:"currency"`

	Status string `gorm:"size:20;default:'pending'" json:"status"`

	RefundID      string `gorm:"size:100" json:"refund_id"`
	FailureReason string `gorm:"size:255" json:"failure_reason"`

	// Client-facing extras a provider may hand back (checkout URL, pix code).
	ClientSecret string `gorm:"size:255" json:"-"`

	PaidAt     *time.Time `json:"paid_at"`
	RefundedAt *time.Time `json:"refunded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
