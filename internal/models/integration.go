package models

import "time"

// Stored OAuth credential for a third-party service. One row per shop per
// provider ("google_calendar", "google_mybusiness", "stripe_connect").
type Integration struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarbershopID uint   `gorm:"uniqueIndex:idx_integration_shop_provider" json:"barbershop_id"`
	Provider     string `gorm:"size:30;uniqueIndex:idx_integration_shop_provider" json:"provider"`

	AccessToken  string    `gorm:"size:2048" json:"-"`
	RefreshToken string    `gorm:"size:2048" json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	Scopes       string    `gorm:"size:512" json:"scopes"`

	// Stripe Connect account id, or the Google account email.
	ExternalAccountID string `gorm:"size:100" json:"external_account_id"`
	// Target calendar for appointment sync.
	CalendarID string `gorm:"size:100" json:"calendar_id"`

	Active bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
