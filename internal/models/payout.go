package models

import "time"

type Payout struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarbershopID uint `gorm:"index" json:"barbershop_id"`
	BarberID     uint `gorm:"index" json:"barber_id"`

	AmountCents int64  `json:"amount_cents"`
	Currency    string `gorm:"size:3" json:"currency"`

	Provider   string `gorm:"size:20" json:"provider"`
	TransferID string `gorm:"size:100" json:"transfer_id"`
	Status     string `gorm:"size:20;default:'pending'" json:"status"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
