package models

import "time"

type MarketingCampaign struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarbershopID uint `gorm:"index" json:"barbershop_id"`

	Name    string `gorm:"size:100;not null" json:"name"`
	Channel string `gorm:"size:10;default:'email'" json:"channel"`
	Subject string `gorm:"size:150" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`

	Status      string     `gorm:"size:20;default:'draft'" json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	SentCount   int        `json:"sent_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
