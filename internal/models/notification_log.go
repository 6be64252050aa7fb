package models

import "time"

type NotificationLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarbershopID uint  `gorm:"index" json:"barbershop_id"`
	ClientID     *uint `json:"client_id"`

	Channel   string `gorm:"size:10" json:"channel"`
	Recipient string `gorm:"size:100" json:"recipient"`
	Kind      string `gorm:"size:30" json:"kind"`

	Status string `gorm:"size:20" json:"status"`
	Error  string `gorm:"size:255" json:"error"`

	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}
