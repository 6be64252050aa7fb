package models

import (
	"time"

	"gorm.io/gorm"
)

// Walk-in client, no login, scoped to one barbershop.
type Client struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	BarbershopID uint `gorm:"index" json:"barbershop_id"`

	Name  string `gorm:"size:100;not null" json:"name"`
	Phone string `gorm:"size:20" json:"phone"`
	Email string `gorm:"size:100" json:"email"`

	// No gorm default: a default tag would overwrite an explicit false on
	// insert. Creation paths set the opt-in themselves.
	MarketingOptIn bool `json:"marketing_opt_in"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
