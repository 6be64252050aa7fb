package models

import "time"

type BookingSettings struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	BarbershopID uint `gorm:"uniqueIndex" json:"barbershop_id"`

	SlotDurationMin int `gorm:"default:30" json:"slot_duration_min"`
	MinLeadMinutes  int `gorm:"default:120" json:"min_lead_minutes"`
	MaxAdvanceDays  int `gorm:"default:30" json:"max_advance_days"`

	// Comma separated minutes-before-start offsets, e.g. "1440,120".
	ReminderOffsetsMin string `gorm:"size:100;default:'1440,120'" json:"reminder_offsets_min"`

	SendConfirmation bool `gorm:"default:true" json:"send_confirmation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
