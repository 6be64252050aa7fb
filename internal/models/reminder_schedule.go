package models

import "time"

type ReminderSchedule struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID uint        `gorm:"index" json:"appointment_id"`
	Appointment   Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Channel string    `gorm:"size:10;not null" json:"channel"`
	SendAt  time.Time `gorm:"index" json:"send_at"`

	Status   string     `gorm:"size:20;default:'pending'" json:"status"`
	Attempts int        `json:"attempts"`
	SentAt   *time.Time `json:"sent_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
