package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

// Service answers the dashboard queries. Everything is shop-scoped and
// computed in the database; nothing here is hot enough to cache yet.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Summary struct {
	RevenueCents     int64 `json:"revenue_cents"`
	RefundedCents    int64 `json:"refunded_cents"`
	AppointmentCount int64 `json:"appointment_count"`
	NewClients       int64 `json:"new_clients"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ServiceRevenue struct {
	ServiceID    uint   `json:"service_id"`
	ServiceName  string `json:"service_name"`
	Appointments int64  `json:"appointments"`
	RevenueCents int64  `json:"revenue_cents"`
}

type BarberRevenue struct {
	BarberID     uint   `json:"barber_id"`
	BarberName   string `json:"barber_name"`
	Appointments int64  `json:"appointments"`
	RevenueCents int64  `json:"revenue_cents"`
}

func (s *Service) GetSummary(ctx context.Context, barbershopID uint, from, to time.Time) (*Summary, error) {
	var out Summary

	err := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("barbershop_id = ? AND status = 'succeeded'", barbershopID).
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Scan(&out.RevenueCents).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("barbershop_id = ? AND status = 'refunded'", barbershopID).
		Where("refunded_at >= ? AND refunded_at < ?", from, to).
		Scan(&out.RefundedCents).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("barbershop_id = ?", barbershopID).
		Where("start_time >= ? AND start_time < ?", from, to).
		Count(&out.AppointmentCount).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("barbershop_id = ?", barbershopID).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&out.NewClients).Error
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *Service) CountByStatus(ctx context.Context, barbershopID uint, from, to time.Time) ([]StatusCount, error) {
	var out []StatusCount
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("status, COUNT(*) AS count").
		Where("barbershop_id = ?", barbershopID).
		Where("start_time >= ? AND start_time < ?", from, to).
		Group("status").
		Order("count DESC").
		Scan(&out).Error
	if out == nil {
		out = []StatusCount{}
	}
	return out, err
}

func (s *Service) TopServices(ctx context.Context, barbershopID uint, from, to time.Time, limit int) ([]ServiceRevenue, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var out []ServiceRevenue
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select(`appointments.service_id,
			services.name AS service_name,
			COUNT(*) AS appointments,
			COALESCE(SUM(appointments.price_cents), 0) AS revenue_cents`).
		Joins("JOIN services ON services.id = appointments.service_id").
		Where("appointments.barbershop_id = ?", barbershopID).
		Where("appointments.status IN ('scheduled', 'completed')").
		Where("appointments.start_time >= ? AND appointments.start_time < ?", from, to).
		Group("appointments.service_id, services.name").
		Order("revenue_cents DESC").
		Limit(limit).
		Scan(&out).Error
	if out == nil {
		out = []ServiceRevenue{}
	}
	return out, err
}

func (s *Service) RevenueByBarber(ctx context.Context, barbershopID uint, from, to time.Time) ([]BarberRevenue, error) {
	var out []BarberRevenue
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select(`appointments.barber_id,
			users.name AS barber_name,
			COUNT(*) AS appointments,
			COALESCE(SUM(appointments.price_cents), 0) AS revenue_cents`).
		Joins("JOIN users ON users.id = appointments.barber_id").
		Where("appointments.barbershop_id = ?", barbershopID).
		Where("appointments.status = 'completed'").
		Where("appointments.start_time >= ? AND appointments.start_time < ?", from, to).
		Group("appointments.barber_id, users.name").
		Order("revenue_cents DESC").
		Scan(&out).Error
	if out == nil {
		out = []BarberRevenue{}
	}
	return out, err
}
