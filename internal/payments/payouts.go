package payments

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

// PayoutService moves a barber's commission for a period to their connect
// account. Requires the shop's stripe_connect integration to be onboarded.
type PayoutService struct {
	db      *gorm.DB
	connect ConnectProvider
}

func NewPayoutService(db *gorm.DB, connect ConnectProvider) *PayoutService {
	return &PayoutService{db: db, connect: connect}
}

func (s *PayoutService) Create(
	ctx context.Context,
	barbershopID uint,
	barberID uint,
	periodStart time.Time,
	periodEnd time.Time,
) (*models.Payout, error) {

	if s.connect == nil {
		return nil, ErrProviderUnavailable
	}

	var barber models.User
	if err := s.db.WithContext(ctx).
		Where("id = ? AND barbershop_id = ?", barberID, barbershopID).
		First(&barber).Error; err != nil {
		return nil, httperr.ErrBusiness("barber_not_found")
	}

	var integ models.Integration
	if err := s.db.WithContext(ctx).
		Where("barbershop_id = ? AND provider = 'stripe_connect' AND active = ?", barbershopID, true).
		First(&integ).Error; err != nil || integ.ExternalAccountID == "" {
		return nil, httperr.ErrBusiness("connect_not_onboarded")
	}

	var shop models.Barbershop
	if err := s.db.WithContext(ctx).First(&shop, barbershopID).Error; err != nil {
		return nil, err
	}

	// total of succeeded payments on the barber's appointments in the period
	var totalCents int64
	err := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(payments.amount_cents), 0)").
		Joins("JOIN appointments ON appointments.id = payments.appointment_id").
		Where("payments.barbershop_id = ? AND payments.status = 'succeeded'", barbershopID).
		Where("appointments.barber_id = ?", barberID).
		Where("payments.paid_at >= ? AND payments.paid_at < ?", periodStart, periodEnd).
		Scan(&totalCents).Error
	if err != nil {
		return nil, err
	}

	amount := int64(math.Round(float64(totalCents) * barber.CommissionRate))
	if amount <= 0 {
		return nil, httperr.ErrBusiness("nothing_to_pay_out")
	}

	transferID, err := s.connect.Transfer(ctx, integ.ExternalAccountID, amount, shop.Currency)
	if err != nil {
		return nil, err
	}

	payout := &models.Payout{
		BarbershopID: barbershopID,
		BarberID:     barberID,
		AmountCents:  amount,
		Currency:     shop.Currency,
		Provider:     "stripe",
		TransferID:   transferID,
		Status:       "paid",
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
	}

	if err := s.db.WithContext(ctx).Create(payout).Error; err != nil {
		return nil, err
	}

	return payout, nil
}

func (s *PayoutService) List(
	ctx context.Context,
	barbershopID uint,
) ([]models.Payout, error) {

	var out []models.Payout
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ?", barbershopID).
		Order("created_at DESC").
		Limit(100).
		Find(&out).Error
	return out, err
}
