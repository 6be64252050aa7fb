package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type Service struct {
	db       *gorm.DB
	provider Provider
	cache    *cache.Cache
}

func NewService(db *gorm.DB, provider Provider, c *cache.Cache) *Service {
	return &Service{
		db:       db,
		provider: provider,
		cache:    c,
	}
}

func (s *Service) Provider() Provider { return s.provider }

// CreateForAppointment opens a charge for the appointment's snapshot price
// and persists the pending payment row.
func (s *Service) CreateForAppointment(
	ctx context.Context,
	barbershopID uint,
	appointmentID uint,
) (*models.Payment, error) {

	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	var ap models.Appointment
	if err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Service").
		Where("id = ? AND barbershop_id = ?", appointmentID, barbershopID).
		First(&ap).Error; err != nil {
		return nil, httperr.ErrBusiness("appointment_not_found")
	}

	if ap.Status == "cancelled" {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	var existing models.Payment
	err := s.db.WithContext(ctx).
		Where("appointment_id = ? AND status IN ('pending', 'succeeded')", ap.ID).
		First(&existing).Error
	if err == nil {
		return nil, httperr.ErrBusiness("payment_already_exists")
	}

	var shop models.Barbershop
	if err := s.db.WithContext(ctx).First(&shop, barbershopID).Error; err != nil {
		return nil, err
	}

	charge, err := s.provider.CreateCharge(ctx, ChargeInput{
		AmountCents:   ap.PriceCents,
		Currency:      shop.Currency,
		Description:   fmt.Sprintf("%s — %s", shop.Name, ap.Service.Name),
		CustomerEmail: ap.Client.Email,
		Metadata: map[string]string{
			"appointment_id": fmt.Sprintf("%d", ap.ID),
			"barbershop_id":  fmt.Sprintf("%d", barbershopID),
		},
	})
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		BarbershopID:     barbershopID,
		AppointmentID:    ap.ID,
		Provider:         s.provider.Name(),
		ProviderIntentID: charge.ProviderID,
		AmountCents:      ap.PriceCents,
		Currency:         shop.Currency,
		Status:           "pending",
		ClientSecret:     charge.ClientSecret,
	}

	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *Service) Refund(
	ctx context.Context,
	barbershopID uint,
	paymentID uint,
) (*models.Payment, error) {

	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Where("id = ? AND barbershop_id = ?", paymentID, barbershopID).
		First(&payment).Error; err != nil {
		return nil, httperr.ErrBusiness("payment_not_found")
	}

	if payment.Status != "succeeded" {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	refundID, err := s.provider.Refund(ctx, payment.ProviderIntentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment.Status = "refunded"
	payment.RefundID = refundID
	payment.RefundedAt = &now

	if err := s.db.WithContext(ctx).Save(&payment).Error; err != nil {
		return nil, err
	}

	return &payment, nil
}

func (s *Service) List(
	ctx context.Context,
	barbershopID uint,
) ([]models.Payment, error) {

	var out []models.Payment
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ?", barbershopID).
		Order("created_at DESC").
		Limit(200).
		Find(&out).Error
	return out, err
}

// ======================================================
// WEBHOOKS
// ======================================================

// HandleStripeEvent records the event and applies the status change. Events
// are idempotent: (provider, event_id) is unique and the first insert wins.
func (s *Service) HandleStripeEvent(ctx context.Context, event stripe.Event) error {

	if s.cache != nil {
		// fast path for provider retries; the DB unique index is the guarantee
		seen := false
		key := fmt.Sprintf("webhook:stripe:%s", event.ID)
		if ok, _ := s.cache.Get(ctx, key, &seen); ok {
			return nil
		}
	}

	raw, _ := json.Marshal(event)

	ev := models.WebhookEvent{
		Provider:  "stripe",
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   string(raw),
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ev)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// seen before; skip only if that attempt got all the way through,
		// otherwise this redelivery is our retry
		var existing models.WebhookEvent
		if err := s.db.WithContext(ctx).
			Where("provider = 'stripe' AND event_id = ?", event.ID).
			First(&existing).Error; err != nil {
			return err
		}
		if existing.ProcessedAt != nil {
			logger.L().Info("duplicate webhook event ignored",
				zap.String("event_id", event.ID))
			return nil
		}
		ev = existing
	}

	var procErr error

	switch event.Type {
	case "payment_intent.succeeded":
		procErr = s.applyIntentStatus(ctx, event, "succeeded", "")
	case "payment_intent.payment_failed":
		procErr = s.applyIntentStatus(ctx, event, "failed", failureReason(event))
	case "charge.refunded":
		procErr = s.applyChargeRefund(ctx, event)
	default:
		// recorded for audit, nothing to apply
	}

	// processed_at stays NULL on failure so the provider's redelivery gets
	// another shot at the status change
	if procErr != nil {
		ev.Error = procErr.Error()
		if err := s.db.WithContext(ctx).Save(&ev).Error; err != nil {
			return err
		}
		return procErr
	}

	now := time.Now().UTC()
	ev.ProcessedAt = &now
	ev.Error = ""
	if err := s.db.WithContext(ctx).Save(&ev).Error; err != nil {
		return err
	}

	if s.cache != nil {
		key := fmt.Sprintf("webhook:stripe:%s", event.ID)
		_ = s.cache.Set(ctx, key, true, 24*time.Hour)
	}

	return nil
}

func (s *Service) applyIntentStatus(
	ctx context.Context,
	event stripe.Event,
	status string,
	reason string,
) error {

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("unmarshal payment intent: %w", err)
	}

	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Where("provider = 'stripe' AND provider_intent_id = ?", pi.ID).
		First(&payment).Error; err != nil {
		return fmt.Errorf("payment for intent %s not found", pi.ID)
	}

	payment.Status = status
	payment.FailureReason = reason
	if status == "succeeded" {
		now := time.Now().UTC()
		payment.PaidAt = &now
	}

	return s.db.WithContext(ctx).Save(&payment).Error
}

func (s *Service) applyChargeRefund(ctx context.Context, event stripe.Event) error {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return fmt.Errorf("unmarshal charge: %w", err)
	}
	if ch.PaymentIntent == nil {
		return nil
	}

	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Where("provider = 'stripe' AND provider_intent_id = ?", ch.PaymentIntent.ID).
		First(&payment).Error; err != nil {
		return nil
	}

	if payment.Status == "refunded" {
		return nil
	}

	now := time.Now().UTC()
	payment.Status = "refunded"
	payment.RefundedAt = &now

	return s.db.WithContext(ctx).Save(&payment).Error
}

func failureReason(event stripe.Event) string {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return ""
	}
	if pi.LastPaymentError != nil {
		return pi.LastPaymentError.Msg
	}
	return ""
}
