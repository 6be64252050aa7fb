package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v78"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "stripe"
}

func (m *MockProvider) CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Charge), args.Error(1)
}

func (m *MockProvider) Refund(ctx context.Context, providerID string) (string, error) {
	args := m.Called(ctx, providerID)
	return args.String(0), args.Error(1)
}

type MockConnect struct {
	mock.Mock
}

func (m *MockConnect) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockConnect) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

func (m *MockConnect) Transfer(ctx context.Context, accountID string, amountCents int64, currency string) (string, error) {
	args := m.Called(ctx, accountID, amountCents, currency)
	return args.String(0), args.Error(1)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, dbpkg.Migrate(db))
	return db
}

func seedPayable(t *testing.T, db *gorm.DB) (models.Barbershop, models.Appointment) {
	t.Helper()

	shop := models.Barbershop{Name: "Fade Factory", Slug: "fade-factory", Currency: "usd"}
	assert.NoError(t, db.Create(&shop).Error)

	barber := models.User{
		BarbershopID: shop.ID,
		Name:         "Marcus",
		Email:        fmt.Sprintf("marcus-%d@test.test", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         "owner",
		Active:       true,
	}
	assert.NoError(t, db.Create(&barber).Error)

	svc := models.Service{BarbershopID: shop.ID, Name: "Haircut", DurationMin: 30, PriceCents: 3500, Active: true}
	assert.NoError(t, db.Create(&svc).Error)

	client := models.Client{BarbershopID: shop.ID, Name: "Joe", Phone: "+15550001111", Email: "joe@test.test"}
	assert.NoError(t, db.Create(&client).Error)

	ap := models.Appointment{
		BarbershopID: shop.ID,
		BarberID:     barber.ID,
		ClientID:     client.ID,
		ServiceID:    svc.ID,
		StartTime:    time.Now().Add(48 * time.Hour),
		EndTime:      time.Now().Add(48*time.Hour + 30*time.Minute),
		Status:       "scheduled",
		PriceCents:   3500,
	}
	assert.NoError(t, db.Create(&ap).Error)

	return shop, ap
}

func TestCreateForAppointment(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	provider := new(MockProvider)
	provider.On("CreateCharge", mock.Anything, mock.MatchedBy(func(in ChargeInput) bool {
		return in.AmountCents == 3500 && in.Currency == "usd"
	})).Return(&Charge{ProviderID: "pi_123", ClientSecret: "pi_123_secret"}, nil)

	svc := NewService(db, provider, nil)
	payment, err := svc.CreateForAppointment(context.Background(), shop.ID, ap.ID)

	assert.NoError(t, err)
	assert.Equal(t, "pending", payment.Status)
	assert.Equal(t, "pi_123", payment.ProviderIntentID)
	assert.Equal(t, "pi_123_secret", payment.ClientSecret)
	provider.AssertExpectations(t)
}

func TestCreateForAppointment_Duplicate(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	provider := new(MockProvider)
	provider.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&Charge{ProviderID: "pi_123", ClientSecret: "s"}, nil).Once()

	svc := NewService(db, provider, nil)

	_, err := svc.CreateForAppointment(context.Background(), shop.ID, ap.ID)
	assert.NoError(t, err)

	_, err = svc.CreateForAppointment(context.Background(), shop.ID, ap.ID)
	assert.True(t, httperr.IsBusiness(err, "payment_already_exists"))
}

func TestCreateForAppointment_CancelledAppointment(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)
	assert.NoError(t, db.Model(&ap).Update("status", "cancelled").Error)

	svc := NewService(db, new(MockProvider), nil)
	_, err := svc.CreateForAppointment(context.Background(), shop.ID, ap.ID)

	assert.True(t, httperr.IsBusiness(err, "invalid_state"))
}

func TestCreateForAppointment_NoProvider(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	svc := NewService(db, nil, nil)
	_, err := svc.CreateForAppointment(context.Background(), shop.ID, ap.ID)

	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestRefund(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	now := time.Now().UTC()
	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Currency:         "usd",
		Status:           "succeeded",
		PaidAt:           &now,
	}
	assert.NoError(t, db.Create(&payment).Error)

	provider := new(MockProvider)
	provider.On("Refund", mock.Anything, "pi_123").Return("re_123", nil)

	svc := NewService(db, provider, nil)
	got, err := svc.Refund(context.Background(), shop.ID, payment.ID)

	assert.NoError(t, err)
	assert.Equal(t, "refunded", got.Status)
	assert.Equal(t, "re_123", got.RefundID)
	assert.NotNil(t, got.RefundedAt)

	// only succeeded payments can be refunded
	_, err = svc.Refund(context.Background(), shop.ID, payment.ID)
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))
}

// ======================================================
// WEBHOOKS
// ======================================================

func intentEvent(id, eventType, intentID string) stripe.Event {
	raw, _ := json.Marshal(map[string]any{"id": intentID})
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleStripeEvent_Succeeded(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Status:           "pending",
	}
	assert.NoError(t, db.Create(&payment).Error)

	svc := NewService(db, new(MockProvider), nil)
	err := svc.HandleStripeEvent(context.Background(), intentEvent("evt_1", "payment_intent.succeeded", "pi_123"))
	assert.NoError(t, err)

	var got models.Payment
	assert.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, "succeeded", got.Status)
	assert.NotNil(t, got.PaidAt)
}

func TestHandleStripeEvent_Idempotent(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Status:           "pending",
	}
	assert.NoError(t, db.Create(&payment).Error)

	svc := NewService(db, new(MockProvider), nil)
	ev := intentEvent("evt_1", "payment_intent.succeeded", "pi_123")

	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	// flip the row back; a replayed event must not touch it again
	assert.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", "pending").Error)

	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	var got models.Payment
	assert.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, "pending", got.Status)

	var events int64
	db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_1").Count(&events)
	assert.Equal(t, int64(1), events)
}

func TestHandleStripeEvent_Failed(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Status:           "pending",
	}
	assert.NoError(t, db.Create(&payment).Error)

	raw, _ := json.Marshal(map[string]any{
		"id":                 "pi_123",
		"last_payment_error": map[string]any{"message": "card_declined"},
	})
	ev := stripe.Event{
		ID:   "evt_2",
		Type: "payment_intent.payment_failed",
		Data: &stripe.EventData{Raw: raw},
	}

	svc := NewService(db, new(MockProvider), nil)
	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	var got models.Payment
	assert.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "card_declined", got.FailureReason)
}

func TestHandleStripeEvent_ChargeRefund(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	now := time.Now().UTC()
	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Status:           "succeeded",
		PaidAt:           &now,
	}
	assert.NoError(t, db.Create(&payment).Error)

	raw, _ := json.Marshal(map[string]any{
		"id":             "ch_1",
		"payment_intent": map[string]any{"id": "pi_123"},
	})
	ev := stripe.Event{
		ID:   "evt_3",
		Type: "charge.refunded",
		Data: &stripe.EventData{Raw: raw},
	}

	svc := NewService(db, new(MockProvider), nil)
	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	var got models.Payment
	assert.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, "refunded", got.Status)
	assert.NotNil(t, got.RefundedAt)
}

func TestHandleStripeEvent_RedeliveryRetriesFailedProcessing(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	svc := NewService(db, new(MockProvider), nil)
	ev := intentEvent("evt_1", "payment_intent.succeeded", "pi_123")

	// no payment row yet: processing fails, the event stays unprocessed
	assert.Error(t, svc.HandleStripeEvent(context.Background(), ev))

	var stored models.WebhookEvent
	assert.NoError(t, db.Where("event_id = ?", "evt_1").First(&stored).Error)
	assert.Nil(t, stored.ProcessedAt)
	assert.NotEmpty(t, stored.Error)

	payment := models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Status:           "pending",
	}
	assert.NoError(t, db.Create(&payment).Error)

	// the provider redelivers; this time the status change lands
	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	var got models.Payment
	assert.NoError(t, db.First(&got, payment.ID).Error)
	assert.Equal(t, "succeeded", got.Status)

	assert.NoError(t, db.Where("event_id = ?", "evt_1").First(&stored).Error)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.Error)

	var events int64
	db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_1").Count(&events)
	assert.Equal(t, int64(1), events)
}

func TestHandleStripeEvent_UnknownTypeIsRecorded(t *testing.T) {
	db := testDB(t)

	svc := NewService(db, new(MockProvider), nil)
	ev := stripe.Event{
		ID:   "evt_9",
		Type: "customer.created",
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}

	assert.NoError(t, svc.HandleStripeEvent(context.Background(), ev))

	var got models.WebhookEvent
	assert.NoError(t, db.Where("event_id = ?", "evt_9").First(&got).Error)
	assert.NotNil(t, got.ProcessedAt)
	assert.Empty(t, got.Error)
}

// ======================================================
// PAYOUTS
// ======================================================

func TestPayoutCreate(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	assert.NoError(t, db.Create(&models.Integration{
		BarbershopID:      shop.ID,
		Provider:          "stripe_connect",
		ExternalAccountID: "acct_1",
		Active:            true,
	}).Error)

	paidAt := time.Now().UTC().Add(-24 * time.Hour)
	assert.NoError(t, db.Create(&models.Payment{
		BarbershopID:     shop.ID,
		AppointmentID:    ap.ID,
		Provider:         "stripe",
		ProviderIntentID: "pi_123",
		AmountCents:      3500,
		Currency:         "usd",
		Status:           "succeeded",
		PaidAt:           &paidAt,
	}).Error)

	connect := new(MockConnect)
	// default commission is 0.7
	connect.On("Transfer", mock.Anything, "acct_1", int64(2450), "usd").Return("tr_1", nil)

	svc := NewPayoutService(db, connect)
	start := time.Now().UTC().AddDate(0, 0, -7)
	end := time.Now().UTC()

	payout, err := svc.Create(context.Background(), shop.ID, ap.BarberID, start, end)

	assert.NoError(t, err)
	assert.Equal(t, int64(2450), payout.AmountCents)
	assert.Equal(t, "paid", payout.Status)
	assert.Equal(t, "tr_1", payout.TransferID)
	connect.AssertExpectations(t)
}

func TestPayoutCreate_NothingToPayOut(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	assert.NoError(t, db.Create(&models.Integration{
		BarbershopID:      shop.ID,
		Provider:          "stripe_connect",
		ExternalAccountID: "acct_1",
		Active:            true,
	}).Error)

	svc := NewPayoutService(db, new(MockConnect))
	start := time.Now().UTC().AddDate(0, 0, -7)

	_, err := svc.Create(context.Background(), shop.ID, ap.BarberID, start, time.Now().UTC())

	assert.True(t, httperr.IsBusiness(err, "nothing_to_pay_out"))
}

func TestPayoutCreate_NotOnboarded(t *testing.T) {
	db := testDB(t)
	shop, ap := seedPayable(t, db)

	svc := NewPayoutService(db, new(MockConnect))
	start := time.Now().UTC().AddDate(0, 0, -7)

	_, err := svc.Create(context.Background(), shop.ID, ap.BarberID, start, time.Now().UTC())

	assert.True(t, httperr.IsBusiness(err, "connect_not_onboarded"))
}
