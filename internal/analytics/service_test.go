package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

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

type seed struct {
	shop    models.Barbershop
	barber  models.User
	haircut models.Service
	beard   models.Service
	client  models.Client
}

func seedAnalytics(t *testing.T, db *gorm.DB) seed {
	t.Helper()

	var s seed

	s.shop = models.Barbershop{Name: "Fade Factory", Slug: "fade-factory", Currency: "usd"}
	assert.NoError(t, db.Create(&s.shop).Error)

	s.barber = models.User{
		BarbershopID: s.shop.ID,
		Name:         "Marcus",
		Email:        "marcus@test.test",
		PasswordHash: "x",
		Role:         "owner",
		Active:       true,
	}
	assert.NoError(t, db.Create(&s.barber).Error)

	s.haircut = models.Service{BarbershopID: s.shop.ID, Name: "Haircut", DurationMin: 30, PriceCents: 3500, Active: true}
	s.beard = models.Service{BarbershopID: s.shop.ID, Name: "Beard trim", DurationMin: 15, PriceCents: 1500, Active: true}
	assert.NoError(t, db.Create(&s.haircut).Error)
	assert.NoError(t, db.Create(&s.beard).Error)

	s.client = models.Client{BarbershopID: s.shop.ID, Name: "Joe", Phone: "+15550001111"}
	assert.NoError(t, db.Create(&s.client).Error)

	return s
}

func (s seed) appointment(t *testing.T, db *gorm.DB, svc models.Service, status string, start time.Time) models.Appointment {
	t.Helper()

	ap := models.Appointment{
		BarbershopID: s.shop.ID,
		BarberID:     s.barber.ID,
		ClientID:     s.client.ID,
		ServiceID:    svc.ID,
		StartTime:    start,
		EndTime:      start.Add(time.Duration(svc.DurationMin) * time.Minute),
		Status:       status,
		PriceCents:   svc.PriceCents,
	}
	assert.NoError(t, db.Create(&ap).Error)
	return ap
}

func window() (time.Time, time.Time) {
	to := time.Now().UTC()
	return to.AddDate(0, 0, -30), to
}

func TestGetSummary(t *testing.T) {
	db := testDB(t)
	s := seedAnalytics(t, db)
	from, to := window()

	inWindow := time.Now().UTC().AddDate(0, 0, -5)
	outOfWindow := time.Now().UTC().AddDate(0, 0, -60)

	ap1 := s.appointment(t, db, s.haircut, "completed", inWindow)
	s.appointment(t, db, s.beard, "completed", outOfWindow)

	paid := inWindow.Add(time.Hour)
	refunded := inWindow.Add(2 * time.Hour)
	for i, p := range []models.Payment{
		{BarbershopID: s.shop.ID, AppointmentID: ap1.ID, Provider: "stripe", AmountCents: 3500, Status: "succeeded", PaidAt: &paid},
		{BarbershopID: s.shop.ID, AppointmentID: ap1.ID, Provider: "stripe", AmountCents: 1000, Status: "refunded", RefundedAt: &refunded},
		{BarbershopID: s.shop.ID, AppointmentID: ap1.ID, Provider: "stripe", AmountCents: 9999, Status: "failed"},
	} {
		p.ProviderIntentID = fmt.Sprintf("pi_%d", i)
		assert.NoError(t, db.Create(&p).Error)
	}

	got, err := NewService(db).GetSummary(context.Background(), s.shop.ID, from, to)

	assert.NoError(t, err)
	assert.Equal(t, int64(3500), got.RevenueCents)
	assert.Equal(t, int64(1000), got.RefundedCents)
	assert.Equal(t, int64(1), got.AppointmentCount)
	assert.Equal(t, int64(1), got.NewClients)
}

func TestCountByStatus(t *testing.T) {
	db := testDB(t)
	s := seedAnalytics(t, db)
	from, to := window()

	start := time.Now().UTC().AddDate(0, 0, -3)
	s.appointment(t, db, s.haircut, "completed", start)
	s.appointment(t, db, s.haircut, "completed", start.Add(time.Hour))
	s.appointment(t, db, s.beard, "cancelled", start.Add(2*time.Hour))

	got, err := NewService(db).CountByStatus(context.Background(), s.shop.ID, from, to)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "completed", got[0].Status)
	assert.Equal(t, int64(2), got[0].Count)
}

func TestCountByStatus_EmptyWindow(t *testing.T) {
	db := testDB(t)
	s := seedAnalytics(t, db)
	from, to := window()

	got, err := NewService(db).CountByStatus(context.Background(), s.shop.ID, from, to)

	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTopServices(t *testing.T) {
	db := testDB(t)
	s := seedAnalytics(t, db)
	from, to := window()

	start := time.Now().UTC().AddDate(0, 0, -3)
	s.appointment(t, db, s.haircut, "completed", start)
	s.appointment(t, db, s.haircut, "scheduled", start.Add(time.Hour))
	s.appointment(t, db, s.beard, "completed", start.Add(2*time.Hour))
	// cancelled bookings don't count toward revenue
	s.appointment(t, db, s.beard, "cancelled", start.Add(3*time.Hour))

	got, err := NewService(db).TopServices(context.Background(), s.shop.ID, from, to, 10)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Haircut", got[0].ServiceName)
	assert.Equal(t, int64(7000), got[0].RevenueCents)
	assert.Equal(t, int64(2), got[0].Appointments)
	assert.Equal(t, "Beard trim", got[1].ServiceName)
	assert.Equal(t, int64(1500), got[1].RevenueCents)
}

func TestRevenueByBarber(t *testing.T) {
	db := testDB(t)
	s := seedAnalytics(t, db)
	from, to := window()

	start := time.Now().UTC().AddDate(0, 0, -3)
	s.appointment(t, db, s.haircut, "completed", start)
	// scheduled work isn't earned yet
	s.appointment(t, db, s.haircut, "scheduled", start.Add(time.Hour))

	got, err := NewService(db).RevenueByBarber(context.Background(), s.shop.ID, from, to)

	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Marcus", got[0].BarberName)
	assert.Equal(t, int64(3500), got[0].RevenueCents)
	assert.Equal(t, int64(1), got[0].Appointments)
}
