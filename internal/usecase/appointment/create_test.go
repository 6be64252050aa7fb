package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/infra/repository"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type fixture struct {
	db     *gorm.DB
	repo   *repository.AppointmentGormRepository
	audit  *audit.Dispatcher
	shop   models.Barbershop
	barber models.User
	svc    models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, dbpkg.Migrate(db))

	f := &fixture{
		db:    db,
		repo:  repository.NewAppointmentGormRepository(db),
		audit: audit.NewDispatcher(audit.New(db)),
	}

	f.shop = models.Barbershop{Name: "Fade Factory", Slug: "fade-factory", Timezone: "UTC"}
	assert.NoError(t, db.Create(&f.shop).Error)

	f.barber = models.User{
		BarbershopID: f.shop.ID,
		Name:         "Marcus",
		Email:        "marcus@fadefactory.test",
		PasswordHash: "x",
		Role:         "owner",
		Active:       true,
	}
	assert.NoError(t, db.Create(&f.barber).Error)

	f.svc = models.Service{
		BarbershopID: f.shop.ID,
		Name:         "Haircut",
		DurationMin:  30,
		PriceCents:   3500,
		Active:       true,
	}
	assert.NoError(t, db.Create(&f.svc).Error)

	assert.NoError(t, db.Create(&models.BookingSettings{
		BarbershopID:       f.shop.ID,
		SlotDurationMin:    30,
		MinLeadMinutes:     120,
		MaxAdvanceDays:     30,
		ReminderOffsetsMin: "1440,120",
		SendConfirmation:   true,
	}).Error)

	for wd := 0; wd < 7; wd++ {
		assert.NoError(t, db.Create(&models.WorkingHours{
			BarberID:  f.barber.ID,
			Weekday:   wd,
			StartTime: "09:00",
			EndTime:   "17:00",
			Active:    true,
		}).Error)
	}

	return f
}

// bookable returns a date/time pair two days out, safely inside working
// hours, the lead window and the advance window.
func bookable() (string, string) {
	d := time.Now().UTC().AddDate(0, 0, 2)
	return d.Format("2006-01-02"), "10:00"
}

func (f *fixture) createInput() CreateAppointmentInput {
	date, hm := bookable()
	return CreateAppointmentInput{
		BarbershopID: f.shop.ID,
		BarberID:     f.barber.ID,
		ClientName:   "Joe",
		ClientPhone:  "+15550001111",
		ClientEmail:  "joe@example.test",
		ServiceID:    f.svc.ID,
		Date:         date,
		Time:         hm,
	}
}

func TestCreateAppointment_Success(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	ap, err := uc.Execute(context.Background(), f.createInput())

	assert.NoError(t, err)
	assert.Equal(t, "scheduled", ap.Status)
	assert.Equal(t, f.svc.PriceCents, ap.PriceCents)
	assert.NotEmpty(t, ap.PublicToken)
	assert.Equal(t, 30*time.Minute, ap.EndTime.Sub(ap.StartTime))

	var client models.Client
	assert.NoError(t, f.db.Where("phone = ?", "+15550001111").First(&client).Error)
	assert.Equal(t, client.ID, ap.ClientID)
	assert.True(t, client.MarketingOptIn, "walk-in clients start opted in")

	// two offsets, email and sms each
	var reminders []models.ReminderSchedule
	assert.NoError(t, f.db.Where("appointment_id = ?", ap.ID).Find(&reminders).Error)
	assert.Len(t, reminders, 4)
	for _, r := range reminders {
		assert.Equal(t, "pending", r.Status)
	}
}

func TestCreateAppointment_ReusesClientByPhone(t *testing.T) {
	f := newFixture(t)
	existing := models.Client{
		BarbershopID: f.shop.ID,
		Name:         "Joe",
		Phone:        "+15550001111",
	}
	assert.NoError(t, f.db.Create(&existing).Error)

	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	ap, err := uc.Execute(context.Background(), f.createInput())

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, ap.ClientID)

	var count int64
	f.db.Model(&models.Client{}).Where("phone = ?", "+15550001111").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateAppointment_TimeConflict(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	_, err := uc.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	in := f.createInput()
	in.ClientPhone = "+15550002222"
	_, err = uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "time_conflict"))
}

func TestCreateAppointment_OverlapIsConflict(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	_, err := uc.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	// 10:15 overlaps the 10:00-10:30 booking
	in := f.createInput()
	in.Time = "10:15"
	_, err = uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "time_conflict"))
}

func TestCreateAppointment_TooSoon(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	soon := time.Now().UTC().Add(30 * time.Minute)
	in := f.createInput()
	in.Date = soon.Format("2006-01-02")
	in.Time = soon.Format("15:04")

	_, err := uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "too_soon"))
}

func TestCreateAppointment_TooFarAhead(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	in := f.createInput()
	in.Date = time.Now().UTC().AddDate(0, 0, 60).Format("2006-01-02")

	_, err := uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "too_far_ahead"))
}

func TestCreateAppointment_OutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	in := f.createInput()
	in.Time = "08:00"

	_, err := uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "outside_working_hours"))
}

func TestCreateAppointment_ServiceNotFound(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	in := f.createInput()
	in.ServiceID = 9999

	_, err := uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "service_not_found"))
}

func TestCreateAppointment_BadDate(t *testing.T) {
	f := newFixture(t)
	uc := NewCreateAppointment(f.repo, f.audit, NopNotifier{})

	in := f.createInput()
	in.Date = "not-a-date"

	_, err := uc.Execute(context.Background(), in)

	assert.True(t, httperr.IsBusiness(err, "invalid_date_or_time"))
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	cancel := NewCancelAppointment(f.repo, f.audit, NopNotifier{})

	ap, err := create.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	got, err := cancel.Execute(context.Background(), f.shop.ID, f.barber.ID, ap.ID)

	assert.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
	assert.NotNil(t, got.CancelledAt)

	var pending int64
	f.db.Model(&models.ReminderSchedule{}).
		Where("appointment_id = ? AND status = 'pending'", ap.ID).
		Count(&pending)
	assert.Equal(t, int64(0), pending)

	// cancelling twice is a state error
	_, err = cancel.Execute(context.Background(), f.shop.ID, f.barber.ID, ap.ID)
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))
}

func TestCancelAppointment_NotFound(t *testing.T) {
	f := newFixture(t)
	cancel := NewCancelAppointment(f.repo, f.audit, NopNotifier{})

	_, err := cancel.Execute(context.Background(), f.shop.ID, f.barber.ID, 9999)

	assert.True(t, httperr.IsBusiness(err, "appointment_not_found"))
}

func TestCompleteAppointment(t *testing.T) {
	f := newFixture(t)
	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	complete := NewCompleteAppointment(f.repo, f.audit)

	ap, err := create.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	got, err := complete.Execute(context.Background(), f.shop.ID, f.barber.ID, ap.ID)

	assert.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = complete.Execute(context.Background(), f.shop.ID, f.barber.ID, ap.ID)
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))
}

func TestRescheduleAppointment(t *testing.T) {
	f := newFixture(t)
	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	move := NewRescheduleAppointment(f.repo, f.audit, NopNotifier{})

	ap, err := create.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	date, _ := bookable()
	got, err := move.Execute(context.Background(), RescheduleAppointmentInput{
		BarbershopID:  f.shop.ID,
		BarberID:      f.barber.ID,
		AppointmentID: ap.ID,
		Date:          date,
		Time:          "14:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, "14:00", got.StartTime.Format("15:04"))
	assert.Equal(t, 30*time.Minute, got.EndTime.Sub(got.StartTime))
}

func TestRescheduleAppointment_ConflictWithOther(t *testing.T) {
	f := newFixture(t)
	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	move := NewRescheduleAppointment(f.repo, f.audit, NopNotifier{})

	first, err := create.Execute(context.Background(), f.createInput())
	assert.NoError(t, err)

	second := f.createInput()
	second.Time = "11:00"
	second.ClientPhone = "+15550003333"
	other, err := create.Execute(context.Background(), second)
	assert.NoError(t, err)

	date, _ := bookable()
	_, err = move.Execute(context.Background(), RescheduleAppointmentInput{
		BarbershopID:  f.shop.ID,
		BarberID:      f.barber.ID,
		AppointmentID: other.ID,
		Date:          date,
		Time:          "10:00",
	})

	assert.True(t, httperr.IsBusiness(err, "time_conflict"))
	_ = first
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t)
	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	avail := NewGetAvailability(f.repo)

	in := f.createInput()
	_, err := create.Execute(context.Background(), in)
	assert.NoError(t, err)

	day, err := time.ParseInLocation("2006-01-02", in.Date, time.UTC)
	assert.NoError(t, err)

	slots, err := avail.Execute(context.Background(), domain.AvailabilityInput{
		BarbershopID: f.shop.ID,
		BarberID:     f.barber.ID,
		ServiceID:    f.svc.ID,
		Date:         day,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, slots)

	bookedSeen := false
	for _, s := range slots {
		if s.Start == "10:00" {
			bookedSeen = true
			assert.False(t, s.Available, "booked slot must not be offered")
		}
		if s.Start == "14:00" {
			assert.True(t, s.Available)
		}
	}
	assert.True(t, bookedSeen)
}

func TestGetAvailability_NonUTCShop(t *testing.T) {
	f := newFixture(t)

	// shop three hours behind UTC
	assert.NoError(t, f.db.Model(&f.shop).Update("timezone", "America/Sao_Paulo").Error)
	f.shop.Timezone = "America/Sao_Paulo"

	create := NewCreateAppointment(f.repo, f.audit, NopNotifier{})
	avail := NewGetAvailability(f.repo)

	in := f.createInput()
	_, err := create.Execute(context.Background(), in)
	assert.NoError(t, err)

	// the dashboard parses the query date in UTC; the grid must still be
	// anchored to the shop's day, so the booked local 10:00 stays taken
	day, err := time.Parse("2006-01-02", in.Date)
	assert.NoError(t, err)

	slots, err := avail.Execute(context.Background(), domain.AvailabilityInput{
		BarbershopID: f.shop.ID,
		BarberID:     f.barber.ID,
		ServiceID:    f.svc.ID,
		Date:         day,
	})
	assert.NoError(t, err)

	bookedSeen := false
	for _, s := range slots {
		if s.Start == "10:00" {
			bookedSeen = true
			assert.False(t, s.Available, "slot grid shifted out of the shop timezone")
		}
	}
	assert.True(t, bookedSeen)
}
