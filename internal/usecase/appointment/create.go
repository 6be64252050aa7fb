package appointment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/timezone"
)

// Notifier is the hook into the notification pipeline. Implementations must
// never fail the booking: delivery problems are their own concern.
type Notifier interface {
	AppointmentEvent(ctx context.Context, kind string, appointmentID uint)
}

// NopNotifier is used where the queue is not wired (tests, one-off tools).
type NopNotifier struct{}

func (NopNotifier) AppointmentEvent(context.Context, string, uint) {}

// ======================================================
// INPUT
// ======================================================

type CreateAppointmentInput struct {
	BarbershopID uint
	BarberID     uint
	LocationID   *uint

	ClientName  string
	ClientPhone string
	ClientEmail string

	ServiceID uint

	Date  string
	Time  string
	Notes string
}

// ======================================================
// USE CASE
// ======================================================

type CreateAppointment struct {
	repo     domain.Repository
	audit    *audit.Dispatcher
	notifier Notifier
}

func NewCreateAppointment(
	repo domain.Repository,
	audit *audit.Dispatcher,
	notifier Notifier,
) *CreateAppointment {
	return &CreateAppointment{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
	}
}

func (uc *CreateAppointment) Execute(
	ctx context.Context,
	in CreateAppointmentInput,
) (*models.Appointment, error) {

	// --------------------------------------------------
	// 1. Barbershop + booking settings
	// --------------------------------------------------
	shop, err := uc.repo.GetBarbershopByID(ctx, in.BarbershopID)
	if err != nil {
		return nil, err
	}

	settings, err := uc.repo.GetBookingSettings(ctx, in.BarbershopID)
	if err != nil {
		settings = &models.BookingSettings{BarbershopID: in.BarbershopID}
	}

	// --------------------------------------------------
	// 2. Date / time in the shop timezone
	// --------------------------------------------------
	start, err := time.ParseInLocation(
		"2006-01-02 15:04",
		in.Date+" "+in.Time,
		timezone.Location(shop.Timezone),
	)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date_or_time")
	}

	// --------------------------------------------------
	// 3. Lead time and advance window
	// --------------------------------------------------
	leadMin := settings.MinLeadMinutes
	if leadMin <= 0 {
		leadMin = 120
	}
	advanceDays := settings.MaxAdvanceDays
	if advanceDays <= 0 {
		advanceDays = 30
	}

	now := timezone.NowIn(shop.Timezone)
	if start.Before(now.Add(time.Duration(leadMin) * time.Minute)) {
		return nil, httperr.ErrBusiness("too_soon")
	}
	if start.After(now.AddDate(0, 0, advanceDays)) {
		return nil, httperr.ErrBusiness("too_far_ahead")
	}

	// --------------------------------------------------
	// 4. Service
	// --------------------------------------------------
	svc, err := uc.repo.GetService(ctx, in.BarbershopID, in.ServiceID)
	if err != nil {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	end := start.Add(time.Duration(svc.DurationMin) * time.Minute)

	// --------------------------------------------------
	// 5. Working hours + unavailable periods
	// --------------------------------------------------
	ok, err := uc.repo.IsWithinWorkingHours(ctx, in.BarberID, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperr.ErrBusiness("outside_working_hours")
	}

	// --------------------------------------------------
	// 6. Client (get or create)
	// --------------------------------------------------
	client, err := uc.repo.GetOrCreateClient(
		ctx,
		in.BarbershopID,
		in.ClientName,
		in.ClientPhone,
		in.ClientEmail,
	)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 7. Create with locked conflict re-check
	// --------------------------------------------------
	ap := &models.Appointment{
		BarbershopID: in.BarbershopID,
		LocationID:   in.LocationID,
		BarberID:     in.BarberID,
		ClientID:     client.ID,
		ServiceID:    svc.ID,
		StartTime:    start,
		EndTime:      end,
		Status:       string(domain.InitialStatus()),
		PriceCents:   svc.PriceCents,
		PublicToken:  uuid.NewString(),
		Notes:        in.Notes,
	}

	if err := uc.repo.CreateAppointmentChecked(ctx, ap); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 8. Reminder schedule from settings offsets
	// --------------------------------------------------
	// a failed insert only means no reminders for this booking
	_ = uc.repo.CreateReminders(ctx, buildReminders(ap, client, settings, now))

	// --------------------------------------------------
	// 9. Audit + confirmation
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		BarbershopID: in.BarbershopID,
		UserID:       &in.BarberID,
		Action:       "appointment_created",
		Entity:       "appointment",
		EntityID:     &ap.ID,
	})

	if settings.SendConfirmation {
		uc.notifier.AppointmentEvent(ctx, "confirmation", ap.ID)
	}

	return ap, nil
}

// buildReminders expands "1440,120" style offsets into pending rows, one per
// reachable channel, dropping send times already in the past.
func buildReminders(
	ap *models.Appointment,
	client *models.Client,
	settings *models.BookingSettings,
	now time.Time,
) []models.ReminderSchedule {

	offsets := settings.ReminderOffsetsMin
	if offsets == "" {
		offsets = "1440,120"
	}

	var out []models.ReminderSchedule
	for _, part := range strings.Split(offsets, ",") {
		min, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || min <= 0 {
			continue
		}

		sendAt := ap.StartTime.Add(-time.Duration(min) * time.Minute)
		if sendAt.Before(now) {
			continue
		}

		if client.Email != "" {
			out = append(out, models.ReminderSchedule{
				AppointmentID: ap.ID,
				Channel:       "email",
				SendAt:        sendAt,
			})
		}
		if client.Phone != "" {
			out = append(out, models.ReminderSchedule{
				AppointmentID: ap.ID,
				Channel:       "sms",
				SendAt:        sendAt,
			})
		}
	}

	return out
}
