package appointment

import (
	"context"
	"time"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/timezone"
)

type RescheduleAppointmentInput struct {
	BarbershopID  uint
	BarberID      uint
	AppointmentID uint

	Date string
	Time string
}

type RescheduleAppointment struct {
	repo     domain.Repository
	audit    *audit.Dispatcher
	notifier Notifier
}

func NewRescheduleAppointment(
	repo domain.Repository,
	audit *audit.Dispatcher,
	notifier Notifier,
) *RescheduleAppointment {
	return &RescheduleAppointment{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
	}
}

func (uc *RescheduleAppointment) Execute(
	ctx context.Context,
	in RescheduleAppointmentInput,
) (*models.Appointment, error) {

	shop, err := uc.repo.GetBarbershopByID(ctx, in.BarbershopID)
	if err != nil {
		return nil, err
	}

	ap, err := uc.repo.GetAppointmentForBarber(ctx, in.AppointmentID, in.BarberID)
	if err != nil {
		return nil, httperr.ErrBusiness("appointment_not_found")
	}

	start, err := time.ParseInLocation(
		"2006-01-02 15:04",
		in.Date+" "+in.Time,
		timezone.Location(shop.Timezone),
	)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date_or_time")
	}

	settings, err := uc.repo.GetBookingSettings(ctx, in.BarbershopID)
	if err != nil {
		settings = &models.BookingSettings{BarbershopID: in.BarbershopID}
	}

	leadMin := settings.MinLeadMinutes
	if leadMin <= 0 {
		leadMin = 120
	}

	now := timezone.NowIn(shop.Timezone)
	if start.Before(now.Add(time.Duration(leadMin) * time.Minute)) {
		return nil, httperr.ErrBusiness("too_soon")
	}

	end := start.Add(ap.EndTime.Sub(ap.StartTime))

	ok, err := uc.repo.IsWithinWorkingHours(ctx, in.BarberID, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperr.ErrBusiness("outside_working_hours")
	}

	if err := domain.Reschedule(ap, start, end); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateAppointmentChecked(ctx, ap); err != nil {
		return nil, err
	}

	// old reminder times no longer apply
	_ = uc.repo.DeletePendingReminders(ctx, ap.ID)

	uc.audit.Dispatch(audit.Event{
		BarbershopID: in.BarbershopID,
		UserID:       &in.BarberID,
		Action:       "appointment_rescheduled",
		Entity:       "appointment",
		EntityID:     &ap.ID,
		Metadata: map[string]any{
			"start": start,
			"end":   end,
		},
	})

	uc.notifier.AppointmentEvent(ctx, "confirmation", ap.ID)

	return ap, nil
}
