package appointment

import (
	"context"
	"time"

	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/timezone"
)

type GetAvailability struct {
	repo domain.Repository
}

func NewGetAvailability(repo domain.Repository) *GetAvailability {
	return &GetAvailability{repo: repo}
}

func (uc *GetAvailability) Execute(
	ctx context.Context,
	in domain.AvailabilityInput,
) ([]domain.Slot, error) {

	shop, err := uc.repo.GetBarbershopByID(ctx, in.BarbershopID)
	if err != nil {
		return nil, err
	}

	svc, err := uc.repo.GetService(ctx, in.BarbershopID, in.ServiceID)
	if err != nil {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	settings, err := uc.repo.GetBookingSettings(ctx, in.BarbershopID)
	if err != nil {
		settings = &models.BookingSettings{BarbershopID: in.BarbershopID}
	}

	wh, err := uc.repo.GetWorkingHours(ctx, in.BarberID, int(in.Date.Weekday()))
	if err != nil || !wh.Active {
		return []domain.Slot{}, nil
	}

	// callers hand in a date parsed in whatever location; the grid must be
	// anchored to midnight in the shop timezone or every slot shifts by the
	// UTC offset
	loc := timezone.Location(shop.Timezone)
	day := time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, loc)
	dayEnd := day.AddDate(0, 0, 1)

	appointments, err := uc.repo.ListAppointmentsForDay(ctx, in.BarberID, day, dayEnd)
	if err != nil {
		return nil, err
	}

	blocks, err := uc.repo.ListUnavailablePeriods(ctx, in.BarberID, day, dayEnd)
	if err != nil {
		return nil, err
	}

	return domain.SlotGrid(domain.SlotGridInput{
		Day:          day,
		Hours:        wh,
		Settings:     settings,
		ServiceMin:   svc.DurationMin,
		Appointments: appointments,
		Blocks:       blocks,
		Now:          timezone.NowIn(shop.Timezone),
	}), nil
}
