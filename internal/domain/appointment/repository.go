package appointment

import (
	"context"
	"time"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type Repository interface {
	// -------- Barbershop --------
	GetBarbershopByID(
		ctx context.Context,
		id uint,
	) (*models.Barbershop, error)

	GetBarbershopBySlug(
		ctx context.Context,
		slug string,
	) (*models.Barbershop, error)

	GetBookingSettings(
		ctx context.Context,
		barbershopID uint,
	) (*models.BookingSettings, error)

	// -------- Service --------
	GetService(
		ctx context.Context,
		barbershopID uint,
		serviceID uint,
	) (*models.Service, error)

	// -------- Client --------
	GetOrCreateClient(
		ctx context.Context,
		barbershopID uint,
		name string,
		phone string,
		email string,
	) (*models.Client, error)

	// -------- Appointment (create / conflict) --------

	// CreateAppointmentChecked creates inside a transaction that re-checks
	// for overlapping scheduled appointments with a row lock. Returns the
	// "time_conflict" business error when the window is taken.
	CreateAppointmentChecked(
		ctx context.Context,
		ap *models.Appointment,
	) error

	// UpdateAppointmentChecked saves a moved appointment with the same
	// locked conflict re-check, ignoring the appointment's own row.
	UpdateAppointmentChecked(
		ctx context.Context,
		ap *models.Appointment,
	) error

	// -------- Appointment (state change) --------
	GetAppointmentForBarber(
		ctx context.Context,
		appointmentID uint,
		barberID uint,
	) (*models.Appointment, error)

	GetAppointmentByPublicToken(
		ctx context.Context,
		token string,
	) (*models.Appointment, error)

	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	// -------- Availability --------
	GetWorkingHours(
		ctx context.Context,
		barberID uint,
		weekday int,
	) (*models.WorkingHours, error)

	ListAppointmentsForDay(
		ctx context.Context,
		barberID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)

	ListUnavailablePeriods(
		ctx context.Context,
		barberID uint,
		start time.Time,
		end time.Time,
	) ([]models.UnavailablePeriod, error)

	IsWithinWorkingHours(
		ctx context.Context,
		barberID uint,
		start time.Time,
		end time.Time,
	) (bool, error)

	ListAppointmentsForPeriod(
		ctx context.Context,
		barberID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)

	// -------- Reminders --------
	CreateReminders(
		ctx context.Context,
		reminders []models.ReminderSchedule,
	) error

	DeletePendingReminders(
		ctx context.Context,
		appointmentID uint,
	) error
}
