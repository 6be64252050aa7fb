package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/integrations"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	createUC     *appointment.CreateAppointment
	completeUC   *appointment.CompleteAppointment
	cancelUC     *appointment.CancelAppointment
	rescheduleUC *appointment.RescheduleAppointment
	listDateUC   *appointment.ListAppointmentsByDate
	listMonthUC  *appointment.ListAppointmentsByMonth
	availUC      *appointment.GetAvailability

	cache    *cache.Cache
	calendar *integrations.CalendarSync
}

func NewAppointmentHandler(
	createUC *appointment.CreateAppointment,
	completeUC *appointment.CompleteAppointment,
	cancelUC *appointment.CancelAppointment,
	rescheduleUC *appointment.RescheduleAppointment,
	listDateUC *appointment.ListAppointmentsByDate,
	listMonthUC *appointment.ListAppointmentsByMonth,
	availUC *appointment.GetAvailability,
	c *cache.Cache,
	calendar *integrations.CalendarSync,
) *AppointmentHandler {
	return &AppointmentHandler{
		createUC:     createUC,
		completeUC:   completeUC,
		cancelUC:     cancelUC,
		rescheduleUC: rescheduleUC,
		listDateUC:   listDateUC,
		listMonthUC:  listMonthUC,
		availUC:      availUC,
		cache:        c,
		calendar:     calendar,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateAppointmentRequest struct {
	ClientName  string `json:"client_name" binding:"required"`
	ClientPhone string `json:"client_phone" binding:"required"`
	ClientEmail string `json:"client_email"`
	ServiceID   uint   `json:"service_id" binding:"required"`
	LocationID  *uint  `json:"location_id"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Time        string `json:"time" binding:"required"` // HH:mm
	Notes       string `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// ======================================================
// CREATE
// ======================================================

func (h *AppointmentHandler) Create(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	ap, err := h.createUC.Execute(c.Request.Context(), appointment.CreateAppointmentInput{
		BarbershopID: barbershopID,
		BarberID:     barberID,
		LocationID:   req.LocationID,
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		ClientEmail:  req.ClientEmail,
		ServiceID:    req.ServiceID,
		Date:         req.Date,
		Time:         req.Time,
		Notes:        req.Notes,
	})
	if err != nil {
		mapBusinessError(c, err, "failed_to_create_appointment", "Could not create the appointment.")
		return
	}

	h.cache.BumpAvailability(c.Request.Context(), barberID)
	h.calendar.PushAppointment(c.Request.Context(), ap)

	c.JSON(http.StatusCreated, ap)
}

// ======================================================
// LIST
// ======================================================

func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	dateStr := c.Query("date")
	if dateStr == "" {
		httperr.BadRequest(c, "missing_date", "Date is required.")
		return
	}

	aps, err := h.listDateUC.Execute(c.Request.Context(), barbershopID, barberID, dateStr)
	if err != nil {
		mapBusinessError(c, err, "failed_to_list_appointments", "Could not list appointments.")
		return
	}

	c.JSON(http.StatusOK, aps)
}

func (h *AppointmentHandler) ListByMonth(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		httperr.BadRequest(c, "invalid_year", "Year is required.")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		httperr.BadRequest(c, "invalid_month", "Month is required.")
		return
	}

	aps, err := h.listMonthUC.Execute(c.Request.Context(), barbershopID, barberID, year, month)
	if err != nil {
		mapBusinessError(c, err, "failed_to_list_appointments", "Could not list appointments.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":         year,
		"month":        month,
		"appointments": aps,
	})
}

// ======================================================
// AVAILABILITY
// ======================================================

func (h *AppointmentHandler) Availability(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	dateStr := c.Query("date")
	serviceIDStr := c.Query("service_id")
	if dateStr == "" || serviceIDStr == "" {
		httperr.BadRequest(c, "missing_params", "Date and service are required.")
		return
	}

	serviceID, err := strconv.ParseUint(serviceIDStr, 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_service_id", "Invalid service.")
		return
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Invalid date.")
		return
	}

	ctx := c.Request.Context()

	key := h.cache.AvailabilityKey(ctx, barberID, uint(serviceID), dateStr)
	var cached []domain.Slot
	if h.cache.GetAvailability(ctx, key, &cached) {
		c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": cached})
		return
	}

	slots, err := h.availUC.Execute(ctx, domain.AvailabilityInput{
		BarbershopID: barbershopID,
		BarberID:     barberID,
		ServiceID:    uint(serviceID),
		Date:         date,
	})
	if err != nil {
		mapBusinessError(c, err, "availability_failed", "Could not compute availability.")
		return
	}

	h.cache.SetAvailability(ctx, key, slots)

	c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": slots})
}

// ======================================================
// STATE CHANGES
// ======================================================

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	ap, err := h.cancelUC.Execute(c.Request.Context(), barbershopID, barberID, uint(id))
	if err != nil {
		mapBusinessError(c, err, "failed_to_cancel", "Could not cancel the appointment.")
		return
	}

	h.cache.BumpAvailability(c.Request.Context(), barberID)
	h.calendar.RemoveAppointment(c.Request.Context(), ap)

	c.JSON(http.StatusOK, ap)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	ap, err := h.completeUC.Execute(c.Request.Context(), barbershopID, barberID, uint(id))
	if err != nil {
		mapBusinessError(c, err, "failed_to_complete", "Could not complete the appointment.")
		return
	}

	c.JSON(http.StatusOK, ap)
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	barberID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	var req RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	ap, err := h.rescheduleUC.Execute(c.Request.Context(), appointment.RescheduleAppointmentInput{
		BarbershopID:  barbershopID,
		BarberID:      barberID,
		AppointmentID: uint(id),
		Date:          req.Date,
		Time:          req.Time,
	})
	if err != nil {
		mapBusinessError(c, err, "failed_to_reschedule", "Could not reschedule the appointment.")
		return
	}

	h.cache.BumpAvailability(c.Request.Context(), barberID)

	// drop the stale calendar event before mirroring the new time
	h.calendar.RemoveAppointment(c.Request.Context(), ap)
	h.calendar.PushAppointment(c.Request.Context(), ap)

	c.JSON(http.StatusOK, ap)
}
