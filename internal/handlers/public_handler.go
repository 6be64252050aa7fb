package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	domain "github.com/bookedbarber/bookedbarber-api/internal/domain/appointment"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/integrations"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/timezone"
	"github.com/bookedbarber/bookedbarber-api/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

// PublicHandler serves the client-facing booking surface: no auth, scoped by
// the shop slug, mutations only through the appointment use cases.
type PublicHandler struct {
	db       *gorm.DB
	repo     domain.Repository
	createUC *appointment.CreateAppointment
	availUC  *appointment.GetAvailability
	audit    *audit.Dispatcher
	cache    *cache.Cache
	calendar *integrations.CalendarSync
}

func NewPublicHandler(
	db *gorm.DB,
	repo domain.Repository,
	createUC *appointment.CreateAppointment,
	availUC *appointment.GetAvailability,
	auditDispatcher *audit.Dispatcher,
	c *cache.Cache,
	calendar *integrations.CalendarSync,
) *PublicHandler {
	return &PublicHandler{
		db:       db,
		repo:     repo,
		createUC: createUC,
		availUC:  availUC,
		audit:    auditDispatcher,
		cache:    c,
		calendar: calendar,
	}
}

// ======================================================
// DTOs
// ======================================================

type PublicCreateAppointmentRequest struct {
	ClientName  string `json:"client_name" binding:"required"`
	ClientPhone string `json:"client_phone" binding:"required"`
	ClientEmail string `json:"client_email"`
	BarberID    uint   `json:"barber_id"`
	ServiceID   uint   `json:"service_id" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Time        string `json:"time" binding:"required"` // HH:mm
	Notes       string `json:"notes"`
}

// ======================================================
// SHOP PAGE DATA
// ======================================================

func (h *PublicHandler) ListServices(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

	var services []models.Service
	if err := h.db.
		Where("barbershop_id = ? AND active = true", shop.ID).
		Order("id ASC").
		Find(&services).Error; err != nil {
		httperr.Internal(c, "failed_to_list_services", "Could not list services.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"barbershop": shopPayload(shop),
		"services":   services,
	})
}

func (h *PublicHandler) ListBarbers(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

	var barbers []models.User
	if err := h.db.
		Select("id", "name", "avatar_url", "role").
		Where("barbershop_id = ? AND active = ?", shop.ID, true).
		Order("id ASC").
		Find(&barbers).Error; err != nil {
		httperr.Internal(c, "failed_to_list_barbers", "Could not list barbers.")
		return
	}

	out := make([]gin.H, 0, len(barbers))
	for _, b := range barbers {
		out = append(out, gin.H{
			"id":         b.ID,
			"name":       b.Name,
			"avatar_url": b.AvatarURL,
		})
	}

	c.JSON(http.StatusOK, out)
}

// ======================================================
// AVAILABILITY
// ======================================================

func (h *PublicHandler) Availability(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

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

	barberID, ok := h.resolveBarber(c, shop)
	if !ok {
		return
	}

	date, err := time.ParseInLocation(
		"2006-01-02",
		dateStr,
		timezone.Location(shop.Timezone),
	)
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
		BarbershopID: shop.ID,
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
// CREATE BOOKING
// ======================================================

func (h *PublicHandler) CreateAppointment(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

	var req PublicCreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	barberID := req.BarberID
	if barberID != 0 {
		var count int64
		h.db.Model(&models.User{}).
			Where("id = ? AND barbershop_id = ? AND active = ?", barberID, shop.ID, true).
			Count(&count)
		if count == 0 {
			httperr.BadRequest(c, "barber_not_found", "Barber not found.")
			return
		}
	} else {
		var resolved bool
		barberID, resolved = h.ownerBarber(c, shop)
		if !resolved {
			return
		}
	}

	ap, err := h.createUC.Execute(c.Request.Context(), appointment.CreateAppointmentInput{
		BarbershopID: shop.ID,
		BarberID:     barberID,
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		ClientEmail:  req.ClientEmail,
		ServiceID:    req.ServiceID,
		Date:         req.Date,
		Time:         req.Time,
		Notes:        req.Notes,
	})
	if err != nil {
		mapBusinessError(c, err, "failed_to_create_appointment", "Could not create the booking.")
		return
	}

	h.cache.BumpAvailability(c.Request.Context(), barberID)
	h.calendar.PushAppointment(c.Request.Context(), ap)

	c.JSON(http.StatusCreated, gin.H{
		"appointment":  ap,
		"public_token": ap.PublicToken,
	})
}

// ======================================================
// MANAGE BY TOKEN
// ======================================================

func (h *PublicHandler) GetAppointment(c *gin.Context) {
	ap, err := h.repo.GetAppointmentByPublicToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		httperr.NotFound(c, "appointment_not_found", "Booking not found.")
		return
	}

	c.JSON(http.StatusOK, ap)
}

func (h *PublicHandler) CancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()

	ap, err := h.repo.GetAppointmentByPublicToken(ctx, c.Param("token"))
	if err != nil {
		httperr.NotFound(c, "appointment_not_found", "Booking not found.")
		return
	}

	shop, err := h.repo.GetBarbershopByID(ctx, ap.BarbershopID)
	if err != nil {
		httperr.Internal(c, "barbershop_not_found", "Could not cancel the booking.")
		return
	}

	now := timezone.NowIn(shop.Timezone)
	if err := domain.Cancel(ap, now); err != nil {
		mapBusinessError(c, err, "failed_to_cancel", "Could not cancel the booking.")
		return
	}

	if err := h.repo.UpdateAppointment(ctx, ap); err != nil {
		httperr.Internal(c, "failed_to_cancel", "Could not cancel the booking.")
		return
	}

	_ = h.repo.DeletePendingReminders(ctx, ap.ID)

	h.audit.Dispatch(audit.Event{
		BarbershopID: ap.BarbershopID,
		Action:       "appointment_cancelled_by_client",
		Entity:       "appointment",
		EntityID:     &ap.ID,
	})

	h.cache.BumpAvailability(ctx, ap.BarberID)
	h.calendar.RemoveAppointment(ctx, ap)

	c.JSON(http.StatusOK, ap)
}

// ======================================================
// HELPERS
// ======================================================

func (h *PublicHandler) shopBySlug(c *gin.Context) (*models.Barbershop, bool) {
	shop, err := h.repo.GetBarbershopBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.NotFound(c, "barbershop_not_found", "Barbershop not found.")
		return nil, false
	}
	return shop, true
}

func (h *PublicHandler) resolveBarber(c *gin.Context, shop *models.Barbershop) (uint, bool) {
	if barberIDStr := c.Query("barber_id"); barberIDStr != "" {
		barberID, err := strconv.ParseUint(barberIDStr, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_barber_id", "Invalid barber.")
			return 0, false
		}

		var count int64
		h.db.Model(&models.User{}).
			Where("id = ? AND barbershop_id = ? AND active = ?", barberID, shop.ID, true).
			Count(&count)
		if count == 0 {
			httperr.BadRequest(c, "barber_not_found", "Barber not found.")
			return 0, false
		}
		return uint(barberID), true
	}

	return h.ownerBarber(c, shop)
}

// ownerBarber is the single-chair default: bookings land on the owner when
// no barber was picked.
func (h *PublicHandler) ownerBarber(c *gin.Context, shop *models.Barbershop) (uint, bool) {
	var owner models.User
	if err := h.db.
		Where("barbershop_id = ? AND role = ?", shop.ID, "owner").
		First(&owner).Error; err != nil {
		httperr.BadRequest(c, "barber_not_found", "Barber not found.")
		return 0, false
	}
	return owner.ID, true
}
