package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type BarbershopHandler struct {
	db *gorm.DB
}

func NewBarbershopHandler(db *gorm.DB) *BarbershopHandler {
	return &BarbershopHandler{db: db}
}

// ======================================================
// SHOP PROFILE
// ======================================================

type UpdateBarbershopRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Timezone *string `json:"timezone"`
	Currency *string `json:"currency"`
}

func (h *BarbershopHandler) GetMeBarbershop(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var shop models.Barbershop
	if err := h.db.First(&shop, barbershopID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			httperr.NotFound(c, "barbershop_not_found", "Barbershop not found.")
			return
		}
		httperr.Internal(c, "failed_to_get_barbershop", "Could not load the barbershop.")
		return
	}

	c.JSON(http.StatusOK, shop)
}

func (h *BarbershopHandler) UpdateMeBarbershop(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var shop models.Barbershop
	if err := h.db.First(&shop, barbershopID).Error; err != nil {
		httperr.NotFound(c, "barbershop_not_found", "Barbershop not found.")
		return
	}

	var req UpdateBarbershopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	if req.Name != nil {
		shop.Name = *req.Name
	}
	if req.Phone != nil {
		shop.Phone = *req.Phone
	}
	if req.Address != nil {
		shop.Address = *req.Address
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
			return
		}
		shop.Timezone = *req.Timezone
	}
	if req.Currency != nil {
		if len(*req.Currency) != 3 {
			httperr.BadRequest(c, "invalid_currency", "Currency must be a 3-letter code.")
			return
		}
		shop.Currency = *req.Currency
	}

	if err := h.db.Save(&shop).Error; err != nil {
		httperr.Internal(c, "failed_to_update_barbershop", "Could not save the barbershop.")
		return
	}

	c.JSON(http.StatusOK, shop)
}

// ======================================================
// BOOKING SETTINGS
// ======================================================

type UpdateBookingSettingsRequest struct {
	SlotDurationMin    *int    `json:"slot_duration_min"`
	MinLeadMinutes     *int    `json:"min_lead_minutes"`
	MaxAdvanceDays     *int    `json:"max_advance_days"`
	ReminderOffsetsMin *string `json:"reminder_offsets_min"`
	SendConfirmation   *bool   `json:"send_confirmation"`
}

func (h *BarbershopHandler) GetBookingSettings(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var settings models.BookingSettings
	err := h.db.
		Where("barbershop_id = ?", barbershopID).
		FirstOrCreate(&settings, models.BookingSettings{BarbershopID: barbershopID}).Error
	if err != nil {
		httperr.Internal(c, "failed_to_get_settings", "Could not load booking settings.")
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *BarbershopHandler) UpdateBookingSettings(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var settings models.BookingSettings
	err := h.db.
		Where("barbershop_id = ?", barbershopID).
		FirstOrCreate(&settings, models.BookingSettings{BarbershopID: barbershopID}).Error
	if err != nil {
		httperr.Internal(c, "failed_to_get_settings", "Could not load booking settings.")
		return
	}

	var req UpdateBookingSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	if req.SlotDurationMin != nil {
		if *req.SlotDurationMin < 5 || *req.SlotDurationMin > 240 {
			httperr.BadRequest(c, "invalid_slot_duration", "Slot duration must be 5-240 minutes.")
			return
		}
		settings.SlotDurationMin = *req.SlotDurationMin
	}
	if req.MinLeadMinutes != nil {
		if *req.MinLeadMinutes < 0 {
			httperr.BadRequest(c, "invalid_min_lead", "Lead time must be zero or positive.")
			return
		}
		settings.MinLeadMinutes = *req.MinLeadMinutes
	}
	if req.MaxAdvanceDays != nil {
		if *req.MaxAdvanceDays < 1 || *req.MaxAdvanceDays > 365 {
			httperr.BadRequest(c, "invalid_max_advance", "Advance window must be 1-365 days.")
			return
		}
		settings.MaxAdvanceDays = *req.MaxAdvanceDays
	}
	if req.ReminderOffsetsMin != nil {
		settings.ReminderOffsetsMin = *req.ReminderOffsetsMin
	}
	if req.SendConfirmation != nil {
		settings.SendConfirmation = *req.SendConfirmation
	}

	if err := h.db.Save(&settings).Error; err != nil {
		httperr.Internal(c, "failed_to_update_settings", "Could not save booking settings.")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// ======================================================
// LOCATIONS
// ======================================================

type LocationRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone"`
}

func (h *BarbershopHandler) ListLocations(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var locations []models.BarbershopLocation
	if err := h.db.
		Where("barbershop_id = ?", barbershopID).
		Order("id ASC").
		Find(&locations).Error; err != nil {
		httperr.Internal(c, "failed_to_list_locations", "Could not list locations.")
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *BarbershopHandler) CreateLocation(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	location := models.BarbershopLocation{
		BarbershopID: barbershopID,
		Name:         req.Name,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Phone:        req.Phone,
		Active:       true,
	}

	if err := h.db.Create(&location).Error; err != nil {
		httperr.Internal(c, "failed_to_create_location", "Could not create the location.")
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *BarbershopHandler) UpdateLocation(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)
	id := c.Param("id")

	var location models.BarbershopLocation
	if err := h.db.
		Where("id = ? AND barbershop_id = ?", id, barbershopID).
		First(&location).Error; err != nil {
		httperr.NotFound(c, "location_not_found", "Location not found.")
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	location.Name = req.Name
	location.Address = req.Address
	location.City = req.City
	location.State = req.State
	location.Phone = req.Phone

	if err := h.db.Save(&location).Error; err != nil {
		httperr.Internal(c, "failed_to_update_location", "Could not save the location.")
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *BarbershopHandler) DeleteLocation(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)
	id := c.Param("id")

	res := h.db.
		Model(&models.BarbershopLocation{}).
		Where("id = ? AND barbershop_id = ?", id, barbershopID).
		Update("active", false)
	if res.Error != nil {
		httperr.Internal(c, "failed_to_delete_location", "Could not remove the location.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "location_not_found", "Location not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
