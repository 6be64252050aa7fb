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

type WorkingHoursHandler struct {
	db *gorm.DB
}

func NewWorkingHoursHandler(db *gorm.DB) *WorkingHoursHandler {
	return &WorkingHoursHandler{db: db}
}

type WorkingDayConfig struct {
	Weekday    int    `json:"weekday" binding:"min=0,max=6"`
	Active     bool   `json:"active"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	LunchStart string `json:"lunch_start"`
	LunchEnd   string `json:"lunch_end"`
}

type WorkingHoursUpdateRequest struct {
	Days []WorkingDayConfig `json:"days" binding:"required"`
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	userIDVal, _ := c.Get(middleware.ContextUserID)
	barberID := userIDVal.(uint)

	var hours []models.WorkingHours
	if err := h.db.
		Where("barber_id = ?", barberID).
		Order("weekday ASC").
		Find(&hours).Error; err != nil {

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_get_working_hours"})
		return
	}

	c.JSON(http.StatusOK, hours)
}

func (h *WorkingHoursHandler) Update(c *gin.Context) {
	userIDVal, _ := c.Get(middleware.ContextUserID)
	barberID := userIDVal.(uint)

	var req WorkingHoursUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"details": err.Error(),
		})
		return
	}

	for _, d := range req.Days {
		if !d.Active {
			continue
		}
		if !validHM(d.StartTime) || !validHM(d.EndTime) {
			httperr.BadRequest(c, "invalid_time_format", "Times must be HH:mm.")
			return
		}
		// lunch is optional but comes as a pair, and a malformed value
		// would silently read as midnight in the slot math
		if (d.LunchStart == "") != (d.LunchEnd == "") {
			httperr.BadRequest(c, "invalid_lunch_period", "Lunch needs both a start and an end.")
			return
		}
		if d.LunchStart != "" && (!validHM(d.LunchStart) || !validHM(d.LunchEnd)) {
			httperr.BadRequest(c, "invalid_time_format", "Times must be HH:mm.")
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("barber_id = ?", barberID).Delete(&models.WorkingHours{}).Error; err != nil {
			return err
		}

		var toCreate []models.WorkingHours
		for _, d := range req.Days {
			toCreate = append(toCreate, models.WorkingHours{
				BarberID:   barberID,
				Weekday:    d.Weekday,
				Active:     d.Active,
				StartTime:  d.StartTime,
				EndTime:    d.EndTime,
				LunchStart: d.LunchStart,
				LunchEnd:   d.LunchEnd,
			})
		}

		if len(toCreate) > 0 {
			return tx.Create(&toCreate).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_save_working_hours"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func validHM(hm string) bool {
	_, err := time.Parse("15:04", hm)
	return err == nil
}

// ======================================================
// UNAVAILABLE PERIODS
// ======================================================

type UnavailablePeriodRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Reason    string    `json:"reason"`
}

func (h *WorkingHoursHandler) ListUnavailable(c *gin.Context) {
	userIDVal, _ := c.Get(middleware.ContextUserID)
	barberID := userIDVal.(uint)

	var periods []models.UnavailablePeriod
	if err := h.db.
		Where("barber_id = ? AND end_time > ?", barberID, time.Now()).
		Order("start_time ASC").
		Find(&periods).Error; err != nil {
		httperr.Internal(c, "failed_to_list_periods", "Could not list blocked periods.")
		return
	}

	c.JSON(http.StatusOK, periods)
}

func (h *WorkingHoursHandler) CreateUnavailable(c *gin.Context) {
	userIDVal, _ := c.Get(middleware.ContextUserID)
	barberID := userIDVal.(uint)

	var req UnavailablePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	if !req.EndTime.After(req.StartTime) {
		httperr.BadRequest(c, "invalid_period", "End must come after start.")
		return
	}

	period := models.UnavailablePeriod{
		BarberID:  barberID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}

	if err := h.db.Create(&period).Error; err != nil {
		httperr.Internal(c, "failed_to_create_period", "Could not create the blocked period.")
		return
	}

	c.JSON(http.StatusCreated, period)
}

func (h *WorkingHoursHandler) DeleteUnavailable(c *gin.Context) {
	userIDVal, _ := c.Get(middleware.ContextUserID)
	barberID := userIDVal.(uint)
	id := c.Param("id")

	res := h.db.
		Where("id = ? AND barber_id = ?", id, barberID).
		Delete(&models.UnavailablePeriod{})
	if res.Error != nil {
		httperr.Internal(c, "failed_to_delete_period", "Could not remove the blocked period.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "period_not_found", "Blocked period not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
