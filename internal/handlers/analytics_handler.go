package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookedbarber/bookedbarber-api/internal/analytics"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
)

type AnalyticsHandler struct {
	service *analytics.Service
}

func NewAnalyticsHandler(service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// period reads from/to query params, defaulting to the last 30 days.
func period(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			httperr.BadRequest(c, "invalid_from", "Invalid from date.")
			return from, to, false
		}
		from = parsed
	}
	if toStr := c.Query("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			httperr.BadRequest(c, "invalid_to", "Invalid to date.")
			return from, to, false
		}
		to = parsed.Add(24 * time.Hour)
	}

	if !to.After(from) {
		httperr.BadRequest(c, "invalid_period", "The period is empty.")
		return from, to, false
	}

	return from, to, true
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	from, to, ok := period(c)
	if !ok {
		return
	}

	out, err := h.service.GetSummary(c.Request.Context(), barbershopID, from, to)
	if err != nil {
		httperr.Internal(c, "failed_to_get_summary", "Could not compute the summary.")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) AppointmentsByStatus(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	from, to, ok := period(c)
	if !ok {
		return
	}

	out, err := h.service.CountByStatus(c.Request.Context(), barbershopID, from, to)
	if err != nil {
		httperr.Internal(c, "failed_to_get_counts", "Could not compute the counts.")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) TopServices(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	from, to, ok := period(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	out, err := h.service.TopServices(c.Request.Context(), barbershopID, from, to, limit)
	if err != nil {
		httperr.Internal(c, "failed_to_get_top_services", "Could not compute top services.")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) RevenueByBarber(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	from, to, ok := period(c)
	if !ok {
		return
	}

	out, err := h.service.RevenueByBarber(c.Request.Context(), barbershopID, from, to)
	if err != nil {
		httperr.Internal(c, "failed_to_get_revenue", "Could not compute barber revenue.")
		return
	}

	c.JSON(http.StatusOK, out)
}
