package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/marketing"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
)

type MarketingHandler struct {
	service *marketing.Service
	audit   *audit.Dispatcher
}

func NewMarketingHandler(service *marketing.Service, auditDispatcher *audit.Dispatcher) *MarketingHandler {
	return &MarketingHandler{service: service, audit: auditDispatcher}
}

func (h *MarketingHandler) List(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	out, err := h.service.List(c.Request.Context(), barbershopID)
	if err != nil {
		httperr.Internal(c, "failed_to_list_campaigns", "Could not list campaigns.")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *MarketingHandler) Create(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req marketing.CampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	campaign, err := h.service.Create(c.Request.Context(), barbershopID, req)
	if err != nil {
		mapBusinessError(c, err, "failed_to_create_campaign", "Could not create the campaign.")
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

func (h *MarketingHandler) Update(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid campaign id.")
		return
	}

	var req marketing.CampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	campaign, err := h.service.Update(c.Request.Context(), barbershopID, uint(id), req)
	if err != nil {
		mapBusinessError(c, err, "failed_to_update_campaign", "Could not save the campaign.")
		return
	}

	c.JSON(http.StatusOK, campaign)
}

func (h *MarketingHandler) Delete(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid campaign id.")
		return
	}

	if err := h.service.Delete(c.Request.Context(), barbershopID, uint(id)); err != nil {
		mapBusinessError(c, err, "failed_to_delete_campaign", "Could not remove the campaign.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MarketingHandler) Send(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid campaign id.")
		return
	}

	campaign, err := h.service.Send(c.Request.Context(), barbershopID, uint(id))
	if err != nil {
		mapBusinessError(c, err, "failed_to_send_campaign", "Could not send the campaign.")
		return
	}

	h.audit.Dispatch(audit.Event{
		BarbershopID: barbershopID,
		UserID:       &userID,
		Action:       "campaign_sent",
		Entity:       "marketing_campaign",
		EntityID:     &campaign.ID,
	})

	c.JSON(http.StatusOK, campaign)
}
