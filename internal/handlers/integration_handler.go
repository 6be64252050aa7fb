package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/integrations"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type IntegrationHandler struct {
	db      *gorm.DB
	service *integrations.Service
}

func NewIntegrationHandler(db *gorm.DB, service *integrations.Service) *IntegrationHandler {
	return &IntegrationHandler{db: db, service: service}
}

// ======================================================
// GOOGLE OAUTH
// ======================================================

func (h *IntegrationHandler) AuthURL(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)
	provider := c.Param("provider")

	url, err := h.service.AuthURL(c.Request.Context(), barbershopID, provider)
	if err != nil {
		mapBusinessError(c, err, "failed_to_start_oauth", "Could not start the connect flow.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// Callback is hit by Google's redirect; it carries its own state token, so
// it lives outside the auth group.
func (h *IntegrationHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		httperr.BadRequest(c, "missing_params", "State and code are required.")
		return
	}

	integ, err := h.service.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		mapBusinessError(c, err, "oauth_callback_failed", "Could not finish the connect flow.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": integ.Provider,
		"active":   integ.Active,
	})
}

// ======================================================
// STRIPE CONNECT
// ======================================================

func (h *IntegrationHandler) ConnectStripe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.Internal(c, "user_not_found", "Could not load the account.")
		return
	}

	link, err := h.service.ConnectStripe(c.Request.Context(), barbershopID, user.Email)
	if err != nil {
		mapBusinessError(c, err, "failed_to_connect_stripe", "Could not start Stripe onboarding.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"onboarding_url": link})
}

// ======================================================
// COMMON
// ======================================================

func (h *IntegrationHandler) List(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	out, err := h.service.List(c.Request.Context(), barbershopID)
	if err != nil {
		httperr.Internal(c, "failed_to_list_integrations", "Could not list integrations.")
		return
	}

	type item struct {
		Provider string `json:"provider"`
		Active   bool   `json:"active"`
	}
	result := make([]item, 0, len(out))
	for _, integ := range out {
		result = append(result, item{Provider: integ.Provider, Active: integ.Active})
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)
	provider := c.Param("provider")

	if err := h.service.Disconnect(c.Request.Context(), barbershopID, provider); err != nil {
		mapBusinessError(c, err, "failed_to_disconnect", "Could not disconnect the integration.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
