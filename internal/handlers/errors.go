package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
)

// mapBusinessError translates a use-case business code into the HTTP reply.
// Anything unmapped is a real failure.
func mapBusinessError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	code, ok := httperr.IsAnyBusiness(err)
	if !ok {
		httperr.Internal(c, fallbackCode, fallbackMsg)
		return
	}

	switch code {
	case "time_conflict":
		httperr.Conflict(c, code, "That time was just taken.")
	case "appointment_not_found", "service_not_found", "barbershop_not_found",
		"payment_not_found", "barber_not_found", "campaign_not_found":
		httperr.NotFound(c, code, "Not found.")
	case "integration_not_connected", "connect_not_onboarded":
		httperr.BadRequest(c, code, "Integration is not connected.")
	default:
		httperr.BadRequest(c, code, "Request rejected.")
	}
}
