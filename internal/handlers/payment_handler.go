package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/payments"
)

// ======================================================
// HANDLER
// ======================================================

type PaymentHandler struct {
	payments *payments.Service
	payouts  *payments.PayoutService
	stripe   *payments.StripeProvider
	audit    *audit.Dispatcher
}

func NewPaymentHandler(
	paymentSvc *payments.Service,
	payoutSvc *payments.PayoutService,
	stripeProvider *payments.StripeProvider,
	auditDispatcher *audit.Dispatcher,
) *PaymentHandler {
	return &PaymentHandler{
		payments: paymentSvc,
		payouts:  payoutSvc,
		stripe:   stripeProvider,
		audit:    auditDispatcher,
	}
}

// ======================================================
// PAYMENTS
// ======================================================

type CreatePaymentRequest struct {
	AppointmentID uint `json:"appointment_id" binding:"required"`
}

func (h *PaymentHandler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	payment, err := h.payments.CreateForAppointment(c.Request.Context(), barbershopID, req.AppointmentID)
	if err != nil {
		mapBusinessError(c, err, "failed_to_create_payment", "Could not start the payment.")
		return
	}

	h.audit.Dispatch(audit.Event{
		BarbershopID: barbershopID,
		UserID:       &userID,
		Action:       "payment_created",
		Entity:       "payment",
		EntityID:     &payment.ID,
	})

	// the secret goes to the caller once, it is never listed back
	c.JSON(http.StatusCreated, gin.H{
		"payment":       payment,
		"client_secret": payment.ClientSecret,
	})
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid payment id.")
		return
	}

	payment, err := h.payments.Refund(c.Request.Context(), barbershopID, uint(id))
	if err != nil {
		mapBusinessError(c, err, "failed_to_refund", "Could not refund the payment.")
		return
	}

	h.audit.Dispatch(audit.Event{
		BarbershopID: barbershopID,
		UserID:       &userID,
		Action:       "payment_refunded",
		Entity:       "payment",
		EntityID:     &payment.ID,
	})

	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) List(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	out, err := h.payments.List(c.Request.Context(), barbershopID)
	if err != nil {
		httperr.Internal(c, "failed_to_list_payments", "Could not list payments.")
		return
	}

	c.JSON(http.StatusOK, out)
}

// ======================================================
// PAYOUTS
// ======================================================

type CreatePayoutRequest struct {
	BarberID    uint   `json:"barber_id" binding:"required"`
	PeriodStart string `json:"period_start" binding:"required"` // YYYY-MM-DD
	PeriodEnd   string `json:"period_end" binding:"required"`   // YYYY-MM-DD
}

func (h *PaymentHandler) CreatePayout(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		httperr.BadRequest(c, "invalid_period", "Invalid period start.")
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil || !end.After(start) {
		httperr.BadRequest(c, "invalid_period", "Invalid period end.")
		return
	}

	payout, err := h.payouts.Create(c.Request.Context(), barbershopID, req.BarberID, start, end)
	if err != nil {
		mapBusinessError(c, err, "failed_to_create_payout", "Could not create the payout.")
		return
	}

	h.audit.Dispatch(audit.Event{
		BarbershopID: barbershopID,
		UserID:       &userID,
		Action:       "payout_created",
		Entity:       "payout",
		EntityID:     &payout.ID,
	})

	c.JSON(http.StatusCreated, payout)
}

func (h *PaymentHandler) ListPayouts(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	out, err := h.payouts.List(c.Request.Context(), barbershopID)
	if err != nil {
		httperr.Internal(c, "failed_to_list_payouts", "Could not list payouts.")
		return
	}

	c.JSON(http.StatusOK, out)
}

// ======================================================
// STRIPE WEBHOOK
// ======================================================

// StripeWebhook verifies the signature, then always answers 200 for events
// we saw before so Stripe stops redelivering.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stripe_not_configured"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httperr.BadRequest(c, "invalid_payload", "Could not read the payload.")
		return
	}

	event, err := h.stripe.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		httperr.BadRequest(c, "invalid_signature", "Signature check failed.")
		return
	}

	if err := h.payments.HandleStripeEvent(c.Request.Context(), event); err != nil {
		logger.L().Error("stripe event failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		httperr.Internal(c, "event_failed", "Could not process the event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
