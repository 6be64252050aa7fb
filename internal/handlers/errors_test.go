package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
)

func TestMapBusinessError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"time conflict", httperr.ErrBusiness("time_conflict"), http.StatusConflict, "time_conflict"},
		{"not found", httperr.ErrBusiness("appointment_not_found"), http.StatusNotFound, "appointment_not_found"},
		{"campaign not found", httperr.ErrBusiness("campaign_not_found"), http.StatusNotFound, "campaign_not_found"},
		{"not onboarded", httperr.ErrBusiness("connect_not_onboarded"), http.StatusBadRequest, "connect_not_onboarded"},
		{"other business code", httperr.ErrBusiness("too_soon"), http.StatusBadRequest, "too_soon"},
		{"unexpected error", errors.New("db gone"), http.StatusInternalServerError, "fallback_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			mapBusinessError(c, tt.err, "fallback_code", "fallback message")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
