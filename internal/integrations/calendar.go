package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

const calendarAPIBase = "https://www.googleapis.com/calendar/v3"

// CalendarSync mirrors appointments into the shop's Google Calendar when
// the integration is connected. Sync failures are logged, never surfaced
// to the booking flow.
type CalendarSync struct {
	db      *gorm.DB
	service *Service
}

func NewCalendarSync(db *gorm.DB, service *Service) *CalendarSync {
	return &CalendarSync{db: db, service: service}
}

type calendarEvent struct {
	ID      string            `json:"id,omitempty"`
	Summary string            `json:"summary"`
	Start   calendarEventTime `json:"start"`
	End     calendarEventTime `json:"end"`
}

type calendarEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// PushAppointment inserts the event and stores its id on the appointment.
func (cs *CalendarSync) PushAppointment(ctx context.Context, ap *models.Appointment) {
	token, _, integ, err := cs.service.Client(ctx, ap.BarbershopID, ProviderGoogleCalendar)
	if err != nil {
		return // not connected
	}

	var shop models.Barbershop
	if err := cs.db.WithContext(ctx).First(&shop, ap.BarbershopID).Error; err != nil {
		return
	}

	var client models.Client
	_ = cs.db.WithContext(ctx).First(&client, ap.ClientID).Error

	body, _ := json.Marshal(calendarEvent{
		Summary: fmt.Sprintf("Appointment — %s", client.Name),
		Start: calendarEventTime{
			DateTime: ap.StartTime.Format(time.RFC3339),
			TimeZone: shop.Timezone,
		},
		End: calendarEventTime{
			DateTime: ap.EndTime.Format(time.RFC3339),
			TimeZone: shop.Timezone,
		},
	})

	endpoint := fmt.Sprintf(
		"%s/calendars/%s/events",
		calendarAPIBase,
		url.PathEscape(integ.CalendarID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.L().Warn("calendar push failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L().Warn("calendar push rejected", zap.Int("status", resp.StatusCode))
		return
	}

	var created calendarEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return
	}

	ap.CalendarEventID = created.ID
	_ = cs.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", ap.ID).
		Update("calendar_event_id", created.ID).Error
}

// RemoveAppointment deletes the mirrored event after a cancellation.
func (cs *CalendarSync) RemoveAppointment(ctx context.Context, ap *models.Appointment) {
	if ap.CalendarEventID == "" {
		return
	}

	token, _, integ, err := cs.service.Client(ctx, ap.BarbershopID, ProviderGoogleCalendar)
	if err != nil {
		return
	}

	endpoint := fmt.Sprintf(
		"%s/calendars/%s/events/%s",
		calendarAPIBase,
		url.PathEscape(integ.CalendarID),
		url.PathEscape(ap.CalendarEventID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.L().Warn("calendar delete failed", zap.Error(err))
		return
	}
	resp.Body.Close()

	_ = cs.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", ap.ID).
		Update("calendar_event_id", "").Error
}
