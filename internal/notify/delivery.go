package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

const reminderMaxAttempts = 3

// DeliveryService is the worker side of the pipeline: it resolves a job back
// into records, renders the message and sends it over every reachable channel,
// logging each attempt.
type DeliveryService struct {
	db    *gorm.DB
	email EmailSender
	sms   SMSSender
}

func NewDeliveryService(db *gorm.DB, email EmailSender, sms SMSSender) *DeliveryService {
	return &DeliveryService{db: db, email: email, sms: sms}
}

func (d *DeliveryService) HandleJob(ctx context.Context, body []byte) error {
	var job DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		// malformed payload, retrying won't help
		logger.L().Error("undecodable delivery job", zap.Error(err))
		return nil
	}

	switch job.Kind {
	case "confirmation", "cancellation", "reschedule":
		return d.handleAppointment(ctx, job)
	case "reminder":
		return d.handleReminder(ctx, job)
	case "campaign":
		return d.handleCampaign(ctx, job)
	default:
		logger.L().Warn("unknown delivery kind", zap.String("kind", job.Kind))
		return nil
	}
}

// ======================================================
// APPOINTMENT LIFECYCLE
// ======================================================

func (d *DeliveryService) handleAppointment(ctx context.Context, job DeliveryJob) error {
	ap, shop, svc, client, err := d.loadAppointment(ctx, job.AppointmentID)
	if err != nil {
		return err
	}

	var msg Message
	switch job.Kind {
	case "confirmation":
		msg = ConfirmationMessage(ap, shop, svc, client)
	case "cancellation":
		msg = CancellationMessage(ap, shop, svc, client)
	case "reschedule":
		msg = RescheduleMessage(ap, shop, svc, client)
	}

	var firstErr error
	if client.Email != "" {
		if err := d.deliver(ctx, shop.ID, client, "email", job.Kind, msg); err != nil {
			firstErr = err
		}
	}
	if client.Phone != "" {
		if err := d.deliver(ctx, shop.ID, client, "sms", job.Kind, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ======================================================
// REMINDERS
// ======================================================

func (d *DeliveryService) handleReminder(ctx context.Context, job DeliveryJob) error {
	var rem models.ReminderSchedule
	if err := d.db.WithContext(ctx).First(&rem, job.ReminderID).Error; err != nil {
		return nil // deleted with its appointment, nothing to do
	}
	if rem.Status == "sent" {
		return nil
	}

	ap, shop, svc, client, err := d.loadAppointment(ctx, rem.AppointmentID)
	if err != nil {
		return d.failReminder(ctx, &rem, err)
	}

	// the appointment may have moved on since the reminder was scheduled
	if ap.Status != "scheduled" {
		return d.db.WithContext(ctx).
			Model(&rem).
			Update("status", "cancelled").Error
	}

	msg := ReminderMessage(ap, shop, svc, client)

	if err := d.deliver(ctx, shop.ID, client, rem.Channel, "reminder", msg); err != nil {
		return d.failReminder(ctx, &rem, err)
	}

	now := time.Now()
	return d.db.WithContext(ctx).Model(&rem).Updates(map[string]any{
		"status":   "sent",
		"sent_at":  &now,
		"attempts": gorm.Expr("attempts + 1"),
	}).Error
}

// failReminder bumps the attempt counter; at the cap the reminder goes to
// failed and the error is swallowed so the queue stops retrying.
func (d *DeliveryService) failReminder(ctx context.Context, rem *models.ReminderSchedule, cause error) error {
	rem.Attempts++
	updates := map[string]any{"attempts": rem.Attempts}
	if rem.Attempts >= reminderMaxAttempts {
		updates["status"] = "failed"
	}
	_ = d.db.WithContext(ctx).Model(rem).Updates(updates).Error

	if rem.Attempts >= reminderMaxAttempts {
		logger.L().Error("reminder permanently failed",
			zap.Uint("reminder_id", rem.ID),
			zap.Error(cause))
		return nil
	}
	return cause
}

// ======================================================
// CAMPAIGNS
// ======================================================

func (d *DeliveryService) handleCampaign(ctx context.Context, job DeliveryJob) error {
	var campaign models.MarketingCampaign
	if err := d.db.WithContext(ctx).First(&campaign, job.CampaignID).Error; err != nil {
		return nil
	}

	var client models.Client
	if err := d.db.WithContext(ctx).First(&client, job.ClientID).Error; err != nil {
		return nil
	}
	if !client.MarketingOptIn {
		return nil
	}

	msg := CampaignMessage(&campaign, &client)

	var err error
	switch campaign.Channel {
	case "sms":
		if client.Phone == "" {
			return nil
		}
		err = d.deliver(ctx, campaign.BarbershopID, &client, "sms", "campaign", msg)
	default:
		if client.Email == "" {
			return nil
		}
		err = d.deliver(ctx, campaign.BarbershopID, &client, "email", "campaign", msg)
	}
	if err != nil {
		return err
	}

	return d.db.WithContext(ctx).
		Model(&campaign).
		Update("sent_count", gorm.Expr("sent_count + 1")).Error
}

// ======================================================
// SHARED
// ======================================================

func (d *DeliveryService) loadAppointment(ctx context.Context, id uint) (
	*models.Appointment,
	*models.Barbershop,
	*models.Service,
	*models.Client,
	error,
) {
	var ap models.Appointment
	if err := d.db.WithContext(ctx).First(&ap, id).Error; err != nil {
		return nil, nil, nil, nil, fmt.Errorf("appointment %d: %w", id, err)
	}

	var shop models.Barbershop
	if err := d.db.WithContext(ctx).First(&shop, ap.BarbershopID).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	var svc models.Service
	if err := d.db.WithContext(ctx).Unscoped().First(&svc, ap.ServiceID).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	var client models.Client
	if err := d.db.WithContext(ctx).First(&client, ap.ClientID).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	return &ap, &shop, &svc, &client, nil
}

// deliver sends over one channel and records the outcome.
func (d *DeliveryService) deliver(
	ctx context.Context,
	barbershopID uint,
	client *models.Client,
	channel string,
	kind string,
	msg Message,
) error {

	var recipient string
	var sendErr error

	switch channel {
	case "email":
		recipient = client.Email
		sendErr = d.email.SendEmail(ctx, client.Email, msg.Subject, msg.Body)
	case "sms":
		recipient = client.Phone
		sendErr = d.sms.SendSMS(ctx, client.Phone, msg.Body)
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}

	entry := models.NotificationLog{
		BarbershopID: barbershopID,
		ClientID:     &client.ID,
		Channel:      channel,
		Recipient:    recipient,
		Kind:         kind,
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.Error = sendErr.Error()
	} else {
		now := time.Now()
		entry.Status = "sent"
		entry.SentAt = &now
	}

	if err := d.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.L().Error("failed to write notification log", zap.Error(err))
	}

	return sendErr
}
