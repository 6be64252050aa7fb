package notify

import (
	"context"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/queue"
)

// DeliveryJob is the wire format between the API/scheduler and the worker.
// Exactly one of the id groups is meaningful per Kind.
type DeliveryJob struct {
	Kind string `json:"kind"` // confirmation | reminder | cancellation | reschedule | campaign

	AppointmentID uint `json:"appointment_id,omitempty"`
	ReminderID    uint `json:"reminder_id,omitempty"`

	CampaignID uint `json:"campaign_id,omitempty"`
	ClientID   uint `json:"client_id,omitempty"`

	// Channel restricts delivery for reminder jobs; empty means every
	// channel the client can be reached on.
	Channel string `json:"channel,omitempty"`
}

// QueueNotifier publishes delivery jobs instead of sending inline, so a slow
// email provider never holds a booking request open.
type QueueNotifier struct {
	ch       *amqp.Channel
	exchange string
}

func NewQueueNotifier(ch *amqp.Channel, exchange string) *QueueNotifier {
	return &QueueNotifier{ch: ch, exchange: exchange}
}

func (n *QueueNotifier) AppointmentEvent(_ context.Context, kind string, appointmentID uint) {
	job := DeliveryJob{Kind: kind, AppointmentID: appointmentID}
	if err := queue.Publish(n.ch, n.exchange, queue.KeyDelivery, job); err != nil {
		logger.L().Error("failed to enqueue notification",
			zap.String("kind", kind),
			zap.Uint("appointment_id", appointmentID),
			zap.Error(err))
	}
}

func (n *QueueNotifier) PublishJob(job DeliveryJob) error {
	return queue.Publish(n.ch, n.exchange, queue.KeyDelivery, job)
}
