package queue

import (
	"context"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/logger"
)

const maxAttempts = 3

// Consume pulls deliveries and retries failed handlers by republishing with
// an attempt counter. After maxAttempts the message is dropped; the handler
// has already logged the terminal failure.
func Consume(
	ctx context.Context,
	ch *amqp.Channel,
	exchange string,
	queueName string,
	routingKey string,
	handler func(ctx context.Context, body []byte) error,
) error {

	msgs, err := ch.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := handler(ctx, msg.Body); err != nil {
				attempts := attemptCount(msg) + 1
				logger.L().Warn("delivery failed",
					zap.Int("attempt", attempts),
					zap.Error(err))

				if attempts < maxAttempts {
					_ = ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
						ContentType:  msg.ContentType,
						DeliveryMode: amqp.Persistent,
						Body:         msg.Body,
						Headers:      amqp.Table{"x-attempts": int32(attempts)},
					})
				}
			}

			_ = msg.Ack(false)
		}
	}
}

func attemptCount(msg amqp.Delivery) int {
	if msg.Headers == nil {
		return 0
	}
	switch v := msg.Headers["x-attempts"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
