package queue

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestAttemptCount(t *testing.T) {
	tests := []struct {
		name string
		msg  amqp.Delivery
		want int
	}{
		{"no headers", amqp.Delivery{}, 0},
		{"missing key", amqp.Delivery{Headers: amqp.Table{}}, 0},
		{"int32", amqp.Delivery{Headers: amqp.Table{"x-attempts": int32(2)}}, 2},
		{"int64", amqp.Delivery{Headers: amqp.Table{"x-attempts": int64(1)}}, 1},
		{"wrong type", amqp.Delivery{Headers: amqp.Table{"x-attempts": "2"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attemptCount(tt.msg))
		})
	}
}
