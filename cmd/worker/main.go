package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/config"
	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
	"github.com/bookedbarber/bookedbarber-api/internal/queue"
)

// The worker drains the delivery queue: it renders and sends email/SMS and
// records every attempt. Failed handlers are retried up to the attempt cap.
func main() {
	cfg := config.Load()

	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db := dbpkg.NewDB(cfg)

	conn, err := queue.Connect(cfg.Queue.URL, 10, 3*time.Second)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	ch, err := queue.SetupChannel(conn, cfg.Queue.Exchange, []queue.QueueBinding{
		{Name: queue.QueueDeliveries, RoutingKey: queue.KeyDelivery},
	})
	if err != nil {
		log.Fatal("failed to set up rabbitmq channel", zap.Error(err))
	}
	defer ch.Close()

	email := notify.NewSendGridSender(cfg.Email)
	sms := notify.NewTwilioSender(cfg.SMS)
	delivery := notify.NewDeliveryService(db, email, sms)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("worker consuming", zap.String("queue", queue.QueueDeliveries))

	err = queue.Consume(
		ctx,
		ch,
		cfg.Queue.Exchange,
		queue.QueueDeliveries,
		queue.KeyDelivery,
		delivery.HandleJob,
	)
	if err != nil && err != context.Canceled {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
