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
	"github.com/bookedbarber/bookedbarber-api/internal/marketing"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
	"github.com/bookedbarber/bookedbarber-api/internal/queue"
	"github.com/bookedbarber/bookedbarber-api/internal/reminders"
)

// The scheduler owns time: it sweeps due reminders and scheduled campaigns
// into the queue. Delivery itself belongs to the worker.
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

	publisher := notify.NewQueueNotifier(ch, cfg.Queue.Exchange)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	campaigns := marketing.NewService(db, publisher)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				campaigns.SweepScheduled(ctx)
			}
		}
	}()

	reminders.NewScheduler(db, publisher, time.Minute).Run(ctx)
}
