package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/config"
	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/marketing"
	"github.com/bookedbarber/bookedbarber-api/internal/media"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
	"github.com/bookedbarber/bookedbarber-api/internal/queue"
	"github.com/bookedbarber/bookedbarber-api/internal/routes"
	ucAppointment "github.com/bookedbarber/bookedbarber-api/internal/usecase/appointment"
)

func main() {
	cfg := config.Load()

	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	db := dbpkg.NewDB(cfg)

	redisCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	// the queue is optional in development: without it bookings still work,
	// notifications are just dropped
	var notifier ucAppointment.Notifier = ucAppointment.NopNotifier{}
	var publisher marketing.Publisher

	conn, err := queue.Connect(cfg.Queue.URL, 5, 3*time.Second)
	if err != nil {
		log.Warn("rabbitmq unavailable, notifications disabled", zap.Error(err))
	} else {
		ch, err := queue.SetupChannel(conn, cfg.Queue.Exchange, []queue.QueueBinding{
			{Name: queue.QueueDeliveries, RoutingKey: queue.KeyDelivery},
		})
		if err != nil {
			log.Fatal("failed to set up rabbitmq channel", zap.Error(err))
		}
		qn := notify.NewQueueNotifier(ch, cfg.Queue.Exchange)
		notifier = qn
		publisher = qn
	}

	var mediaSvc *media.Service
	if cfg.Media.S3AccessKey != "" {
		mediaSvc, err = media.NewService(ctx, cfg.Media)
		if err != nil {
			log.Fatal("failed to set up media storage", zap.Error(err))
		}
	} else {
		log.Warn("s3 credentials missing, media uploads disabled")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		DB:        db,
		Cache:     redisCache,
		Config:    cfg,
		Notifier:  notifier,
		Media:     mediaSvc,
		Publisher: publisher,
	})

	log.Info("api listening", zap.String("addr", cfg.Addr()))
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
