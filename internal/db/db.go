package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/config"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

func NewDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		logger.L().Fatal("failed to connect database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.L().Fatal("failed to get sql.DB", zap.Error(err))
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		logger.L().Fatal("failed to migrate", zap.Error(err))
	}

	db.Exec(`
        UPDATE barbershops
        SET timezone = 'America/New_York'
        WHERE timezone IS NULL OR timezone = ''
    `)

	return db
}

// Migrate applies the schema. Shared with tests, which run it on sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Barbershop{},
		&models.BarbershopLocation{},
		&models.User{},
		&models.Service{},
		&models.WorkingHours{},
		&models.UnavailablePeriod{},
		&models.BookingSettings{},
		&models.Client{},
		&models.Appointment{},
		&models.Payment{},
		&models.Payout{},
		&models.Integration{},
		&models.WebhookEvent{},
		&models.ReminderSchedule{},
		&models.NotificationLog{},
		&models.MarketingCampaign{},
		&models.AuditLog{},
	)
}
