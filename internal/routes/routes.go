package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/analytics"
	"github.com/bookedbarber/bookedbarber-api/internal/audit"
	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/config"
	"github.com/bookedbarber/bookedbarber-api/internal/handlers"
	infraRepo "github.com/bookedbarber/bookedbarber-api/internal/infra/repository"
	"github.com/bookedbarber/bookedbarber-api/internal/integrations"
	"github.com/bookedbarber/bookedbarber-api/internal/marketing"
	"github.com/bookedbarber/bookedbarber-api/internal/media"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/payments"
	ucAppointment "github.com/bookedbarber/bookedbarber-api/internal/usecase/appointment"
)

// Deps carries the externally-constructed pieces the router wires together.
type Deps struct {
	DB       *gorm.DB
	Cache    *cache.Cache
	Config   *config.Config
	Notifier ucAppointment.Notifier
	Media    *media.Service

	// Publisher feeds campaign fan-out; nil means marketing send is off.
	Publisher marketing.Publisher
}

func RegisterRoutes(r *gin.Engine, deps Deps) {

	db := deps.DB
	cfg := deps.Config

	// ======================================================
	// GLOBAL MIDDLEWARE
	// ======================================================
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	appointmentRepo := infraRepo.NewAppointmentGormRepository(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = ucAppointment.NopNotifier{}
	}

	var stripeProvider *payments.StripeProvider
	var provider payments.Provider
	var connect payments.ConnectProvider

	if cfg.Payments.StripeSecretKey != "" {
		stripeProvider = payments.NewStripeProvider(cfg.Payments)
		connect = stripeProvider
	}
	switch cfg.Payments.Provider {
	case "mercadopago":
		if mp, err := payments.NewMercadoPagoProvider(cfg.Payments.MercadoPagoAccessToken); err == nil {
			provider = mp
		}
	default:
		if stripeProvider != nil {
			provider = stripeProvider
		}
	}

	paymentSvc := payments.NewService(db, provider, deps.Cache)
	payoutSvc := payments.NewPayoutService(db, connect)

	integrationSvc := integrations.NewService(db, deps.Cache, cfg.Google, connect)
	calendarSync := integrations.NewCalendarSync(db, integrationSvc)

	marketingSvc := marketing.NewService(db, deps.Publisher)
	analyticsSvc := analytics.NewService(db)

	// ======================================================
	// USE CASES — APPOINTMENTS
	// ======================================================
	createAppointmentUC := ucAppointment.NewCreateAppointment(
		appointmentRepo,
		auditDispatcher,
		notifier,
	)

	completeAppointmentUC := ucAppointment.NewCompleteAppointment(
		appointmentRepo,
		auditDispatcher,
	)

	cancelAppointmentUC := ucAppointment.NewCancelAppointment(
		appointmentRepo,
		auditDispatcher,
		notifier,
	)

	rescheduleAppointmentUC := ucAppointment.NewRescheduleAppointment(
		appointmentRepo,
		auditDispatcher,
		notifier,
	)

	listAppointmentsByDateUC := ucAppointment.NewListAppointmentsByDate(appointmentRepo)
	listAppointmentsByMonthUC := ucAppointment.NewListAppointmentsByMonth(appointmentRepo)
	getAvailabilityUC := ucAppointment.NewGetAvailability(appointmentRepo)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, deps.Cache, cfg)
	meHandler := handlers.NewMeHandler(db)
	barbershopHandler := handlers.NewBarbershopHandler(db)
	staffHandler := handlers.NewStaffHandler(db)

	serviceHandler := handlers.NewServiceHandler(db)
	clientHandler := handlers.NewClientHandler(db)
	workingHoursHandler := handlers.NewWorkingHoursHandler(db)

	appointmentHandler := handlers.NewAppointmentHandler(
		createAppointmentUC,
		completeAppointmentUC,
		cancelAppointmentUC,
		rescheduleAppointmentUC,
		listAppointmentsByDateUC,
		listAppointmentsByMonthUC,
		getAvailabilityUC,
		deps.Cache,
		calendarSync,
	)

	paymentHandler := handlers.NewPaymentHandler(paymentSvc, payoutSvc, stripeProvider, auditDispatcher)
	integrationHandler := handlers.NewIntegrationHandler(db, integrationSvc)
	marketingHandler := handlers.NewMarketingHandler(marketingSvc, auditDispatcher)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsSvc)
	mediaHandler := handlers.NewMediaHandler(db, deps.Media)
	auditLogsHandler := handlers.NewAuditLogsHandler(db)

	publicHandler := handlers.NewPublicHandler(
		db,
		appointmentRepo,
		createAppointmentUC,
		getAvailabilityUC,
		auditDispatcher,
		deps.Cache,
		calendarSync,
	)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC BOOKING
		// ------------------------------
		publicAPI := api.Group("/public")
		{
			publicAPI.GET("/:slug/services", publicHandler.ListServices)
			publicAPI.GET("/:slug/barbers", publicHandler.ListBarbers)
			publicAPI.GET("/:slug/availability", publicHandler.Availability)
			publicAPI.POST("/:slug/appointments", publicHandler.CreateAppointment)

			publicAPI.GET("/appointments/:token", publicHandler.GetAppointment)
			publicAPI.PATCH("/appointments/:token/cancel", publicHandler.CancelAppointment)
		}

		// ------------------------------
		// WEBHOOKS (signature-verified)
		// ------------------------------
		api.POST("/webhooks/stripe", paymentHandler.StripeWebhook)

		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login",
			middleware.LoginRateLimit(deps.Cache, 10, time.Minute),
			authHandler.Login,
		)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/auth/logout", authHandler.Logout)

		// OAuth callback comes from the provider redirect, outside auth
		api.GET("/integrations/google/callback", integrationHandler.Callback)

		// ------------------------------
		// PRIVATE API
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("/me", meHandler.GetMe)

			secured.GET("/me/barbershop", barbershopHandler.GetMeBarbershop)
			secured.PATCH("/me/barbershop", barbershopHandler.UpdateMeBarbershop)
			secured.GET("/me/barbershop/settings", barbershopHandler.GetBookingSettings)
			secured.PUT("/me/barbershop/settings", barbershopHandler.UpdateBookingSettings)

			secured.GET("/me/locations", barbershopHandler.ListLocations)
			secured.POST("/me/locations", middleware.RequireOwner(), barbershopHandler.CreateLocation)
			secured.PATCH("/me/locations/:id", middleware.RequireOwner(), barbershopHandler.UpdateLocation)
			secured.DELETE("/me/locations/:id", middleware.RequireOwner(), barbershopHandler.DeleteLocation)

			secured.GET("/me/staff", staffHandler.List)
			secured.POST("/me/staff", middleware.RequireOwner(), staffHandler.Create)
			secured.PATCH("/me/staff/:id", middleware.RequireOwner(), staffHandler.Update)

			secured.GET("/me/clients", clientHandler.List)
			secured.PATCH("/me/clients/:id", clientHandler.Update)

			secured.GET("/me/services", serviceHandler.List)
			secured.POST("/me/services", serviceHandler.Create)
			secured.PATCH("/me/services/:id", serviceHandler.Update)
			secured.DELETE("/me/services/:id", serviceHandler.Delete)

			secured.GET("/me/working-hours", workingHoursHandler.Get)
			secured.PUT("/me/working-hours", workingHoursHandler.Update)

			secured.GET("/me/unavailable-periods", workingHoursHandler.ListUnavailable)
			secured.POST("/me/unavailable-periods", workingHoursHandler.CreateUnavailable)
			secured.DELETE("/me/unavailable-periods/:id", workingHoursHandler.DeleteUnavailable)

			// ------------------------------
			// APPOINTMENTS
			// ------------------------------
			secured.POST("/me/appointments", appointmentHandler.Create)
			secured.GET("/me/appointments", appointmentHandler.ListByDate)
			secured.GET("/me/appointments/month", appointmentHandler.ListByMonth)
			secured.GET("/me/availability", appointmentHandler.Availability)
			secured.PATCH("/me/appointments/:id/cancel", appointmentHandler.Cancel)
			secured.PATCH("/me/appointments/:id/complete", appointmentHandler.Complete)
			secured.PATCH("/me/appointments/:id/reschedule", appointmentHandler.Reschedule)

			// ------------------------------
			// PAYMENTS & PAYOUTS
			// ------------------------------
			secured.POST("/me/payments", paymentHandler.Create)
			secured.GET("/me/payments", paymentHandler.List)
			secured.POST("/me/payments/:id/refund", middleware.RequireOwner(), paymentHandler.Refund)

			secured.POST("/me/payouts", middleware.RequireOwner(), paymentHandler.CreatePayout)
			secured.GET("/me/payouts", middleware.RequireOwner(), paymentHandler.ListPayouts)

			// ------------------------------
			// INTEGRATIONS
			// ------------------------------
			secured.GET("/me/integrations", integrationHandler.List)
			secured.GET("/me/integrations/:provider/auth-url", middleware.RequireOwner(), integrationHandler.AuthURL)
			secured.POST("/me/integrations/stripe-connect", middleware.RequireOwner(), integrationHandler.ConnectStripe)
			secured.DELETE("/me/integrations/:provider", middleware.RequireOwner(), integrationHandler.Disconnect)

			// ------------------------------
			// MARKETING
			// ------------------------------
			secured.GET("/me/campaigns", marketingHandler.List)
			secured.POST("/me/campaigns", middleware.RequireOwner(), marketingHandler.Create)
			secured.PATCH("/me/campaigns/:id", middleware.RequireOwner(), marketingHandler.Update)
			secured.DELETE("/me/campaigns/:id", middleware.RequireOwner(), marketingHandler.Delete)
			secured.POST("/me/campaigns/:id/send", middleware.RequireOwner(), marketingHandler.Send)

			// ------------------------------
			// ANALYTICS
			// ------------------------------
			secured.GET("/me/analytics/summary", analyticsHandler.Summary)
			secured.GET("/me/analytics/appointments-by-status", analyticsHandler.AppointmentsByStatus)
			secured.GET("/me/analytics/top-services", analyticsHandler.TopServices)
			secured.GET("/me/analytics/revenue-by-barber", analyticsHandler.RevenueByBarber)

			// ------------------------------
			// MEDIA
			// ------------------------------
			secured.POST("/me/barbershop/logo", middleware.RequireOwner(), mediaHandler.UploadLogo)
			secured.POST("/me/avatar", mediaHandler.UploadAvatar)

			secured.GET("/me/audit-logs", auditLogsHandler.List)
		}
	}
}
