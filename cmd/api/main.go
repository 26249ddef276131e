package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/appointments/internal/http/handlers"
	mw "github.com/clinicdesk/appointments/internal/http/middleware"
	"github.com/clinicdesk/appointments/internal/mailer"
	"github.com/clinicdesk/appointments/internal/migrations"
	"github.com/clinicdesk/appointments/internal/repo/postgres"
	"github.com/clinicdesk/appointments/internal/service"
	"github.com/clinicdesk/appointments/pkg/config"
	"github.com/clinicdesk/appointments/pkg/database"
	"github.com/clinicdesk/appointments/pkg/events"
	"github.com/clinicdesk/appointments/pkg/idempotency"
	"github.com/clinicdesk/appointments/pkg/logger"
	pkgmw "github.com/clinicdesk/appointments/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Up(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Event bus is optional; without NATS_URL events are dropped.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		publisher = bus
	}

	// Idempotency store is optional; without REDIS_URL repeated
	// Idempotency-Keys are not replayed.
	var idemStore pkgmw.IdempotencyStore
	if cfg.Redis.URL != "" {
		store, err := idempotency.NewRedisStore(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		idemStore = store
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	slotRepo := postgres.NewSlotRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	bookingService := service.NewBookingService(bookingRepo, publisher, newMailer(cfg))
	slotService := service.NewSlotService(slotRepo, publisher)

	// Initialize handlers and router
	h := handlers.New(authService, bookingService, slotService, cfg)

	authLimiter := mw.NewRateLimiter(pool, mw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	})

	router := handlers.NewRouter(h, handlers.RouterOptions{
		AuthRateLimit:    authLimiter.Middleware(),
		IdempotencyStore: idemStore,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down appointments service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting appointments service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, "ClinicDesk", cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
}
