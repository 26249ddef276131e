// Command slotgen tops up the appointment calendar: it applies migrations,
// seeds the bootstrap admin account when configured, and materializes a week
// of slots starting at the given date.
//
// Re-running it over an overlapping window creates duplicate slots; schedule
// it for disjoint weeks.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/clinicdesk/appointments/internal/migrations"
	"github.com/clinicdesk/appointments/internal/repo/postgres"
	"github.com/clinicdesk/appointments/internal/service"
	"github.com/clinicdesk/appointments/pkg/config"
	"github.com/clinicdesk/appointments/pkg/database"
	"github.com/clinicdesk/appointments/pkg/events"
	"github.com/clinicdesk/appointments/pkg/logger"
)

func main() {
	startFlag := flag.String("start", "", "first day of the week to generate (YYYY-MM-DD, default today)")
	flag.Parse()

	cfg := config.Load()

	start := time.Now()
	if *startFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *startFlag, time.Local)
		if err != nil {
			logger.Error("Invalid -start date", "error", err)
			os.Exit(1)
		}
		start = parsed
	}

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

	userRepo := postgres.NewUserRepository(pool)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		hash, err := argon2id.CreateHash(cfg.Admin.Password, argon2id.DefaultParams)
		if err != nil {
			logger.Error("Failed to hash admin password", "error", err)
			os.Exit(1)
		}
		if err := userRepo.EnsureAdmin(ctx, "Admin User", cfg.Admin.Email, hash); err != nil {
			logger.Error("Failed to seed admin account", "error", err)
			os.Exit(1)
		}
		logger.Info("Admin account ensured", "email", cfg.Admin.Email)
	}

	slotRepo := postgres.NewSlotRepository(pool)
	slotService := service.NewSlotService(slotRepo, events.NoopPublisher{})

	count, err := slotService.Generate(ctx, start)
	if err != nil {
		logger.Error("Failed to generate slots", "error", err)
		os.Exit(1)
	}

	logger.Info("Slot generation complete", "created", count, "from", start.Format("2006-01-02"))
}
