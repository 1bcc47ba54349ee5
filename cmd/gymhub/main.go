// GymHub Back-Office Core
//
// This is the main entry point for the GymHub back-office session and
// presence service. It authenticates gym staff (administrators,
// trainers, nutritionists), issues and rotates their tokens, and runs
// the presence channel that shows which operators are online.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/gymhub/backoffice-core/migrations"

	"github.com/gymhub/backoffice-core/internal/api"
	"github.com/gymhub/backoffice-core/internal/audit"
	"github.com/gymhub/backoffice-core/internal/auth"
	"github.com/gymhub/backoffice-core/internal/infrastructure/config"
	"github.com/gymhub/backoffice-core/internal/infrastructure/database"
	"github.com/gymhub/backoffice-core/internal/infrastructure/logging"
	"github.com/gymhub/backoffice-core/internal/infrastructure/telemetry"
	"github.com/gymhub/backoffice-core/internal/presence"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting GymHub back-office core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Operator directory, session trail, and session service
	operators := auth.NewOperatorRepository(db.DB)
	trail := audit.NewSQLiteRepository(db.DB)

	authSvc, err := auth.NewService(operators, auth.ServiceConfig{
		AccessSecret:     cfg.Security.JWT.AccessSecret,
		RotationSecret:   cfg.Security.JWT.RotationSecret,
		AccessTokenTTL:   cfg.Security.JWT.AccessTokenTTL,
		RotationTokenTTL: cfg.Security.JWT.RotationTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	// First-run bootstrap: seed an administrator when the directory is empty
	if _, seedErr := auth.SeedAdministrator(ctx, operators, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding administrator: %w", seedErr)
	}

	// Connect to InfluxDB (optional telemetry)
	var telemetryClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			// Telemetry is non-essential; run without it rather than abort.
			log.Warn("telemetry unavailable, continuing without it", "error", err)
			telemetryClient = nil
		} else {
			defer func() {
				log.Info("closing telemetry connection")
				if closeErr := telemetryClient.Close(); closeErr != nil {
					log.Error("error closing telemetry", "error", closeErr)
				}
			}()
			telemetryClient.SetOnError(func(err error) {
				log.Error("telemetry write error", "error", err)
			})
			log.Info("telemetry connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	} else {
		log.Info("telemetry disabled")
	}

	// Presence registry shared by the websocket hub
	registry := presence.NewRegistry()

	// API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Auth:      authSvc,
		Operators: operators,
		Presence:  registry,
		Audit:     trail,
		Telemetry: telemetryClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify infrastructure is healthy
	if err := healthCheck(ctx, db, server, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Telemetry (if enabled)
	// 3. Database

	log.Info("GymHub back-office core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GYMHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GYMHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The telemetry client may be nil when disabled or unavailable.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}
