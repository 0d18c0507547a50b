// Package cli consolidates the boot sequence shared by cmd/budgetd and
// cmd/process-recurring: env file, configuration, logging, the store backend
// and the optional event publisher.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"budgetd/internal/backend"
	"budgetd/internal/config"
	"budgetd/internal/events"
	"budgetd/internal/log"
	"budgetd/internal/store"
)

// LoadEnvFile loads .env for local development. Missing files are fine;
// production configures through real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Setup loads and validates configuration and installs the process logger.
// Exits the process on invalid configuration.
func Setup(component string) (*config.Config, *log.Logger) {
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore opens and initializes the configured store backend. Exits the
// process on failure.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) store.Store {
	st, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err)
		os.Exit(1)
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		logger.Error("Failed to initialize store", log.FieldError, err)
		os.Exit(1)
	}
	return st
}

// SetupPublisher connects the AMQP publisher when a broker is configured.
// Returns nil when AMQP is not configured or the broker is unreachable; the
// engine runs without events either way.
func SetupPublisher(cfg *config.Config, logger *log.Logger) *events.Publisher {
	if cfg.AMQPURL == "" {
		return nil
	}
	publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP publisher, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return publisher
}
