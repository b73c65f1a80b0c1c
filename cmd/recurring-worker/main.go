package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hadaf/internal/amqp"
	"hadaf/internal/backend"
	"hadaf/internal/config"
	"hadaf/internal/core"
	"hadaf/internal/log"
	"hadaf/internal/services"
)

// recurring-worker runs the catch-up loop on its own, for deployments where
// the API server is scaled to zero or the schedule should advance even while
// nobody is browsing.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Backend configuration failed", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized")
		}
	}

	processor := services.NewRecurringProcessor(result.Backend, publisher)

	logger.Info("Recurring processor configured",
		"interval", cfg.CatchUpInterval,
		log.FieldBackend, cfg.DataBackend)

	// Run initial catch-up on startup.
	if count, err := processor.CatchUp(ctx, core.Today()); err != nil {
		logger.Error("Initial catch-up failed", "error", err, "transactions_created", count)
	} else {
		logger.Info("Initial catch-up complete", "transactions_created", count)
	}

	ticker := time.NewTicker(cfg.CatchUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring-worker stopped gracefully")
			return
		case <-ticker.C:
			if count, err := processor.CatchUp(ctx, core.Today()); err != nil {
				logger.Error("Catch-up failed", "error", err, "transactions_created", count)
			} else if count > 0 {
				logger.Info("Catch-up complete", "transactions_created", count)
			}
		}
	}
}
