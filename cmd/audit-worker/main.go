package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hadaf/internal/amqp"
	"hadaf/internal/config"
	"hadaf/internal/log"
)

// audit-worker consumes transaction events and appends them to a CSV audit
// trail. It is the out-of-band record of everything the ledger stored,
// including transactions the scheduler materialized while nobody watched.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting audit-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trail, err := openAuditTrail(cfg.AuditLogPath)
	if err != nil {
		logger.Error("Failed to open audit trail", "error", err, "path", cfg.AuditLogPath)
		os.Exit(1)
	}
	defer trail.Close()

	logger.Info("Audit trail ready", "path", cfg.AuditLogPath)

	err = amqp.RunConsumer(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, trail.Record)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Audit-worker stopped gracefully")
}

// auditTrail appends one CSV row per event, flushing after every record so a
// crash loses at most the row being written.
type auditTrail struct {
	file   *os.File
	writer *csv.Writer
}

func openAuditTrail(path string) (*auditTrail, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat audit file: %w", err)
	}

	t := &auditTrail{file: file, writer: csv.NewWriter(file)}

	// Header only on a fresh file.
	if info.Size() == 0 {
		header := []string{"recorded_at", "transaction_id", "account_id", "type", "category", "amount_cents", "date", "is_recurring"}
		if err := t.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		t.writer.Flush()
		if err := t.writer.Error(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return t, nil
}

func (t *auditTrail) Record(msg *amqp.TransactionEventMessage) error {
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		msg.TransactionID,
		msg.AccountID,
		string(msg.Kind),
		msg.Category,
		strconv.FormatInt(msg.AmountCents, 10),
		msg.Date.String(),
		strconv.FormatBool(msg.Recurring),
	}
	if err := t.writer.Write(row); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	t.writer.Flush()
	return t.writer.Error()
}

func (t *auditTrail) Close() error {
	t.writer.Flush()
	return t.file.Close()
}
