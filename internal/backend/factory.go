package backend

import (
	"context"
	"fmt"
	"log/slog"

	"hadaf/internal/filestore"
	"hadaf/internal/storage"
)

func errInvalidType(t BackendType) error {
	return fmt.Errorf("invalid backend type: %s", t)
}

func errMissingPath(envVar string) error {
	return fmt.Errorf("%s is required for backend type", envVar)
}

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FileBackend:
		return f.createFileBackend(config)
	default:
		return nil, errInvalidType(config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := filestore.Open(config.DataFilePath)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_file", config.DataFilePath)

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // every write is flushed immediately
	}, nil
}
