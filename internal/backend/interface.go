package backend

import (
	"context"

	"hadaf/internal/repo"
)

// Backend bundles every port a store must serve. The HTTP layer, the
// recurring scheduler and the backup tool all hold a Backend and never
// know which concrete store answers.
type Backend interface {
	repo.AccountReader
	repo.AccountWriter
	repo.TransactionReader
	repo.TransactionWriter
	repo.RecurringReader
	repo.RecurringWriter
	repo.SettingsReader
	repo.SettingsWriter
	repo.SnapshotReplacer
}

// CleanupFunc releases whatever resources the backend holds open.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// File store specific
	DataFilePath string
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	FileBackend   BackendType = "file"
)

// String implements fmt.Stringer.
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, FileBackend:
		return true
	default:
		return false
	}
}

// Validate checks that the configuration is complete for the chosen type.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return errInvalidType(c.Type)
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errMissingPath("SQLITE_DB_PATH")
		}
	case FileBackend:
		if c.DataFilePath == "" {
			return errMissingPath("DATA_FILE_PATH")
		}
	}
	return nil
}
