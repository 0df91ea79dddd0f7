package state

import (
	"fmt"

	"exptrack/internal/config"
	"exptrack/internal/log"
	"exptrack/internal/storage"
)

// BackendType selects where client state is persisted.
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (b BackendType) String() string { return string(b) }

func (b BackendType) IsValid() bool {
	switch b {
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Result carries the opened store and its cleanup function, which may be nil.
type Result struct {
	Store   Store
	Cleanup func() error
}

// Open builds the store selected by cfg.StateBackend.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentState)

	backend := BackendType(cfg.StateBackend)
	if !backend.IsValid() {
		return nil, fmt.Errorf("invalid state backend: %s", cfg.StateBackend)
	}

	switch backend {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite state: %w", err)
		}
		logger.Debug("Initialized SQLite state", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil
	case FileBackend:
		fs, err := NewFileStore(cfg.StateFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("Initialized file state", "path", cfg.StateFile)
		return &Result{Store: fs}, nil
	default:
		logger.Debug("Initialized in-memory state")
		return &Result{Store: NewMemoryStore()}, nil
	}
}
