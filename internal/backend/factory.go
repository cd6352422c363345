// Package backend selects and initializes the tree store implementation the
// rest of the service runs on.
package backend

import (
	"context"
	"fmt"

	"timelog/internal/config"
	"timelog/internal/log"
	"timelog/internal/store"
	"timelog/internal/store/firebase"
	"timelog/internal/store/memory"
	"timelog/internal/store/redis"
	"timelog/internal/store/sqlite"
)

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	RedisBackend    BackendType = "redis"
	FirebaseBackend BackendType = "firebase"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend, FirebaseBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function
type Result struct {
	Tree    store.Tree
	Cleanup CleanupFunc
}

// Factory creates tree stores based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the tree store named by cfg.DataBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := BackendType(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &Result{Tree: memory.New()}, nil

	case SQLiteBackend:
		tree, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", log.FieldPath, cfg.SQLiteDBPath)
		return &Result{Tree: tree, Cleanup: tree.Close}, nil

	case RedisBackend:
		tree, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis backend: %w", err)
		}
		f.logger.Info("Initialized Redis backend", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return &Result{Tree: tree, Cleanup: tree.Close}, nil

	case FirebaseBackend:
		tree, err := firebase.New(ctx, firebase.Options{
			DatabaseURL:     cfg.FirebaseDatabaseURL,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase backend: %w", err)
		}
		f.logger.Info("Initialized Firebase backend", "database_url", cfg.FirebaseDatabaseURL)
		return &Result{Tree: tree}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}
