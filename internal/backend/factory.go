package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "coffeecounter/internal/log"
	"coffeecounter/internal/storage"
	"coffeecounter/internal/store"
	"coffeecounter/internal/store/memory"
	"coffeecounter/internal/store/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend()
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RemoteBackend:
		return f.createRemoteBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	f.logger.Info("Initialized backend", applog.FieldBackend, MemoryBackend)
	return &Result{Store: memory.New(), Cleanup: nil}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized backend", applog.FieldBackend, SQLiteBackend, "db_path", config.SQLiteDBPath)

	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

// createRemoteBackend builds Firestore wrapped in a local-fallback
// decorator. The local sqlite copy keeps serving when the remote side
// is down, and every save lands locally first.
func (f *DefaultFactory) createRemoteBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := remote.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local fallback repository: %w", err)
	}

	f.logger.Info("Initialized backend with local fallback",
		applog.FieldBackend, RemoteBackend,
		"project_id", config.FirestoreProjectID,
		"account_id", config.AccountID,
		"db_path", config.SQLiteDBPath)

	return &Result{Store: store.NewFallback(cli, repo), Cleanup: repo.Close}, nil
}
