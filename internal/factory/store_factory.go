package factory

import (
	"fmt"

	"github.com/phishschool/backend/internal/adapters/store"
	"github.com/phishschool/backend/internal/config"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates campaign stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore() (core.Store, error) {
	c := f.cfg.GetStore()

	switch c.Type {
	case "postgres":
		if c.PostgresDSN == "" {
			return nil, fmt.Errorf("store.postgres_dsn is required for the postgres store")
		}
		return store.NewPostgresStore(c.PostgresDSN, f.logger)
	case "sqlite":
		if c.SQLitePath == "" {
			return nil, fmt.Errorf("store.sqlite_path is required for the sqlite store")
		}
		return store.NewSQLiteStore(c.SQLitePath, f.logger)
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.Type)
	}
}
