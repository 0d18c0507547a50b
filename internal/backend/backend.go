// Package backend constructs the configured Store implementation.
package backend

import (
	"fmt"

	"budgetd/internal/config"
	"budgetd/internal/log"
	"budgetd/internal/store"
	"budgetd/internal/store/jsonstore"
	"budgetd/internal/store/sqlite"
)

// Open creates the store selected by cfg.DataBackend. The returned store has
// not been initialized; callers run Init and own Close.
func Open(cfg *config.Config, logger *log.Logger) (store.Store, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	switch cfg.DataBackend {
	case "json":
		st := jsonstore.New(cfg.DataDir)
		logger.Info("Initialized JSON file backend", "data_dir", cfg.DataDir)
		return st, nil
	case "sqlite":
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
