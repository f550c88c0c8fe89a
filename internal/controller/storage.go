package controller

import (
	"fmt"

	"vmacro/internal/config"
	"vmacro/internal/repository"
	"vmacro/internal/repository/jsonstore"
	"vmacro/internal/repository/sqlstore"
)

// OpenBackend opens the configured logic store. resolve makes relative
// paths absolute.
func OpenBackend(cfg config.StorageConfig, resolve func(string) string) (repository.Backend, error) {
	path := cfg.Path
	if resolve != nil {
		path = resolve(path)
	}
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlstore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.BackendJSON, "":
		s, err := jsonstore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
