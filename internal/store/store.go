// Package store holds the PostingStore backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/amishk599/jobtrail/internal/config"
	"github.com/amishk599/jobtrail/internal/model"
)

// ErrNotFound is returned by UpdateStatus when no posting has the given URL.
var ErrNotFound = errors.New("posting not found")

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (model.PostingStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return NewSQLiteStore(cfg.Path)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table)
	case config.DriverSupabase:
		return NewSupabaseStore(cfg.URL, cfg.Key, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
