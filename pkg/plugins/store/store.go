package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/modhost/pkg/plugins"
)

// ErrUnknownDriver is returned by Open for unsupported drivers
var ErrUnknownDriver = errors.New("unknown store driver")

// Store loads and saves plugin states
type Store interface {
	Load(ctx context.Context) ([]plugins.State, error)
	Save(ctx context.Context, states []plugins.State) error
	Close() error
}

// Open connects to the backend named by driver
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite3", "postgres":
		return OpenSQL(driver, dsn)
	case "redis":
		return OpenRedis(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
