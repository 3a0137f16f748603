package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/plugins"
)

const schema = `
	CREATE TABLE IF NOT EXISTS plugin_states (
		id            TEXT PRIMARY KEY,
		module        TEXT NOT NULL,
		path          TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		kind          TEXT NOT NULL DEFAULT '',
		enabled       BOOLEAN NOT NULL,
		registered_at TIMESTAMP NOT NULL
	)
`

// SQLStore keeps plugin states in a plugin_states table. The queries work on
// both SQLite and PostgreSQL.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database. Call Migrate before first use.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQL opens the database, checks the connection and creates the table
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", driver, err)
	}

	s := NewSQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the plugin_states table when missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create plugin_states: %w", err)
	}
	return nil
}

// Load returns every saved state ordered by module and path
func (s *SQLStore) Load(ctx context.Context) ([]plugins.State, error) {
	query := `
		SELECT id, module, path, name, kind, enabled, registered_at
		FROM plugin_states
		ORDER BY module, path
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin states: %w", err)
	}
	defer rows.Close()

	var states []plugins.State
	for rows.Next() {
		var (
			st plugins.State
			id string
		)
		if err := rows.Scan(&id, &st.Module, &st.Path, &st.Name, &st.Kind, &st.Enabled, &st.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan plugin state: %w", err)
		}
		st.ID = module.PluginID(id)
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load plugin states: %w", err)
	}
	return states, nil
}

// Save upserts states in one transaction. States not passed are left alone.
func (s *SQLStore) Save(ctx context.Context, states []plugins.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO plugin_states (id, module, path, name, kind, enabled, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			module = excluded.module,
			path = excluded.path,
			name = excluded.name,
			kind = excluded.kind,
			enabled = excluded.enabled,
			registered_at = excluded.registered_at
	`

	for _, st := range states {
		if _, err := tx.ExecContext(ctx, query,
			string(st.ID),
			st.Module,
			st.Path,
			st.Name,
			st.Kind,
			st.Enabled,
			st.RegisteredAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to save plugin state %s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plugin states: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
