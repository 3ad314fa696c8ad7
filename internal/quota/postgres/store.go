// Package postgres keeps one quota row per day in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store reads the latest day's row and upserts by date.
type Store struct {
	pool  pool
	table string
}

// NewStore connects to dsn.
func NewStore(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("quota.dsn is required")
	}
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewStoreWithPool(p, table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "indexing_quota"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// EnsureSchema creates the quota table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		date TEXT PRIMARY KEY,
		requests_used INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create quota table: %w", err)
	}
	return nil
}

// Load returns the most recent row, or a zero state for an empty table.
func (s *Store) Load(ctx context.Context) (indexing.QuotaState, error) {
	query := fmt.Sprintf(`SELECT date, requests_used FROM %s ORDER BY date DESC LIMIT 1`, s.table)
	var state indexing.QuotaState
	err := s.pool.QueryRow(ctx, query).Scan(&state.Date, &state.RequestsUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return indexing.QuotaState{}, nil
	}
	if err != nil {
		return indexing.QuotaState{}, fmt.Errorf("load quota row: %w", err)
	}
	return state, nil
}

// Save upserts the row for state.Date.
func (s *Store) Save(ctx context.Context, state indexing.QuotaState) error {
	query := fmt.Sprintf(`INSERT INTO %s (date, requests_used, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (date) DO UPDATE
		SET requests_used = EXCLUDED.requests_used, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, state.Date, state.RequestsUsed); err != nil {
		return fmt.Errorf("save quota row: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
