// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/flatearth/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// DBTX is the subset of *pgxpool.Pool the store needs. pgxmock pools satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db    DBTX
	clock *storage.Clock
}

// New wraps an open pool. last is the newest review timestamp already stored.
func New(db DBTX, last int64) *Store {
	return &Store{db: db, clock: storage.NewClock(last)}
}

// Open connects to dsn, applies the schema and resumes the creation clock.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	var last int64
	if err := pool.QueryRow(ctx, "SELECT COALESCE(MAX(created_at), 0) FROM reviews").Scan(&last); err != nil {
		pool.Close()
		return nil, fmt.Errorf("read last review timestamp: %w", err)
	}

	return New(pool, last), nil
}

// Ping verifies the connection pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
