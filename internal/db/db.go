// Package db provides PostgreSQL storage for submitted shipment documents, comparison rules,
// per-user AI settings and saved analysis history.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRuleNotFound is returned when a rule to update or delete does not exist.
var ErrRuleNotFound = errors.New("comparison rule not found")

// ErrDefaultRule is returned when deleting a default rule.
var ErrDefaultRule = errors.New("default comparison rules cannot be deleted")

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// nonNil keeps text[] columns non-null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
