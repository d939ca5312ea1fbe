// Package db provides database connection handling for keytier.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultMaxOpenConns bounds the pool; a tiering run touches the
	// database from a handful of goroutines at most.
	DefaultMaxOpenConns = 25
	DefaultMaxIdleConns = 5
	DefaultConnLifetime = 5 * time.Minute

	pingTimeout = 5 * time.Second
)

// Open opens a PostgreSQL connection pool, applies pool limits, and verifies
// connectivity with a ping before returning.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool.SetMaxOpenConns(DefaultMaxOpenConns)
	pool.SetMaxIdleConns(DefaultMaxIdleConns)
	pool.SetConnMaxLifetime(DefaultConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
