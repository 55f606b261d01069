// Package database owns the connection lifecycle for the reporting backend.
//
// There is no package-level pool: the entry point builds one Provider from
// configuration, injects it into the readers, and closes it on shutdown.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// Provider hands out pooled Postgres connections, one per request.
type Provider struct {
	db *sql.DB
}

// NewProvider opens the pool and verifies connectivity. A missing or bad
// DSN fails here, at startup, not on the first request.
func NewProvider(dsn string) (*Provider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database: DSN is not configured")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Provider{db: db}, nil
}

// Acquire checks one connection out of the pool for the duration of a
// request. Every checkout is verified with a round-trip ping; a connection
// that fails the ping is discarded and the checkout is retried once.
// Callers must Close the returned connection on every exit path.
func (p *Provider) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	pingErr := conn.PingContext(ctx)
	if pingErr == nil {
		return conn, nil
	}
	slog.WarnContext(ctx, "pooled connection failed health check, discarding", "error", pingErr)
	conn.Close()

	conn, err = p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection after failed health check: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connection health check: %w", err)
	}
	return conn, nil
}

// DB exposes the underlying pool for migrations.
func (p *Provider) DB() *sql.DB {
	return p.db
}

// Close releases the pool. Owned by the process entry point.
func (p *Provider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
