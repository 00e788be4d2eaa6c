// Package postgres wraps the database/sql pool shared by the timeline store,
// case retriever, match cache and token verifier.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

type Client struct {
	DB *sql.DB
}

// New opens the pool and pings it once. An unreachable server is reported as
// ErrBoundaryUnavailable.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w: %w", cfg.Host, cfg.Port, apperrors.ErrBoundaryUnavailable, err)
	}
	slog.Info("connected to postgres", "host", cfg.Host, "database", cfg.Database, "max_open_conns", cfg.MaxOpenConns)
	return &Client{DB: db}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// InTx runs fn in a transaction, committing when it returns nil. Failing to
// begin means the database is unreachable and wraps ErrBoundaryUnavailable;
// errors from fn are returned unchanged after rollback.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w: %w", apperrors.ErrBoundaryUnavailable, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
