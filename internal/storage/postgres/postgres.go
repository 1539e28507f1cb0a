// Package postgres implements the durable ledger state store on PostgreSQL.
// Every operation delta is one transaction guarded by the op counter row lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the shared connection pool.
type Pool struct {
	*pgxpool.Pool
}

// PoolOptions tunes the pool. Zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
	ApplicationName string // reported in pg_stat_activity
}

// NewPool connects with default options.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	return NewPoolWithOptions(ctx, dsn, PoolOptions{ApplicationName: "incentive-token"})
}

// NewPoolWithOptions connects and pings the server once before returning.
func NewPoolWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: p}, nil
}

// Close releases every connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

// SQLSTATE codes the store reacts to.
const (
	sqlStateUniqueViolation = "23505"
	sqlStateCheckViolation  = "23514"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicateKeyError(err error) bool {
	return sqlState(err) == sqlStateUniqueViolation
}

// isCheckViolation reports a rejected CHECK constraint, such as a negative balance.
func isCheckViolation(err error) bool {
	return sqlState(err) == sqlStateCheckViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
