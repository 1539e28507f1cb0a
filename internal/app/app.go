// Package app wires configuration to concrete stores and the ledger. It is
// shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"incentive-token/internal/config"
	"incentive-token/internal/ledger"
	"incentive-token/internal/storage"
	"incentive-token/internal/storage/boltdb"
	chstore "incentive-token/internal/storage/clickhouse"
	"incentive-token/internal/storage/memory"
	"incentive-token/internal/storage/migrations"
	pgstore "incentive-token/internal/storage/postgres"
)

// OpenStore opens the configured state store. Postgres migrations are
// applied on open. The returned cleanup releases the store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.StateStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Println("Using in-memory state store")
		return memory.NewStateStore(), func() {}, nil

	case config.StoreBolt:
		store, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("Using bolt state store at %s", cfg.BoltPath)
		return store, func() { store.Close() }, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		for _, f := range applied {
			logger.Printf("Applied postgres migration %s", f)
		}
		logger.Println("Using postgres state store")
		return pgstore.NewStateStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// OpenEventLog opens the ClickHouse event log when a DSN is configured and
// falls back to an in-memory log otherwise.
func OpenEventLog(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.EventLog, func(), error) {
	if cfg.ClickhouseDSN == "" {
		logger.Println("Using in-memory event log")
		return memory.NewEventLog(), func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return nil, nil, err
	}
	logger.Println("Using clickhouse event log")
	return chstore.NewEventLog(conn), func() { conn.Close() }, nil
}

// OpenLedger resumes the ledger held by opts.Store. The genesis settings in
// cfg are only required when the store is empty.
func OpenLedger(ctx context.Context, cfg *config.Config, opts ledger.Options) (*ledger.Ledger, error) {
	g, gerr := cfg.Genesis()
	if gerr == nil {
		return ledger.Open(ctx, g, opts)
	}

	snap, err := opts.Store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("initialize ledger: %w", gerr)
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	return ledger.Restore(snap, opts), nil
}
