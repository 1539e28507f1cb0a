// Package migrations applies the embedded PostgreSQL and ClickHouse schemas.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"incentive-token/internal/storage/postgres"
)

// PostgresFS holds the ledger state schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// RunPostgresMigrations applies embedded SQL files in lexical order and
// records each in schema_migrations. Already recorded files are skipped.
// Returns the names of the files applied by this call.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	var applied []string
	for _, file := range files {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, file,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", file, err)
		}
		if exists {
			continue
		}

		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return applied, fmt.Errorf("begin tx: %w", err)
		}
		if strings.TrimSpace(string(data)) != "" {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				tx.Rollback(ctx)
				return applied, fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, file); err != nil {
			tx.Rollback(ctx)
			return applied, fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return applied, fmt.Errorf("commit migration %s: %w", file, err)
		}
		applied = append(applied, file)
	}

	return applied, nil
}

// sqlFiles lists .sql files in dir sorted by name (001_, 002_, ...).
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
