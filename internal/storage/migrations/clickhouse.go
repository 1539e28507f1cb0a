package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	chstore "incentive-token/internal/storage/clickhouse"
)

// ClickhouseFS holds the event log schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// RunClickhouseMigrations creates the event log database named in dsn and
// applies the embedded schema. Statements use IF NOT EXISTS, so the whole set
// is replayed on every start. The returned connection targets the event log
// database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	migs, err := loadMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}

	for _, m := range migs {
		for i, stmt := range m.statements {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply %s statement %d: %w", m.name, i+1, err)
			}
		}
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, name string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+name); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// migration is one embedded file split into executable statements.
type migration struct {
	name       string
	statements []string
}

func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	files, err := sqlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}

	migs := make([]migration, 0, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		stmts, err := splitStatements(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		migs = append(migs, migration{name: file, statements: stmts})
	}
	return migs, nil
}

// splitStatements cuts a script at semicolons that are outside single-quoted
// literals and drops -- comments. The ClickHouse driver runs one statement
// per Exec.
func splitStatements(script string) ([]string, error) {
	var (
		stmts  []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case quoted:
			cur.WriteByte(c)
			switch {
			case c == '\\' && i+1 < len(script):
				i++
				cur.WriteByte(script[i])
			case c == '\'' && i+1 < len(script) && script[i+1] == '\'':
				i++
				cur.WriteByte(script[i])
			case c == '\'':
				quoted = false
			}
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, errors.New("unterminated string literal")
	}
	flush()
	return stmts, nil
}

// databaseFromDSN returns the database path segment. It is interpolated into
// CREATE DATABASE, so only plain identifiers are accepted.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", errors.New("clickhouse dsn missing database")
	}
	for i, r := range db {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || r < '0' || r > '9') {
			return "", fmt.Errorf("clickhouse database %q is not a plain identifier", db)
		}
	}
	return db, nil
}
