package migrations

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/*.sql
var files embed.FS

// Migration is one embedded schema file.
type Migration struct {
	Version string
	SQL     string
}

// List returns the embedded migrations ordered by version.
func List() ([]Migration, error) {
	names, err := fs.Glob(files, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, Migration{Version: name[len("sql/") : len(name)-len(".sql")], SQL: string(b)})
	}

	return out, nil
}

// Apply runs the migrations that are not recorded in schema_migrations yet, each in its own transaction.
func Apply(ctx context.Context, db *pgxpool.Pool) error {
	const createStmt = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	apply_time TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := db.Exec(ctx, createStmt); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	ms, err := List()
	if err != nil {
		return err
	}

	for _, m := range ms {
		applied, err := apply(ctx, db, m)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Version, err)
		}
		if applied {
			slog.InfoContext(ctx, "migrations: applied", "version", m.Version)
		}
	}

	return nil
}

func apply(ctx context.Context, db *pgxpool.Pool, m Migration) (_ bool, err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	// Concurrent instances wait here instead of applying twice.
	if _, err = tx.Exec(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE;`); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}

	var version string
	err = tx.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = $1;`, m.Version).Scan(&version)
	switch {
	case err == nil:
		return false, tx.Rollback(ctx)
	case !stderrors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("check version: %w", err)
	}

	if _, err = tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}
	if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1);`, m.Version); err != nil {
		return false, fmt.Errorf("record version: %w", err)
	}

	return true, tx.Commit(ctx)
}
