// Package migrations holds the embedded PostgreSQL schema and applies it
// in version order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed sql/*.up.sql
var files embed.FS

// Migration is one versioned schema step
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Load reads the embedded migrations sorted by version
func Load() ([]Migration, error) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		name := e.Name()
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has invalid version: %w", name, err)
		}
		body, err := fs.ReadFile(files, "sql/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		out = append(out, Migration{Version: version, Name: strings.TrimSuffix(name, ".up.sql"), SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Execer is the minimal database surface the runner needs. InTx runs fn
// in one transaction, committed only when fn returns nil.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	InTx(ctx context.Context, fn func(tx Execer) error) error
}

const createVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Apply runs every migration not yet recorded in schema_migrations
func Apply(ctx context.Context, db Execer, logger *zap.Logger) error {
	migrations, err := Load()
	if err != nil {
		return err
	}

	if err := db.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := db.InTx(ctx, func(tx Execer) error {
			if err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("migration %s failed: %w", m.Name, err)
			}
			if err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
			}
			return nil
		})
		if err != nil {
			logger.Error("migration rolled back", zap.String("migration", m.Name), zap.Error(err))
			return err
		}
		logger.Info("migration applied", zap.String("migration", m.Name))
	}

	return nil
}

type poolExecer struct {
	pool *pgxpool.Pool
}

// FromPool adapts a pgx pool
func FromPool(pool *pgxpool.Pool) Execer {
	return poolExecer{pool: pool}
}

func (p poolExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := p.pool.Exec(ctx, query, args...)
	return err
}

func (p poolExecer) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}

	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

func (p poolExecer) InTx(ctx context.Context, fn func(tx Execer) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(pgxTxExecer{tx: tx})
	})
}

type pgxTxExecer struct {
	tx pgx.Tx
}

func (t pgxTxExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.Exec(ctx, query, args...)
	return err
}

func (t pgxTxExecer) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	return nil, fmt.Errorf("applied versions are read outside a migration transaction")
}

func (t pgxTxExecer) InTx(ctx context.Context, fn func(tx Execer) error) error {
	return fn(t)
}

type sqlExecer struct {
	db *sql.DB
}

// sqlTxExecer runs statements inside an open database/sql transaction
type sqlTxExecer struct {
	tx *sql.Tx
}

func (t sqlTxExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t sqlTxExecer) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	return nil, fmt.Errorf("applied versions are read outside a migration transaction")
}

func (t sqlTxExecer) InTx(ctx context.Context, fn func(tx Execer) error) error {
	return fn(t)
}

// FromSQL adapts a database/sql handle
func FromSQL(db *sql.DB) Execer {
	return sqlExecer{db: db}
}

func (s sqlExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s sqlExecer) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (s sqlExecer) InTx(ctx context.Context, fn func(tx Execer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(sqlTxExecer{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
