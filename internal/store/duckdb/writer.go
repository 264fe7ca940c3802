package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb database/sql driver

	"warehousetogo/internal/schema"
	"warehousetogo/internal/store"
)

func init() {
	store.Register("duckdb", open)
}

type writer struct {
	db *sql.DB
}

func open(ctx context.Context, cfg store.Config) (store.Writer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("duckdb: path must not be empty")
	}
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}
	return &writer{db: db}, nil
}

func (w *writer) CreateOrReplace(ctx context.Context, t store.Table, cols []schema.Column) error {
	if _, err := w.db.ExecContext(ctx, createSchemaSQL(t)); err != nil {
		return &store.WriteError{Table: t.String(), Op: "create schema", Err: err}
	}
	if _, err := w.db.ExecContext(ctx, createTableSQL(t, cols)); err != nil {
		return &store.WriteError{Table: t.String(), Op: "create", Err: err}
	}
	return nil
}

// Append inserts one batch inside a transaction with a prepared statement.
// DuckDB has no bulk-load path through database/sql, but a transaction keeps
// batch inserts fast enough for mirroring volumes.
func (w *writer) Append(ctx context.Context, t store.Table, cols []schema.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		names[i] = quoteIdent(strings.ToLower(c.Name))
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualified(t), strings.Join(names, ", "), strings.Join(placeholders, ", "))

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &store.WriteError{Table: t.String(), Op: "begin", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, &store.WriteError{Table: t.String(), Op: "prepare", Err: err}
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(cols) {
			_ = tx.Rollback()
			return 0, &store.WriteError{
				Table: t.String(), Op: "append",
				Err: fmt.Errorf("row has %d values, table has %d columns", len(row), len(cols)),
			}
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, &store.WriteError{Table: t.String(), Op: "append", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &store.WriteError{Table: t.String(), Op: "commit", Err: err}
	}
	return int64(len(rows)), nil
}

func (w *writer) Close() error { return w.db.Close() }
