package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/client/migrations"
	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.Apply(ctx, db)
}

// InitDatabase opens the local SQLite store at dsn and migrates it. The pool
// is limited to one connection: SQLite serializes writers anyway, and a
// single connection makes every statement atomic with respect to the others.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
