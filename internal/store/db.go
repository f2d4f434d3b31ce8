package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"schooldesk/internal/config"
	"schooldesk/internal/rowstore"
)

// DB wraps the sql.DB behind a SQL row store.
type DB struct {
	Client *sql.DB
}

// NewDB opens a Postgres connection through pgx with sane pool defaults.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open(rowstore.Postgres.Name, connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(ctx)
}

// NewSQLite opens a SQLite file. SQLite allows one writer at a time, so the
// pool is capped at a single connection.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open(rowstore.SQLite.Name, "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &DB{Client: db}, db.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// OpenRows builds the row store selected by cfg. The returned close func is
// never nil.
func OpenRows(ctx context.Context, cfg config.App) (rowstore.Store, func() error, error) {
	noop := func() error { return nil }

	var (
		db      *DB
		dialect rowstore.Dialect
		err     error
	)
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return rowstore.NewMemory(nil), noop, nil
	case config.StoreSQLite:
		db, err = NewSQLite(ctx, cfg.SQLitePath)
		dialect = rowstore.SQLite
	case config.StorePostgres:
		db, err = NewDB(ctx, cfg.DatabaseURL)
		dialect = rowstore.Postgres
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		_ = db.Close()
		return nil, noop, fmt.Errorf("open %s: %w", cfg.StoreBackend, err)
	}

	rows, err := rowstore.NewSQL(ctx, db.Client, dialect)
	if err != nil {
		_ = db.Close()
		return nil, noop, err
	}
	return rows, db.Close, nil
}
