package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements a scope on top of a relational kv_store table.
// Driver "sqlite3" backs the local scope, "postgres" can back the sync scope.
type SQLStore struct {
	db     *sqlx.DB
	scope  Scope
	logger *slog.Logger
}

// NewSQLiteStore opens a SQLite database file (or ":memory:")
func NewSQLiteStore(path string, scope Scope) (*SQLStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.Exec("PRAGMA journal_mode = WAL")
	}

	return newSQLStore(db, scope)
}

// NewPostgresStore connects to PostgreSQL using a DSN or URL
func NewPostgresStore(dsn string, scope Scope) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return newSQLStore(db, scope)
}

func newSQLStore(db *sqlx.DB, scope Scope) (*SQLStore, error) {
	s := &SQLStore{
		db:     db,
		scope:  scope,
		logger: slog.Default().With("component", "sql_store", "driver", db.DriverName(), "scope", string(scope)),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (scope, key)
	)`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM kv_store WHERE scope = ? AND key = ?`)
	err := s.db.GetContext(ctx, &value, query, string(s.scope), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	query := s.db.Rebind(`
		INSERT INTO kv_store (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query, string(s.scope), key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	s.logger.Debug("value stored", "key", key, "bytes", len(value))
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM kv_store WHERE scope = ? AND key = ?`)
	if _, err := s.db.ExecContext(ctx, query, string(s.scope), key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
