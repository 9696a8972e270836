// Package sqlkv implements storage.Backend on database/sql for SQLite and MySQL.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Rrens/ddoksori/internal/storage"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect holds the per-driver SQL for the kv_store table
type Dialect struct {
	Driver string
	Schema string
	Upsert string
}

var (
	SQLite = Dialect{
		Driver: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS kv_store (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		Upsert: `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
	}

	MySQL = Dialect{
		Driver: "mysql",
		Schema: `CREATE TABLE IF NOT EXISTS kv_store (
			k VARCHAR(255) NOT NULL PRIMARY KEY,
			v LONGBLOB NOT NULL,
			updated_at BIGINT NOT NULL
		) DEFAULT CHARSET=utf8mb4`,
		Upsert: `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE v = VALUES(v), updated_at = VALUES(updated_at)`,
	}
)

// KV is a storage.Backend over a single kv_store table
type KV struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn and ensures the kv_store table exists
func Open(ctx context.Context, dialect Dialect, dsn string) (*KV, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1) // SQLite only supports one writer
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	return &KV{db: db, dialect: dialect}, nil
}

// SQLiteDSN builds a modernc DSN for a database file path
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

func (s *KV) Name() string {
	return s.dialect.Driver
}

// Close closes the connection
func (s *KV) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity
func (s *KV) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_store WHERE k = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE k = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// DeletePrefix compares a substring rather than using LIKE, so keys need no escaping
func (s *KV) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store`)
		if err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
		return nil
	}

	query := `DELETE FROM kv_store WHERE substr(k, 1, ?) = ?`
	if _, err := s.db.ExecContext(ctx, query, utf8.RuneCountInString(prefix), prefix); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
