package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/jackc/pgx/v5"
)

// KV implements storage.Backend on the kv_store table
type KV struct {
	db *DB
}

// NewKV creates a Postgres-backed key-value store
func NewKV(db *DB) *KV {
	return &KV{db: db}
}

func (r *KV) Name() string {
	return "postgres"
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT v FROM kv_store WHERE k = $1`

	var value []byte
	if err := r.db.Pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (k, v, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (r *KV) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE k = $1`
	if _, err := r.db.Pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (r *KV) DeletePrefix(ctx context.Context, prefix string) error {
	query := `DELETE FROM kv_store WHERE left(k, $1) = $2`
	if _, err := r.db.Pool.Exec(ctx, query, len([]rune(prefix)), prefix); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
