package sqlkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *KV {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	kv, err := Open(context.Background(), SQLite, SQLiteDSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestKV_SQLite(t *testing.T) {
	ctx := context.Background()
	kv := openSQLite(t)

	assert.Equal(t, "sqlite", kv.Name())

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "c1:chatSessions", []byte(`[]`)))
	require.NoError(t, kv.Set(ctx, "c1:chatSessions", []byte(`[{"id":"1"}]`)))

	got, err := kv.Get(ctx, "c1:chatSessions")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, kv.Delete(ctx, "c1:chatSessions"))
	_, err = kv.Get(ctx, "c1:chatSessions")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKV_SQLiteDeletePrefix(t *testing.T) {
	ctx := context.Background()
	kv := openSQLite(t)

	require.NoError(t, kv.Set(ctx, "c1:chatSessions", []byte(`[]`)))
	require.NoError(t, kv.Set(ctx, "c1:userData", []byte(`{}`)))
	require.NoError(t, kv.Set(ctx, "c10:chatSessions", []byte(`[]`)))

	require.NoError(t, kv.DeletePrefix(ctx, "c1:"))

	_, err := kv.Get(ctx, "c1:userData")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = kv.Get(ctx, "c10:chatSessions")
	assert.NoError(t, err)

	require.NoError(t, kv.DeletePrefix(ctx, ""))
	_, err = kv.Get(ctx, "c10:chatSessions")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKV_MySQL(t *testing.T) {
	t.Skip("Requires MySQL connection - run as integration test")
}
