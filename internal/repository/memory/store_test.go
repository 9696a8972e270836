package memory

import (
	"context"
	"testing"

	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	// returned slices must not alias stored data
	got[0] = '9'
	again, _ := s.Get(ctx, "a")
	assert.Equal(t, []byte("1"), again)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Set(ctx, "c1:chatSessions", []byte("[]")))
	require.NoError(t, s.Set(ctx, "c1:userData", []byte("{}")))
	require.NoError(t, s.Set(ctx, "c2:chatSessions", []byte("[]")))

	require.NoError(t, s.DeletePrefix(ctx, "c1:"))
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(ctx, "c2:chatSessions")
	assert.NoError(t, err)
}
