package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetDefault(t *testing.T) {
	s := setupStore(t)

	v, err := s.Get(context.Background(), "fontSize", "medium")
	require.NoError(t, err)
	assert.Equal(t, "medium", v)
}

func TestStore_SetThenGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "fontSize", "large"))
	v, err := s.Get(ctx, "fontSize", "medium")
	require.NoError(t, err)
	assert.Equal(t, "large", v)

	require.NoError(t, s.Set(ctx, "fontSize", "small"))
	v, err = s.Get(ctx, "fontSize", "medium")
	require.NoError(t, err)
	assert.Equal(t, "small", v)

	v, err = s.Get(ctx, "briefMode", "short")
	require.NoError(t, err)
	assert.Equal(t, "short", v, "other keys are untouched")
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "briefMode", "full"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "briefMode", "short")
	require.NoError(t, err)
	assert.Equal(t, "full", v)
}

func TestStore_Ping(t *testing.T) {
	s := setupStore(t)
	assert.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
