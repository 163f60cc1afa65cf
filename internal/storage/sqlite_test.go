package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore_GetSetDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "volume")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "volume", "0.6"))
	v, err := s.Get(ctx, "volume")
	require.NoError(t, err)
	assert.Equal(t, "0.6", v)

	require.NoError(t, s.Set(ctx, "volume", "0.3"))
	v, err = s.Get(ctx, "volume")
	require.NoError(t, err)
	assert.Equal(t, "0.3", v, "set should overwrite")

	require.NoError(t, s.Set(ctx, "queue", "[]"))
	require.NoError(t, s.Delete(ctx, "volume", "queue", "missing"))

	_, err = s.Get(ctx, "volume")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = s.Get(ctx, "queue")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestSQLiteStore_DeleteNoKeys(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background()))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	ctx := context.Background()

	s, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "currentIndex", "2"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "currentIndex")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("", zap.NewNop())
	assert.Error(t, err)
}

func TestSQLiteStore_NotifiesExternalWrites(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")

	other, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, other.Set(context.Background(), "volt_playlists", "[]"))

	select {
	case <-s.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification for a write from another connection")
	}
}

func TestSQLiteStore_IgnoresOwnWrites(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Start())

	require.NoError(t, s.Set(context.Background(), "searchHistory", `["a"]`))

	select {
	case <-s.Changes():
		t.Fatal("own writes must not be reported as external changes")
	case <-time.After(300 * time.Millisecond):
	}
}
