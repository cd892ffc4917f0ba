package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/sqlstore"
)

func newStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.OpenSQLite(context.Background(), path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, filepath.Join(t.TempDir(), "nested", "session.db"))

	_, err := s.Get(ctx, "token")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, "token", "t-1"))
	require.NoError(t, s.Set(ctx, "user", `{"id":"u1","email":"a@b.c"}`))
	require.NoError(t, s.Set(ctx, "token", "t-2"))

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "t-2", v)

	require.NoError(t, s.Delete(ctx, "token", "user"))
	_, err = s.Get(ctx, "user")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
	require.NoError(t, s.Delete(ctx))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := sqlstore.OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "token", "persisted"))
	require.NoError(t, first.Close())

	second := newStore(t, path)
	v, err := second.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "persisted", v)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "mysql"}, zap.NewNop())
	require.Error(t, err)
}
