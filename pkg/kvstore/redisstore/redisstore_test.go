package redisstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/redisstore"
)

func TestOpen_RequiresAddr(t *testing.T) {
	_, err := redisstore.Open(context.Background(), redisstore.Config{})
	require.Error(t, err)
}

// Runs against a real server only when REDIS_ADDR is set.
func TestStore_Roundtrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := redisstore.Open(ctx, redisstore.Config{Addr: addr, Prefix: "bookstore-test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "token", "abc"))
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "abc", v)

	require.NoError(t, s.Delete(ctx, "token"))
	_, err = s.Get(ctx, "token")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}
