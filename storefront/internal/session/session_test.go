package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/sqlstore"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

var alice = model.User{ID: "u-1", Email: "alice@example.com", Name: "Alice"}

// flakyKV fails writes of one key.
type flakyKV struct {
	*kvstore.Memory
	failKey string
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestStore_LoginLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s, err := New(ctx, kv, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Login(ctx, alice, "tok"))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok", s.Token())
	u, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, alice, u)

	tok, err := kv.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	_, ok = s.CurrentUser()
	assert.False(t, ok)
	_, err = kv.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestStore_LoginRejectsPartialSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name  string
		user  model.User
		token string
	}{
		{name: "no token", user: alice},
		{name: "no user id", user: model.User{Email: "x@y.z"}, token: "tok"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kv := kvstore.NewMemory()
			s, err := New(ctx, kv, zap.NewNop())
			require.NoError(t, err)
			require.ErrorIs(t, s.Login(ctx, tt.user, tt.token), ErrIncomplete)
			assert.False(t, s.IsAuthenticated())
			_, err = kv.Get(ctx, KeyUser)
			assert.ErrorIs(t, err, kvstore.ErrNotFound)
		})
	}
}

func TestStore_LoginRollsBackUserOnTokenFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &flakyKV{Memory: kvstore.NewMemory(), failKey: KeyToken}
	s, err := New(ctx, kv, zap.NewNop())
	require.NoError(t, err)

	require.Error(t, s.Login(ctx, alice, "tok"))
	assert.False(t, s.IsAuthenticated())
	_, err = kv.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestStore_RestoreFromPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name     string
		seed     map[string]string
		wantAuth bool
		purged   bool
	}{
		{name: "empty"},
		{
			name:     "valid",
			seed:     map[string]string{KeyToken: "tok", KeyUser: `{"id":"u-1","email":"alice@example.com","name":"Alice"}`},
			wantAuth: true,
		},
		{name: "undefined user", seed: map[string]string{KeyToken: "tok", KeyUser: "undefined"}, purged: true},
		{name: "null user", seed: map[string]string{KeyToken: "tok", KeyUser: "null"}, purged: true},
		{name: "malformed user", seed: map[string]string{KeyToken: "tok", KeyUser: `{"id":`}, purged: true},
		{name: "user without id", seed: map[string]string{KeyToken: "tok", KeyUser: `{"email":"a@b.c"}`}, purged: true},
		{name: "user without token", seed: map[string]string{KeyUser: `{"id":"u-1"}`}, purged: true},
		{name: "token without user", seed: map[string]string{KeyToken: "tok"}, purged: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kv := kvstore.NewMemory()
			for k, v := range tt.seed {
				require.NoError(t, kv.Set(ctx, k, v))
			}
			s, err := New(ctx, kv, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, s.IsAuthenticated())
			_, hasUser := s.CurrentUser()
			assert.Equal(t, tt.wantAuth, hasUser)
			if !tt.wantAuth {
				assert.Empty(t, s.Token())
			}
			if tt.purged {
				for _, k := range []string{KeyToken, KeyUser} {
					_, err := kv.Get(ctx, k)
					assert.ErrorIs(t, err, kvstore.ErrNotFound, k)
				}
			}
		})
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	kv, err := sqlstore.OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	s, err := New(ctx, kv, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, alice, "tok"))
	require.NoError(t, kv.Close())

	kv, err = sqlstore.OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	s, err = New(ctx, kv, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
	u, _ := s.CurrentUser()
	assert.Equal(t, alice, u)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(ctx, kvstore.NewMemory(), zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Token()
				_, _ = s.CurrentUser()
				_ = s.IsAuthenticated()
			}
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Login(ctx, alice, "tok"))
		require.NoError(t, s.Logout(ctx))
	}
	wg.Wait()
}

func TestNew_NilStore(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), nil, zap.NewNop())
	assert.Error(t, err)
}
