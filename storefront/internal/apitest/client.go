package apitest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/config"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// NewClient returns an adapter pointed at b that authenticates with tokens.
func NewClient(t testing.TB, b *Backend, tokens transport.TokenSource) *transport.Client {
	t.Helper()
	c, err := transport.New(zap.NewNop(), config.API{BaseURL: b.URL(), Timeout: 5 * time.Second}, tokens)
	require.NoError(t, err)
	return c
}

// LoggedIn seeds a user and returns an adapter carrying its token.
func LoggedIn(t testing.TB, b *Backend) *transport.Client {
	t.Helper()
	u := b.AddUser("reader@example.com", "secret-pass", "Reader")
	return NewClient(t, b, StaticToken(b.IssueToken(u)))
}
