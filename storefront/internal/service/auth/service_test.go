package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/storefront/internal/apitest"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/events"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/session"
)

type recorder struct {
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) { r.got = append(r.got, e) }

func setup(t *testing.T) (*Service, *session.Store, *apitest.Backend, *recorder) {
	t.Helper()
	b := apitest.New(t)
	sess, err := session.New(context.Background(), kvstore.NewMemory(), zap.NewNop())
	require.NoError(t, err)
	rec := &recorder{}
	return NewService(zap.NewNop(), apitest.NewClient(t, b, sess), sess, rec), sess, b, rec
}

func TestService_LoginStoresSession(t *testing.T) {
	t.Parallel()
	svc, sess, b, rec := setup(t)
	u := b.AddUser("alice@example.com", "correct-horse", "Alice")

	res, err := svc.Login(context.Background(), model.LoginCredentials{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, u, res.User)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, res.Token, sess.Token())

	cur, ok := svc.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, u, cur)
	assert.Equal(t, []events.Event{{Type: events.Login, UserID: u.ID}}, rec.got)
}

func TestService_LoginRejected(t *testing.T) {
	t.Parallel()
	svc, sess, b, rec := setup(t)
	b.AddUser("alice@example.com", "correct-horse", "Alice")

	_, err := svc.Login(context.Background(), model.LoginCredentials{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", errs.UserMessage(err, "Login failed"))
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, rec.got)
}

func TestService_ResponseWithoutTokenLeavesNoSession(t *testing.T) {
	t.Parallel()
	svc, sess, b, _ := setup(t)
	b.Fail(http.MethodPost, "/auth/login", http.StatusOK, `{"data":{"user":{"id":"u-1","email":"a@b.c"}}}`)

	_, err := svc.Login(context.Background(), model.LoginCredentials{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, errs.ErrUnexpectedShape)
	assert.False(t, sess.IsAuthenticated())
}

func TestService_RegisterThenUseToken(t *testing.T) {
	t.Parallel()
	svc, sess, b, rec := setup(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, model.RegisterData{
		Name:                 "Bob",
		Email:                "bob@example.com",
		Password:             "long-enough",
		PasswordConfirmation: "long-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", res.User.Email)
	assert.True(t, sess.IsAuthenticated())
	require.Len(t, rec.got, 1)
	assert.Equal(t, events.Register, rec.got[0].Type)

	// the adapter now carries the stored token
	_, err = apitest.NewClient(t, b, sess).Get(ctx, "/books", nil)
	require.NoError(t, err)
	last, _ := b.LastRequest()
	assert.Equal(t, "Bearer "+res.Token, last.Authorization)
}

func TestService_Logout(t *testing.T) {
	t.Parallel()
	svc, sess, b, rec := setup(t)
	ctx := context.Background()
	u := b.AddUser("alice@example.com", "correct-horse", "Alice")
	_, err := svc.Login(ctx, model.LoginCredentials{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token())
	require.Len(t, rec.got, 2)
	assert.Equal(t, events.Event{Type: events.Logout, UserID: u.ID}, rec.got[1])

	// logging out twice is harmless and reports nothing
	require.NoError(t, svc.Logout(ctx))
	assert.Len(t, rec.got, 2)
}
