package circuit_breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errService = errors.New("service error")

func ok() error   { return nil }
func fail() error { return errService }

func Test_circuitBreaker_Call(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newWithClock(Settings{
		Window:           10,
		Cooldown:         2 * time.Second,
		FailureRatio:     0.3,
		RecoveryRequests: 2,
	}, clock.now)

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(ok))
	}
	require.Equal(t, Closed, cb.State())

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Call(fail), errService)
	}
	require.Equal(t, Open, cb.State())
	require.ErrorIs(t, cb.Call(ok), ErrOpenCB)

	clock.advance(3 * time.Second)
	require.NoError(t, cb.Call(ok))
	require.Equal(t, HalfOpen, cb.State())
	require.NoError(t, cb.Call(ok))
	require.Equal(t, Closed, cb.State())

	for i := 0; i < 3; i++ {
		_ = cb.Call(fail)
	}
	require.Equal(t, Open, cb.State())
	clock.advance(3 * time.Second)
	require.ErrorIs(t, cb.Call(fail), errService)
	require.Equal(t, Open, cb.State(), "a failed probe reopens the breaker")
}

func Test_circuitBreaker_IsFailure(t *testing.T) {
	errClient := errors.New("bad request")
	cb := newWithClock(Settings{
		Window:       4,
		Cooldown:     time.Second,
		FailureRatio: 0.5,
		IsFailure:    func(err error) bool { return err != nil && !errors.Is(err, errClient) },
	}, time.Now)

	for i := 0; i < 10; i++ {
		require.ErrorIs(t, cb.Call(func() error { return errClient }), errClient)
	}
	require.Equal(t, Closed, cb.State())

	cb.Reset()
	require.Equal(t, Closed, cb.State())
}
