package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/bookstore-client/storefront/config"
	"github.com/Astemirdum/bookstore-client/storefront/internal/apitest"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func TestOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, c config.Config)
	}{
		{
			name: "flags anywhere in the line",
			args: []string{"books", "list", "--search", "dune", "--api-url", "http://books.test/api", "--store=memory"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, "http://books.test/api", c.API.BaseURL)
				assert.Equal(t, config.BackendMemory, c.Store.Backend)
			},
		},
		{
			name: "log level",
			args: []string{"--log-level", "debug", "whoami"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, zapcore.DebugLevel, c.Log.LogLevel)
			},
		},
		{
			name: "unparsable log level is ignored",
			args: []string{"--log-level", "loud"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, config.Default().Log.LogLevel, c.Log.LogLevel)
			},
		},
		{
			name: "no flags keep the config",
			args: []string{"-h"},
			check: func(t *testing.T, c config.Config) {
				assert.Equal(t, config.Default(), c)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := config.Default()
			for _, op := range Options(tt.args) {
				op(&c)
			}
			tt.check(t, c)
		})
	}
}

func testConfig(t *testing.T, b *apitest.Backend) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = b.URL()
	cfg.Store.Path = filepath.Join(t.TempDir(), "session.db")
	cfg.Log.LogLevel = zapcore.ErrorLevel
	return cfg
}

func execute(cfg config.Config, in string, args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), cfg, args, strings.NewReader(in), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_SessionSurvivesRestart(t *testing.T) {
	t.Parallel()
	b := apitest.New(t)
	b.AddUser("reader@example.com", "secret-pass", "Reader")
	g := b.AddGenre("Fiction")
	b.AddBook(model.Book{Title: "Dune", Writer: "Frank Herbert", Price: 45000, Stock: 3, GenreID: g.ID})
	cfg := testConfig(t, b)

	code, _, stderr := execute(cfg, "", "books", "list")
	require.Equal(t, 1, code)
	assert.Contains(t, stderr, "Please log in first")

	code, stdout, _ := execute(cfg, "secret-pass\n", "login", "--email", "reader@example.com")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Logged in as Reader")

	code, stdout, _ = execute(cfg, "", "books", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Dune")
	assert.Contains(t, stdout, "Rp 45.000")

	last, ok := b.LastRequest()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(last.Authorization, "Bearer "))

	code, _, _ = execute(cfg, "", "logout")
	require.Equal(t, 0, code)
	code, _, stderr = execute(cfg, "", "whoami")
	require.Equal(t, 1, code)
	assert.Contains(t, stderr, "Please log in first")
}

func TestRun_StoreUnavailable(t *testing.T) {
	t.Parallel()
	b := apitest.New(t)
	cfg := testConfig(t, b)
	cfg.Store = config.Store{Backend: config.BackendRedis}
	cfg.Store.Redis.Addr = "127.0.0.1:1"

	code, _, stderr := execute(cfg, "", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "open redis store")
}
