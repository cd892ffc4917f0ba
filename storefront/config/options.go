package config

import "go.uber.org/zap/zapcore"

// Option overrides a loaded value; options run after the environment so
// command line flags win.
type Option func(c *Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithAPIURL(u string) Option {
	return func(c *Config) {
		if u != "" {
			c.API.BaseURL = u
		}
	}
}

func WithStoreBackend(backend string) Option {
	return func(c *Config) {
		if backend != "" {
			c.Store.Backend = backend
		}
	}
}

func WithStorePath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.Store.Path = path
		}
	}
}
