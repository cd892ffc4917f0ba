// Package redisstore keeps client key-value state in Redis.
package redisstore

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
)

type Config struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	// Prefix namespaces the keys, e.g. per device or per profile.
	Prefix string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ kvstore.Store = (*Store)(nil)

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redisstore: addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return New(rdb, cfg.Prefix), nil
}

func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "bookstore:"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", kvstore.ErrNotFound
		}
		return "", errors.Wrap(err, "redis get")
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrap(s.rdb.Set(ctx, s.prefix+key, value, 0).Err(), "redis set")
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.prefix+k)
	}
	return errors.Wrap(s.rdb.Del(ctx, full...).Err(), "redis del")
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
