// Package redis shares memoized grid and simulation artifacts between
// service replicas.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/flood-risk-service/internal/config"
)

const keyPrefix = "flood-risk:"

type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Store implements pipeline.ArtifactStore on top of Redis.
type Store struct {
	client kv
}

// NewStore connects to the configured Redis instance. It returns nil when
// REDIS_ADDR is unset.
func NewStore(cfg *config.Config) *Store {
	if cfg.RedisAddr == "" {
		return nil
	}
	return &Store{client: goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

// Load returns the artifact stored under key. A missing key is not an error.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save stores an artifact for ttl.
func (s *Store) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
