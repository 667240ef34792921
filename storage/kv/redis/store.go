package rediskv

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
)

// Store is a core.KVStore backed by Redis strings.
type Store struct {
	client *redis.Client
	ttl    time.Duration // 0: no expiration
}

var _ core.KVStore = (*Store)(nil)

// NewClient connects to the configured Redis server and pings it.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Redis.Addr)
	}
	return client, nil
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrap(s.client.Set(ctx, key, value, s.ttl).Err(), "redis SET")
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "redis GET")
	}
	return val, true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, key).Err(), "redis DEL")
}
