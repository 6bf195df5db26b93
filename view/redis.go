package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldSource   = "src"
	redisFieldRevision = "rev"

	defaultRedisPrefix = "yoke:view:"
)

// RedisLoader loads templates stored as Redis hashes. Each template lives
// under Prefix+name with the source in the "src" field and a revision
// counter in "rev", which serves as the freshness token.
type RedisLoader struct {
	client redis.Cmdable
	prefix string
}

// NewRedisLoader returns a loader reading hashes below prefix. An empty
// prefix uses "yoke:view:".
func NewRedisLoader(client redis.Cmdable, prefix string) *RedisLoader {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLoader{client: client, prefix: prefix}
}

func (l *RedisLoader) key(name string) string {
	return l.prefix + name
}

// Load fetches the source and revision of a template.
func (l *RedisLoader) Load(ctx context.Context, name string) (Source, error) {
	vals, err := l.client.HMGet(ctx, l.key(name), redisFieldSource, redisFieldRevision).Result()
	if err != nil {
		return Source{}, fmt.Errorf("redis hmget %s: %w", name, err)
	}

	text, ok := vals[0].(string)
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rev, _ := vals[1].(string)

	return Source{Text: text, Token: rev}, nil
}

// Fresh compares the stored revision with token.
func (l *RedisLoader) Fresh(ctx context.Context, name, token string) (bool, error) {
	rev, err := l.client.HGet(ctx, l.key(name), redisFieldRevision).Result()
	if errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return false, fmt.Errorf("redis hget %s: %w", name, err)
	}

	return rev == token, nil
}

// Store writes the source of a template and bumps its revision atomically.
func (l *RedisLoader) Store(ctx context.Context, name, text string) error {
	key := l.key(name)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisFieldSource, text)
		pipe.HIncrBy(ctx, key, redisFieldRevision, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store %s: %w", name, err)
	}

	return nil
}
