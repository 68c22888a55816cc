package vocab

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCachedSource keeps a downloaded list in redis so restarts skip the download.
type RedisCachedSource struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	inner Source

	// OnCacheError is called when redis cannot be read or written. The load itself
	// falls back to inner.
	OnCacheError func(error)
}

func NewRedisCachedSource(rdb *redis.Client, key string, ttl time.Duration, inner Source) *RedisCachedSource {
	return &RedisCachedSource{rdb: rdb, key: key, ttl: ttl, inner: inner}
}

func (s *RedisCachedSource) Load(ctx context.Context) ([]string, error) {
	if s.rdb != nil {
		cached, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
		if err != nil && err != redis.Nil {
			s.reportError(err)
		}
	}

	tokens, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.rdb == nil || len(tokens) == 0 {
		return tokens, nil
	}

	values := make([]interface{}, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.RPush(ctx, s.key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.reportError(err)
	}
	return tokens, nil
}

func (s *RedisCachedSource) reportError(err error) {
	if s.OnCacheError != nil {
		s.OnCacheError(err)
	}
}
