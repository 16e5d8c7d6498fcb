package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bayfront/internal/daterange"
)

const cacheVersionKey = "gcal:events:version"

// eventCache is a Redis-backed cache for ListEvents results. Every write
// through the gateway bumps a version counter that is baked into each
// cache key, so stale entries become unreachable and expire on their own.
type eventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// UseRedisCache enables caching of ListEvents responses.
func (s *Service) UseRedisCache(client *redis.Client, ttl time.Duration) {
	s.cache = &eventCache{client: client, ttl: ttl}
}

func (s *Service) cacheGet(ctx context.Context, r daterange.Range) ([]Event, bool) {
	if s.cache == nil {
		return nil, false
	}

	key, err := s.cache.key(ctx, r.String())
	if err != nil {
		return nil, false
	}
	data, err := s.cache.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		s.logger.Warn().Err(err).Msg("dropping corrupt cache entry")
		s.cache.client.Del(ctx, key)
		return nil, false
	}
	return events, true
}

func (s *Service) cachePut(ctx context.Context, r daterange.Range, events []Event) {
	if s.cache == nil {
		return
	}

	key, err := s.cache.key(ctx, r.String())
	if err != nil {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := s.cache.client.Set(ctx, key, data, s.cache.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("cache write failed")
	}
}

// cacheInvalidate bumps the version counter so every prior list key is
// orphaned. Availability checks that follow a write always see fresh data.
func (s *Service) cacheInvalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}
}

func (c *eventCache) key(ctx context.Context, rangeKey string) (string, error) {
	version, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("gcal:events:v%d:%s", version, rangeKey), nil
}
