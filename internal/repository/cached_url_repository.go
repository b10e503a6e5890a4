package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urlkit/gateway/internal/model"
)

// CachedMappingStore decorates a MappingStore with a Redis cache-aside
// layer on the resolve path. The cache is strictly advisory: entries
// carry a TTL capped by the mapping's remaining lifetime, cache hits
// are still expiry-checked against now, and any cache failure falls
// through to the inner store.
type CachedMappingStore struct {
	inner  MappingStore
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedMappingStore wraps inner with a cache. A nil cache client
// disables caching, which keeps test wiring simple.
func NewCachedMappingStore(inner MappingStore, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedMappingStore {
	return &CachedMappingStore{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(code string) string {
	return fmt.Sprintf("mapping:%s", code)
}

// PutIfAbsent delegates to the inner store and primes the cache on
// success. A failed prime is logged and ignored; the insert already
// happened.
func (s *CachedMappingStore) PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	if err := s.inner.PutIfAbsent(ctx, mapping); err != nil {
		return err
	}
	s.store(ctx, mapping)
	return nil
}

// GetActive tries the cache first, then the inner store. Expiry is
// re-checked on cache hits so a stale cached record can never resolve.
func (s *CachedMappingStore) GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey(code)).Bytes()
		if err == nil {
			var mapping model.URLMapping
			if err := json.Unmarshal(data, &mapping); err == nil {
				if !mapping.ActiveAt(now) {
					return nil, ErrExpired
				}
				return &mapping, nil
			}
			s.logger.WarnContext(ctx, "dropping undecodable cache entry", slog.String("short_code", code))
			s.cache.Del(ctx, cacheKey(code))
		} else if err != redis.Nil {
			s.logger.WarnContext(ctx, "cache read failed, falling back to store",
				slog.String("short_code", code),
				slog.String("error", err.Error()))
		}
	}

	mapping, err := s.inner.GetActive(ctx, code, now)
	if err != nil {
		return nil, err
	}
	s.store(ctx, mapping)
	return mapping, nil
}

// ListByOwner is not cached; listings are off the critical path.
func (s *CachedMappingStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error) {
	return s.inner.ListByOwner(ctx, ownerID)
}

func (s *CachedMappingStore) store(ctx context.Context, mapping *model.URLMapping) {
	if s.cache == nil {
		return
	}

	// Never cache past the mapping's own expiry.
	ttl := s.ttl
	if remaining := time.Until(mapping.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(mapping.ShortCode), data, ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("short_code", mapping.ShortCode),
			slog.String("error", err.Error()))
	}
}

var _ MappingStore = (*CachedMappingStore)(nil)
