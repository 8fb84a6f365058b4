package settings

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 5 * time.Minute

func cacheKey() string {
	return fmt.Sprintf("settings:%s", controlsKey)
}

// CachedStore keeps the controls document in redis so the cost lookup on the
// request path does not hit postgres every time.
type CachedStore struct {
	inner Store
	cache *redis.Client
}

func NewCachedStore(inner Store, cache *redis.Client) *CachedStore {
	return &CachedStore{inner: inner, cache: cache}
}

func (s *CachedStore) Controls(ctx context.Context) (*Controls, error) {
	var controls Controls
	err := s.cache.Get(ctx, cacheKey()).Scan(&controls)
	if err == nil {
		return &controls, nil
	} else if err != redis.Nil {
		log.Printf("settings: redis error: %v", err)
	}

	fresh, err := s.inner.Controls(ctx)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, cacheKey(), fresh, cacheTTL).Err()
	return fresh, nil
}

func (s *CachedStore) SaveControls(ctx context.Context, controls *Controls) error {
	if err := s.inner.SaveControls(ctx, controls); err != nil {
		return err
	}
	if err := s.cache.Del(ctx, cacheKey()).Err(); err != nil {
		log.Printf("settings: failed to invalidate controls cache: %v", err)
	}
	return nil
}
