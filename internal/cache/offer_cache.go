// internal/cache/offer_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopcore-service/internal/domain/offer"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const offerKeyPrefix = "offer:code:"

// OfferCache is a best-effort read-through cache of offer records by code.
// A short TTL keeps usage counts from going too stale between redemptions;
// Invalidate is called after every write.
type OfferCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewOfferCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *OfferCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OfferCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached offer or nil on a miss. Redis failures are logged
// and treated as misses; the cache never fails a request.
func (c *OfferCache) Get(ctx context.Context, code string) *offer.Offer {
	data, err := c.client.Get(ctx, offerKeyPrefix+code).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("offer cache read failed", zap.String("code", code), zap.Error(err))
		return nil
	}

	var o offer.Offer
	if err := json.Unmarshal(data, &o); err != nil {
		c.logger.Warn("offer cache entry corrupt", zap.String("code", code), zap.Error(err))
		return nil
	}
	return &o
}

func (c *OfferCache) Set(ctx context.Context, o *offer.Offer) {
	data, err := json.Marshal(o)
	if err != nil {
		c.logger.Warn("failed to marshal offer for cache", zap.String("code", o.Code), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, offerKeyPrefix+o.Code, data, c.ttl).Err(); err != nil {
		c.logger.Warn("offer cache write failed", zap.String("code", o.Code), zap.Error(err))
	}
}

func (c *OfferCache) Invalidate(ctx context.Context, code string) {
	if err := c.client.Del(ctx, offerKeyPrefix+code).Err(); err != nil {
		c.logger.Warn("offer cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
}

// TokenStore caches the carrier API auth token so every rate lookup does not
// pay for a login round trip.
type TokenStore struct {
	client *redis.Client
	key    string
}

func NewTokenStore(client *redis.Client, carrierName string) *TokenStore {
	return &TokenStore{client: client, key: fmt.Sprintf("carrier:token:%s", carrierName)}
}

func (s *TokenStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read carrier token: %w", err)
	}
	return token, nil
}

func (s *TokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store carrier token: %w", err)
	}
	return nil
}
