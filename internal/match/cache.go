package match

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

// Cache is the match_cache persistence surface: a TTL-bounded lookup keyed
// by the fingerprint of everything that influences a match's score.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result, ttl time.Duration) error
}

// RedisCache is the production Cache, backed by the teacher's
// redis/go-redis/v9 client.
type RedisCache struct {
	Client *redis.Client
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("match: cache get %s: %w", key, err)
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false, fmt.Errorf("match: decode cache entry %s: %w", key, err)
	}
	return result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result Result, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("match: encode cache entry %s: %w", key, err)
	}
	return c.Client.Set(ctx, key, raw, ttl).Err()
}

// CacheKey composes the C10 fingerprint: the notice and company IDs
// plus hashes of the opportunity, company profile, and effective weights,
// so any change to any input invalidates the cached record.
func CacheKey(o opportunity.Opportunity, c profile.CompanyProfile, weights weightconfig.Weights) string {
	return fmt.Sprintf("match:%s:%s:%s:%s:%s",
		o.NoticeID, c.CompanyID, hashOf(o), hashOf(c), hashOf(weights))
}

func hashOf(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
