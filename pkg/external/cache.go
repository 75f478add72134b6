package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/claim-risk-engine/internal/domain"
)

// VerdictCache wraps a Redis client with caching for collaborator verdicts.
// Classifier and qualitative calls are the expensive part of an evaluation;
// resubmitted claims reuse the cached verdicts.
type VerdictCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewVerdictCache creates a new verdict cache client
func NewVerdictCache(config domain.CacheConfig) (*VerdictCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &VerdictCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// cachedClassifierVerdict carries a cached classifier verdict with metadata.
// A nil Data records a no-history result so the miss is not re-queried.
type cachedClassifierVerdict struct {
	Data      *domain.ClassifierVerdict `json:"data"`
	CachedAt  time.Time                 `json:"cached_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

type cachedQualitativeVerdict struct {
	Data      *domain.QualitativeVerdict `json:"data"`
	CachedAt  time.Time                  `json:"cached_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// GetClassifierVerdict retrieves a cached classifier verdict.
func (c *VerdictCache) GetClassifierVerdict(ctx context.Context, policyNumber, claimantName string) (*domain.ClassifierVerdict, bool, error) {
	key := classifierKey(policyNumber, claimantName)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get classifier cache: %w", err)
	}

	var cached cachedClassifierVerdict
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetClassifierVerdict caches a classifier verdict.
func (c *VerdictCache) SetClassifierVerdict(ctx context.Context, policyNumber, claimantName string, verdict *domain.ClassifierVerdict, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := cachedClassifierVerdict{
		Data:      verdict,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal classifier cache data: %w", err)
	}

	return c.redis.Set(ctx, classifierKey(policyNumber, claimantName), jsonData, ttl).Err()
}

// GetQualitativeVerdict retrieves a cached qualitative verdict for a corpus.
func (c *VerdictCache) GetQualitativeVerdict(ctx context.Context, corpus string) (*domain.QualitativeVerdict, bool, error) {
	key := qualitativeKey(corpus)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get qualitative cache: %w", err)
	}

	var cached cachedQualitativeVerdict
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetQualitativeVerdict caches a qualitative verdict for a corpus.
func (c *VerdictCache) SetQualitativeVerdict(ctx context.Context, corpus string, verdict *domain.QualitativeVerdict, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := cachedQualitativeVerdict{
		Data:      verdict,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal qualitative cache data: %w", err)
	}

	return c.redis.Set(ctx, qualitativeKey(corpus), jsonData, ttl).Err()
}

// InvalidateClaim removes cached verdicts for a claim.
func (c *VerdictCache) InvalidateClaim(ctx context.Context, policyNumber, claimantName, corpus string) error {
	keys := []string{
		classifierKey(policyNumber, claimantName),
		qualitativeKey(corpus),
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if the Redis connection is alive
func (c *VerdictCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *VerdictCache) Close() error {
	return c.redis.Close()
}

func classifierKey(policyNumber, claimantName string) string {
	hash := sha256.Sum256([]byte(policyNumber + ":" + claimantName))
	return fmt.Sprintf("classifier:claim:%x", hash[:8])
}

func qualitativeKey(corpus string) string {
	hash := sha256.Sum256([]byte(corpus))
	return fmt.Sprintf("qualitative:claim:%x", hash[:8])
}
