// Package redis implements recommend.CandidateCache on a Redis backend, so
// multiple orbit processes (TUI, MCP server, simulations) can share
// recommendation work.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/orbit/pkg/recommend"
)

// DefaultTTL bounds how long a cached candidate stays fresh. Recommendations
// are not time-sensitive, but the catalog behind them can change.
const DefaultTTL = 24 * time.Hour

// CandidateCache stores candidates under orbit:cand:<movieID>:<dimension>.
type CandidateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCandidateCache wraps an existing client. A zero ttl means DefaultTTL.
func NewCandidateCache(client *redis.Client, ttl time.Duration) *CandidateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CandidateCache{client: client, ttl: ttl}
}

func (c *CandidateCache) makeKey(movieID, dimension string) string {
	return fmt.Sprintf("orbit:cand:%s:%s", movieID, dimension)
}

// Get returns the cached candidate, or (nil, nil) on a miss.
func (c *CandidateCache) Get(ctx context.Context, movieID, dimension string) (*recommend.Candidate, error) {
	key := c.makeKey(movieID, dimension)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to GET key %s: %w", key, err)
	}

	var cand recommend.Candidate
	if err := json.Unmarshal([]byte(data), &cand); err != nil {
		// A corrupt entry surfaces as an error. Callers fall through to the
		// recommender, whose next Put overwrites the bad value.
		return nil, fmt.Errorf("failed to unmarshal candidate from key %s: %w", key, err)
	}
	return &cand, nil
}

// Put stores the candidate with the cache TTL.
func (c *CandidateCache) Put(ctx context.Context, movieID, dimension string, cand recommend.Candidate) error {
	key := c.makeKey(movieID, dimension)
	data, err := json.Marshal(cand)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate for key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to SET key %s: %w", key, err)
	}
	return nil
}

// Invalidate drops all cached dimensions for a movie.
func (c *CandidateCache) Invalidate(ctx context.Context, movieID string) error {
	keys := []string{
		c.makeKey(movieID, "vibe"),
		c.makeKey(movieID, "aesthetic"),
		c.makeKey(movieID, "auteur"),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to DEL candidate keys for %s: %w", movieID, err)
	}
	return nil
}
