// Package cache memoizes score results for a bounded time.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"wallet-score/internal/domain"
	"wallet-score/internal/observability"
)

// Default configuration values.
const (
	DefaultTTL           = 300 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

type entry struct {
	result    *domain.ScoreResult
	expiresAt time.Time
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"keys"`
}

// ScoreCache is a TTL map from account to its most recent score.
// Failures are never cached. Results are copied on Put and on Get, so
// callers never share one with the cache. Safe for concurrent use.
type ScoreCache struct {
	mu      sync.RWMutex
	entries map[domain.Account]entry
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures ScoreCache.
type Option func(*ScoreCache)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *ScoreCache) {
		c.now = now
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(logger *zap.Logger) Option {
	return func(c *ScoreCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache with the given TTL; a non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *ScoreCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ScoreCache{
		entries: make(map[domain.Account]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *ScoreCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached result if present and not expired.
func (c *ScoreCache) Get(account domain.Account) (*domain.ScoreResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[account]
	c.mu.RUnlock()

	hit := ok && c.now().Before(e.expiresAt)
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	observability.RecordCacheLookup(hit)
	if !hit {
		return nil, false
	}
	return e.result.Clone(), true
}

// Put stores result, replacing any previous entry for the same account.
func (c *ScoreCache) Put(result *domain.ScoreResult) {
	if result == nil {
		return
	}
	stored := result.Clone()
	c.mu.Lock()
	c.entries[result.Account] = entry{result: stored, expiresAt: c.now().Add(c.ttl)}
	n := len(c.entries)
	c.mu.Unlock()

	observability.UpdateCacheEntries(n)
}

// Invalidate removes the entry for account.
func (c *ScoreCache) Invalidate(account domain.Account) {
	c.mu.Lock()
	delete(c.entries, account)
	n := len(c.entries)
	c.mu.Unlock()

	observability.UpdateCacheEntries(n)
}

// Clear removes every entry and returns how many were dropped.
func (c *ScoreCache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[domain.Account]entry)
	c.mu.Unlock()

	observability.UpdateCacheEntries(0)
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *ScoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss counters and the entry count.
func (c *ScoreCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: len(c.entries)}
}

// Sweep removes expired entries and returns how many were removed.
func (c *ScoreCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for acct, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, acct)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		observability.RecordCacheEvictions(removed)
		observability.UpdateCacheEntries(n)
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (c *ScoreCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("swept expired scores", zap.Int("removed", n))
			}
		}
	}
}
