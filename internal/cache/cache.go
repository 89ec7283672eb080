// Package cache memoizes the aggregated dashboard snapshot for a
// bounded time window.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/typhfeng/pulse/internal/types"
)

// ComputeFunc produces a fresh snapshot. It is injected so the cache
// carries no scanner dependency and tests can count invocations.
type ComputeFunc func(ctx context.Context) (*types.DashboardSnapshot, error)

// Cache holds at most one snapshot plus its computation timestamp.
// Concurrent recomputation requests coalesce into a single scan whose
// result every waiting caller shares, and a completion that lost the
// race to a fresher scan is discarded rather than overwriting it.
type Cache struct {
	compute ComputeFunc
	clock   func() time.Time
	ttl     time.Duration

	group singleflight.Group

	mu         sync.Mutex
	snapshot   *types.DashboardSnapshot
	computedAt time.Time
	// generation increments on every invalidation so a stale in-flight
	// computation cannot resurrect an invalidated snapshot.
	generation uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// New creates a Cache around compute with the given TTL.
func New(compute ComputeFunc, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		compute: compute,
		clock:   time.Now,
		ttl:     ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached snapshot when it is within the TTL
// window and force is false; otherwise it recomputes. Callers arriving
// while a recomputation is in flight attach to it and receive the same
// snapshot.
func (c *Cache) GetOrCompute(ctx context.Context, force bool) (*types.DashboardSnapshot, error) {
	c.mu.Lock()
	if !force && c.snapshot != nil && c.clock().Sub(c.computedAt) < c.ttl {
		snap := c.snapshot
		c.mu.Unlock()
		return snap, nil
	}
	startGen := c.generation
	c.mu.Unlock()

	// The flight key carries the generation so a caller arriving after
	// an invalidation never attaches to a scan that started before it.
	v, err, _ := c.group.Do(fmt.Sprintf("scan-%d", startGen), func() (interface{}, error) {
		// Re-check under the flight: a caller that queued behind a
		// just-finished computation should reuse it instead of scanning
		// again.
		c.mu.Lock()
		if !force && c.snapshot != nil && c.clock().Sub(c.computedAt) < c.ttl {
			snap := c.snapshot
			c.mu.Unlock()
			return snap, nil
		}
		c.mu.Unlock()

		snap, err := c.compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		// Store only when no invalidation landed while we were
		// scanning. A stale completion still answers its own waiters
		// but must never repopulate the cache.
		if c.generation == startGen {
			c.snapshot = snap
			c.computedAt = c.clock()
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.DashboardSnapshot), nil
}

// Invalidate drops the cached snapshot so the next read recomputes
// regardless of remaining TTL. Every mutation must call this.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.computedAt = time.Time{}
	c.generation++
}

// Cached returns the current snapshot without triggering a scan; nil
// when the cache is cold or invalidated.
func (c *Cache) Cached() *types.DashboardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Search filters the snapshot's search pool by a case-insensitive
// substring over repo, title, content and track, returning at most
// limit hits. An empty query returns the head of the pool.
func Search(snapshot *types.DashboardSnapshot, query string, limit int) []types.IssueHit {
	if snapshot == nil {
		return nil
	}
	if limit <= 0 {
		limit = len(snapshot.SearchPool)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]types.IssueHit, 0, limit)
	for _, hit := range snapshot.SearchPool {
		if q != "" {
			hay := strings.ToLower(hit.Repo + " " + hit.Title + " " + hit.Content + " " + string(hit.Track))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		results = append(results, hit)
		if len(results) >= limit {
			break
		}
	}
	return results
}
