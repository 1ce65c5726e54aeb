// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// CachedSource wraps a Source with a memoizing cache and a bounded
// concurrent prefetch pool.
//
// The solver calls Releases synchronously. A cache hit returns immediately;
// a miss waits only for that package's fetch, which is shared with any
// prefetch already in flight for the same name. Prefetch fans work out to at
// most Workers goroutines and never blocks the caller.
//
// WHEN TO USE:
// - Sources backed by a network registry or a database
// - Resolving the same project repeatedly (the cache outlives a solve)
//
// WHEN NOT TO USE:
// - InMemorySource in tests, where every call is already a map lookup
//
// The cache assumes release lists are immutable for its lifetime. Only
// successful results and "package not found" answers are cached; other
// errors are returned to the caller and retried on the next call.
type CachedSource struct {
	source  Source
	workers int
	timeout time.Duration
	metrics *Metrics

	mu        sync.Mutex
	releases  map[Name][]Release
	missing   map[Name]bool
	replacers map[Name][]Name
	stats     CacheStats

	flight   singleflight.Group
	sem      *semaphore.Weighted
	inflight sync.WaitGroup
}

// CacheOption configures a CachedSource.
type CacheOption func(*CachedSource)

const (
	defaultPrefetchWorkers = 32
	defaultFetchTimeout    = 10 * time.Second
)

// WithPrefetchWorkers bounds the number of concurrent fetches.
func WithPrefetchWorkers(n int) CacheOption {
	return func(c *CachedSource) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFetchTimeout bounds a single fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *CachedSource) {
		c.timeout = d
	}
}

// WithCacheMetrics records fetch outcomes and latencies.
func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *CachedSource) {
		c.metrics = m
	}
}

// NewCachedSource creates a new caching wrapper around the given source.
func NewCachedSource(source Source, opts ...CacheOption) *CachedSource {
	c := &CachedSource{
		source:    source,
		workers:   defaultPrefetchWorkers,
		timeout:   defaultFetchTimeout,
		releases:  make(map[Name][]Release),
		missing:   make(map[Name]bool),
		replacers: make(map[Name][]Name),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sem = semaphore.NewWeighted(int64(c.workers))
	return c
}

// Releases returns the releases of a package, fetching them on a miss.
func (c *CachedSource) Releases(ctx context.Context, name Name) ([]Release, error) {
	c.mu.Lock()
	c.stats.Calls++
	if releases, ok := c.releases[name]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		c.metrics.observeCacheHit()
		return releases, nil
	}
	if c.missing[name] {
		c.stats.Hits++
		c.mu.Unlock()
		c.metrics.observeCacheHit()
		return nil, &PackageNotFoundError{Package: name}
	}
	c.mu.Unlock()

	return c.fetch(ctx, name)
}

// fetch loads a package from the wrapped source, sharing the work with any
// concurrent fetch of the same name.
//
// The fetch itself runs detached from ctx and bounded by the fetch timeout,
// so it completes and fills the cache for other callers. A caller whose
// context ends first stops waiting and gets the context error.
func (c *CachedSource) fetch(ctx context.Context, name Name) ([]Release, error) {
	ch := c.flight.DoChan(name.Value(), func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
			defer cancel()
		}

		start := time.Now()
		releases, err := c.source.Releases(fetchCtx, name)
		c.metrics.observeFetch(time.Since(start), err)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.stats.Fetches++
		var notFound *PackageNotFoundError
		switch {
		case err == nil:
			c.releases[name] = releases
		case errors.As(err, &notFound):
			c.missing[name] = true
		default:
			c.stats.FetchErrors++
		}
		return releases, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Release), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Prefetch starts background fetches for names that are not cached yet.
// It returns immediately. Fetch errors are dropped; the solver sees them
// when it asks for the package itself.
func (c *CachedSource) Prefetch(ctx context.Context, names ...Name) {
	for _, name := range names {
		if c.cached(name) {
			continue
		}
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			if err := c.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer c.sem.Release(1)
			if c.cached(name) {
				return
			}
			c.mu.Lock()
			c.stats.Prefetches++
			c.mu.Unlock()
			_, _ = c.fetch(ctx, name)
		}()
	}
}

// Warm fetches every name and waits for all of them, with at most Workers
// fetches running at once. It returns the first error other than
// "package not found".
func (c *CachedSource) Warm(ctx context.Context, names ...Name) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, name := range names {
		if c.cached(name) {
			continue
		}
		g.Go(func() error {
			_, err := c.fetch(gctx, name)
			var notFound *PackageNotFoundError
			if err != nil && !errors.As(err, &notFound) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Wait blocks until every background prefetch has finished.
func (c *CachedSource) Wait() {
	c.inflight.Wait()
}

func (c *CachedSource) cached(name Name) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.releases[name]
	return ok || c.missing[name]
}

// Replacers forwards to the wrapped source when it implements
// ReplacerIndex, caching the answer.
func (c *CachedSource) Replacers(ctx context.Context, name Name) ([]Name, error) {
	index, ok := c.source.(ReplacerIndex)
	if !ok {
		return nil, nil
	}

	c.mu.Lock()
	if names, ok := c.replacers[name]; ok {
		c.mu.Unlock()
		return names, nil
	}
	c.mu.Unlock()

	names, err := index.Replacers(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.replacers[name] = names
	c.mu.Unlock()
	return names, nil
}

func (c *CachedSource) coversReplacers() bool {
	return indexesReplacers(c.source)
}

// CacheStats returns statistics about cache performance.
type CacheStats struct {
	Calls       int
	Hits        int
	Fetches     int
	FetchErrors int
	Prefetches  int
	HitRate     float64
}

// GetCacheStats returns cache performance statistics.
func (c *CachedSource) GetCacheStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	if stats.Calls > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Calls)
	}
	return stats
}

// ClearCache drops every cached answer and resets the statistics.
func (c *CachedSource) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releases = make(map[Name][]Release)
	c.missing = make(map[Name]bool)
	c.replacers = make(map[Name][]Name)
	c.stats = CacheStats{}
}

var (
	_ Source        = (*CachedSource)(nil)
	_ ReplacerIndex = (*CachedSource)(nil)
	_ Prefetcher    = (*CachedSource)(nil)

	_ replacerCoverage = (*CachedSource)(nil)
)
