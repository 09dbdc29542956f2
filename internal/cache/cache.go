// Package cache holds loaded model artifacts in memory between requests.
package cache

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rate-estimator/internal/logger"
	"github.com/rate-estimator/internal/metrics"
)

// Loader builds a fresh value, typically by reading artifacts from a store.
type Loader[T any] func(ctx context.Context) (T, error)

// Cache lazily loads a value on first use and keeps it until Invalidate.
// Readers never see a partially built value: a load completes into a local
// variable and is published with a single pointer swap under the write lock.
type Cache[T any] struct {
	name string
	load Loader[T]
	log  *zap.Logger

	mu         sync.RWMutex
	value      *T
	generation uint64

	group singleflight.Group
}

func New[T any](name string, load Loader[T], log *zap.Logger) *Cache[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache[T]{name: name, load: load, log: log.Named("cache").With(zap.String("cache", name))}
}

// Get returns the cached value, loading it if the cache is empty. Concurrent
// callers share one load. A failed load publishes nothing.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.RLock()
	v, gen := c.value, c.generation
	c.mu.RUnlock()
	if v != nil {
		return *v, nil
	}

	// Keyed by generation so callers arriving after an Invalidate do not join
	// a load that started before it.
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return c.fill(context.WithoutCancel(ctx), gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return *res.Val.(*T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) fill(ctx context.Context, gen uint64) (*T, error) {
	c.mu.RLock()
	if c.value != nil {
		v := c.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	done := logger.Timing(c.log, "load")
	loaded, err := c.load(ctx)
	done()
	if err != nil {
		metrics.CacheLoads.WithLabelValues(c.name, metrics.OutcomeError).Inc()
		c.log.Warn("load failed", zap.Error(err))
		return nil, err
	}
	metrics.CacheLoads.WithLabelValues(c.name, metrics.OutcomeOK).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	// An Invalidate during the load means the loaded value may predate the
	// newest artifacts; hand it to the waiting callers but do not keep it.
	if c.generation == gen {
		c.value = &loaded
	}
	return &loaded, nil
}

// Invalidate drops the current value so the next Get reloads it.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = nil
	c.generation++
	c.log.Debug("invalidated")
}

// Loaded reports whether a value is currently held.
func (c *Cache[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value != nil
}
