// Package modcache implements the Module Cache: a bounded LRU
// keyed by bytecode bytes. Because the cacheable engine's artifact carries
// its engine, the cache transitively retains engines and so also acts as
// the engine's lifetime anchor.
package modcache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/metrics"
)

// Cache is a bounded LRU from bytecode blob to compiled module.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache[string, *engine.CompiledModule]
	eng     *engine.Engine
	metrics *metrics.Registry
}

// New builds a Cache of the given capacity, using eng (which must be a
// cacheable-flavor engine) to compile on miss. metrics may be nil, in which
// case cache hit/miss counters are not recorded.
func New(capacity int, eng *engine.Engine, metricsReg *metrics.Registry) (*Cache, error) {
	c, err := lru.New[string, *engine.CompiledModule](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c, eng: eng, metrics: metricsReg}, nil
}

// GetOrCompile promotes and returns the cached module for bytecode on a
// hit; on a miss, compiles with the cacheable engine at gasLimit, inserts,
// promotes, and returns it. The returned module is a shared pointer: the
// cache never deep-copies: a "clone" is just handing out the same
// immutable artifact again, since CompiledModule is already immutable.
func (c *Cache) GetOrCompile(ctx context.Context, dialect engine.Dialect, bytecode []byte, gasLimit uint64) (*engine.CompiledModule, error) {
	key := string(bytecode)

	c.mu.Lock()
	if cm, ok := c.lru.Get(key); ok {
		c.mu.Unlock()
		c.recordHit()
		return cm, nil
	}
	c.mu.Unlock()
	c.recordMiss()

	cm, err := c.eng.Compile(ctx, dialect, bytecode, gasLimit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have raced us to compile the same bytecode;
	// prefer whichever is already cached to avoid leaking the loser's
	// resources under concurrent load.
	if existing, ok := c.lru.Get(key); ok {
		return existing, nil
	}
	c.lru.Add(key, cm)
	return cm, nil
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge evicts every cached entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
