package tiercache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// TwoTierOptions configure a TwoTierCache.
// HotCapacity 0 disables the hot tier and yields a plain LRU.
type TwoTierOptions struct {
	Name            string
	HotCapacity     int
	NormalCapacity  int
	PromotionWindow time.Duration   // 0 => DefaultPromotionWindow
	Clock           clockwork.Clock // nil => real clock
	Hooks           Hooks           // nil => NopHooks
}

// TwoTierCache is an LRU cache split into a hot and a normal tier.
// New entries land in normal; a normal entry read PromotionThreshold times
// within PromotionWindow of its insertion moves to hot, where it no longer
// competes with normal-tier churn. Each tier evicts its own LRU entry when full.
type TwoTierCache[K comparable, V any] struct {
	name   string
	window time.Duration
	clock  clockwork.Clock
	hooks  Hooks

	mu     sync.Mutex
	hot    *tier[K, V]
	normal *tier[K, V]

	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	promotions atomic.Uint64
}

var _ Cache[string, int] = (*TwoTierCache[string, int])(nil)

func NewTwoTier[K comparable, V any](opts TwoTierOptions) (*TwoTierCache[K, V], error) {
	if opts.HotCapacity < 0 {
		return nil, &ConfigError{Repository: opts.Name, Field: "hotTierSize", Reason: "must not be negative"}
	}
	if opts.NormalCapacity < 0 {
		return nil, &ConfigError{Repository: opts.Name, Field: "maxSize", Reason: "must not be negative"}
	}
	if opts.PromotionWindow < 0 {
		return nil, &ConfigError{Repository: opts.Name, Field: "promotionWindow", Reason: "must not be negative"}
	}
	return &TwoTierCache[K, V]{
		name:   opts.Name,
		window: coalesce(opts.PromotionWindow, DefaultPromotionWindow),
		clock:  coalesce[clockwork.Clock](opts.Clock, clockwork.NewRealClock()),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
		hot:    newTier[K, V](opts.HotCapacity),
		normal: newTier[K, V](opts.NormalCapacity),
	}, nil
}

func (c *TwoTierCache[K, V]) Get(key K) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	if e, ok := c.hot.get(key); ok {
		c.hot.moveToFront(e)
		v := e.val
		c.hits.Add(1)
		c.mu.Unlock()
		return v, true
	}

	e, ok := c.normal.get(key)
	if !ok {
		c.misses.Add(1)
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	e.accessCount++
	v := e.val
	c.hits.Add(1)

	promoted, evicted := false, 0
	if c.promotable(e, now) {
		c.normal.remove(e)
		c.hot.pushFront(e)
		c.promotions.Add(1)
		promoted = true
		if evicted = c.hot.overflow(); evicted > 0 {
			c.evictions.Add(uint64(evicted))
		}
	} else {
		c.normal.moveToFront(e)
	}
	c.mu.Unlock()

	if promoted {
		c.hooks.Promoted(c.name)
	}
	if evicted > 0 {
		c.hooks.Evicted(c.name, TierHot, evicted)
	}
	return v, true
}

func (c *TwoTierCache[K, V]) promotable(e *entry[K, V], now time.Time) bool {
	return c.hot.capacity > 0 &&
		e.accessCount >= PromotionThreshold &&
		now.Sub(e.insertedAt) <= c.window
}

// Put writes value under key. A hot entry is updated in place; anything else
// becomes a fresh MRU entry of the normal tier. Put never promotes.
func (c *TwoTierCache[K, V]) Put(key K, value V) {
	now := c.clock.Now()

	c.mu.Lock()
	if e, ok := c.hot.get(key); ok {
		e.val = value
		c.hot.moveToFront(e)
		c.mu.Unlock()
		return
	}

	if old, ok := c.normal.get(key); ok {
		c.normal.remove(old)
	}
	c.normal.pushFront(newEntry(key, value, now))
	evicted := c.normal.overflow()
	if evicted > 0 {
		c.evictions.Add(uint64(evicted))
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.hooks.Evicted(c.name, TierNormal, evicted)
	}
}

// Peek returns the value without touching recency, access counts or stats.
func (c *TwoTierCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.hot.get(key); ok {
		return e.val, true
	}
	if e, ok := c.normal.get(key); ok {
		return e.val, true
	}
	var zero V
	return zero, false
}

func (c *TwoTierCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	if e, ok := c.hot.get(key); ok {
		c.hot.remove(e)
	} else if e, ok := c.normal.get(key); ok {
		c.normal.remove(e)
	}
	c.mu.Unlock()
}

func (c *TwoTierCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	c.hot.clear()
	c.normal.clear()
	c.mu.Unlock()
}

func (c *TwoTierCache[K, V]) InvalidateFunc(match func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hot.removeFunc(match) + c.normal.removeFunc(match)
}

func (c *TwoTierCache[K, V]) Range(fn func(K, V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hot.each(fn) {
		c.normal.each(fn)
	}
}

func (c *TwoTierCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hot.len() + c.normal.len()
}

// TierSizes reports hot and normal occupancy under a single lock.
func (c *TwoTierCache[K, V]) TierSizes() (hot, normal int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hot.len(), c.normal.len()
}

func (c *TwoTierCache[K, V]) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Promotions: c.promotions.Load(),
	}
}

func (c *TwoTierCache[K, V]) Hits() uint64       { return c.hits.Load() }
func (c *TwoTierCache[K, V]) Misses() uint64     { return c.misses.Load() }
func (c *TwoTierCache[K, V]) Evictions() uint64  { return c.evictions.Load() }
func (c *TwoTierCache[K, V]) Promotions() uint64 { return c.promotions.Load() }
