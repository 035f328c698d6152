package tiercache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTLOptions configure a TTLCache.
type TTLOptions struct {
	Name string
	TTL  time.Duration
	// CleanupInterval > 0 starts a background sweep; 0 leaves expiry lazy
	// (Get) and explicit (Cleanup).
	CleanupInterval time.Duration
	Clock           clockwork.Clock // nil => real clock
	Hooks           Hooks           // nil => NopHooks
}

type ttlEntry[V any] struct {
	val        V
	insertedAt time.Time
}

// TTLCache expires entries a fixed duration after they were written.
// Reads never extend an entry's lifetime.
type TTLCache[K comparable, V any] struct {
	name  string
	ttl   time.Duration
	clock clockwork.Clock
	hooks Hooks

	mu    sync.Mutex
	items map[K]*ttlEntry[V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	// background cleanup
	ticker    clockwork.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

var _ Cache[string, int] = (*TTLCache[string, int])(nil)

func NewTTL[K comparable, V any](opts TTLOptions) (*TTLCache[K, V], error) {
	if opts.TTL <= 0 {
		return nil, &ConfigError{Repository: opts.Name, Field: "ttlSeconds", Reason: "must be positive"}
	}
	if opts.CleanupInterval < 0 {
		return nil, &ConfigError{Repository: opts.Name, Field: "cleanupInterval", Reason: "must not be negative"}
	}
	c := &TTLCache[K, V]{
		name:  opts.Name,
		ttl:   opts.TTL,
		clock: coalesce[clockwork.Clock](opts.Clock, clockwork.NewRealClock()),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
		items: make(map[K]*ttlEntry[V]),
	}
	if opts.CleanupInterval > 0 {
		c.ticker = c.clock.NewTicker(opts.CleanupInterval)
		c.stopCh = make(chan struct{})
		c.closeWg.Add(1)
		go c.cleanupLoop()
	}
	return c, nil
}

func (c *TTLCache[K, V]) expired(e *ttlEntry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) > c.ttl
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		c.mu.Unlock()
		return zero, false
	}
	if c.expired(e, now) {
		delete(c.items, key)
		c.evictions.Add(1)
		c.misses.Add(1)
		c.mu.Unlock()
		c.hooks.Expired(c.name, 1, false)
		return zero, false
	}
	v := e.val
	c.hits.Add(1)
	c.mu.Unlock()
	return v, true
}

// Put stores value stamped with the current time, replacing any previous entry.
func (c *TTLCache[K, V]) Put(key K, value V) {
	now := c.clock.Now()
	c.mu.Lock()
	c.items[key] = &ttlEntry[V]{val: value, insertedAt: now}
	c.mu.Unlock()
}

// Cleanup removes every expired entry and returns how many were dropped.
// It counts evictions but never misses.
func (c *TTLCache[K, V]) Cleanup() int {
	now := c.clock.Now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, k)
			removed++
		}
	}
	if removed > 0 {
		c.evictions.Add(uint64(removed))
	}
	c.mu.Unlock()

	if removed > 0 {
		c.hooks.Expired(c.name, removed, true)
	}
	return removed
}

func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[K]*ttlEntry[V])
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) InvalidateFunc(match func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.items {
		if match(k, e.val) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Range visits unexpired entries in no particular order.
func (c *TTLCache[K, V]) Range(fn func(K, V) bool) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if c.expired(e, now) {
			continue
		}
		if !fn(k, e.val) {
			return
		}
	}
}

// Size is the number of stored entries, including expired ones that were
// not yet swept. Call Cleanup first for an exact live count.
func (c *TTLCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) Stats() Stats {
	ev := c.evictions.Load()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   ev,
		Expirations: ev,
	}
}

func (c *TTLCache[K, V]) Hits() uint64      { return c.hits.Load() }
func (c *TTLCache[K, V]) Misses() uint64    { return c.misses.Load() }
func (c *TTLCache[K, V]) Evictions() uint64 { return c.evictions.Load() }

// Close stops the background sweep if one was started. Safe to call more than once.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
			c.closeWg.Wait()
			c.ticker.Stop()
		}
	})
}

func (c *TTLCache[K, V]) cleanupLoop() {
	defer c.closeWg.Done()
	for {
		select {
		case <-c.ticker.Chan():
			c.Cleanup()
		case <-c.stopCh:
			return
		}
	}
}
