package tiercache

import "sync/atomic"

// NopCache stores nothing and misses every lookup. Disabled repositories get
// one so call sites never branch on whether caching is on.
type NopCache[K comparable, V any] struct {
	misses atomic.Uint64
}

var _ Cache[string, int] = (*NopCache[string, int])(nil)

func (c *NopCache[K, V]) Get(K) (V, bool) {
	c.misses.Add(1)
	var zero V
	return zero, false
}

func (*NopCache[K, V]) Put(K, V)                           {}
func (*NopCache[K, V]) Invalidate(K)                       {}
func (*NopCache[K, V]) InvalidateAll()                     {}
func (*NopCache[K, V]) InvalidateFunc(func(K, V) bool) int { return 0 }
func (*NopCache[K, V]) Range(func(K, V) bool)              {}
func (*NopCache[K, V]) Size() int                          { return 0 }
func (c *NopCache[K, V]) Stats() Stats                     { return Stats{Misses: c.misses.Load()} }
