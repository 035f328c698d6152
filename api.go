package tiercache

import (
	"context"
	"fmt"
	"strings"
)

// Cache is the policy-agnostic contract every repository cache satisfies.
// Implementations own their synchronization; callers never take an external lock.
// A miss is a regular (zero, false) result, not an error.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)

	Invalidate(key K)
	InvalidateAll()
	// InvalidateFunc removes every entry for which match returns true and
	// reports how many were removed. match runs under the cache lock and must not
	// call back into the cache.
	InvalidateFunc(match func(K, V) bool) int

	// Range visits entries until fn returns false. Visiting does not count as access.
	Range(fn func(K, V) bool)

	Size() int
	Stats() Stats
}

// Stats is a point-in-time snapshot of a cache's counters.
// All counters are monotonic for the lifetime of the cache.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Promotions  uint64
	Expirations uint64
}

// HitRatio returns hits/(hits+misses), or 0 when nothing was looked up.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// QueryFunc loads every entity whose auto-load field equals key from the backing store.
type QueryFunc[V any] func(ctx context.Context, key string) ([]V, error)

// PersistFunc writes a batch of entities to the backing store.
// Write-through calls it with a single item; write-back flushes call it with every dirty entry.
type PersistFunc[K comparable, V any] func(ctx context.Context, batch map[K]V) error

// Policy selects the cache implementation a repository gets.
type Policy int

const (
	PolicyLRU Policy = iota
	PolicyTTL
	PolicyHotAware
)

func (p Policy) String() string {
	switch p {
	case PolicyLRU:
		return "LRU"
	case PolicyTTL:
		return "TTL"
	case PolicyHotAware:
		return "HOT_AWARE"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func (p Policy) valid() bool { return p >= PolicyLRU && p <= PolicyHotAware }

func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("tiercache: unknown policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "LRU":
		*p = PolicyLRU
	case "TTL":
		*p = PolicyTTL
	case "HOT_AWARE", "HOTAWARE":
		*p = PolicyHotAware
	default:
		return fmt.Errorf("tiercache: unknown policy %q", string(b))
	}
	return nil
}

// WriteStrategy decides whether cache writes reach the backing store
// synchronously or through the periodic flush.
type WriteStrategy int

const (
	WriteThrough WriteStrategy = iota
	WriteBack
)

func (w WriteStrategy) String() string {
	switch w {
	case WriteThrough:
		return "WRITE_THROUGH"
	case WriteBack:
		return "WRITE_BACK"
	default:
		return fmt.Sprintf("WriteStrategy(%d)", int(w))
	}
}

func (w WriteStrategy) valid() bool { return w == WriteThrough || w == WriteBack }

func (w WriteStrategy) MarshalText() ([]byte, error) {
	if !w.valid() {
		return nil, fmt.Errorf("tiercache: unknown write strategy %d", int(w))
	}
	return []byte(w.String()), nil
}

func (w *WriteStrategy) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "WRITE_THROUGH", "WRITETHROUGH":
		*w = WriteThrough
	case "WRITE_BACK", "WRITEBACK":
		*w = WriteBack
	default:
		return fmt.Errorf("tiercache: unknown write strategy %q", string(b))
	}
	return nil
}
