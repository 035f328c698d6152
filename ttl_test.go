package tiercache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type expiryHooks struct {
	NopHooks
	mu    sync.Mutex
	lazy  int
	swept int
}

func (h *expiryHooks) Expired(_ string, n int, sweep bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sweep {
		h.swept += n
	} else {
		h.lazy += n
	}
}

func newTTL(t *testing.T, ttl time.Duration, clock clockwork.Clock, hooks Hooks) *TTLCache[string, int] {
	t.Helper()
	c, err := NewTTL[string, int](TTLOptions{Name: "ttl", TTL: ttl, Clock: clock, Hooks: hooks})
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestTTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hooks := &expiryHooks{}
	c := newTTL(t, time.Second, clock, hooks)

	c.Put("k", 1)
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Fatalf("got %d, %v", v, ok)
	}

	clock.Advance(1100 * time.Millisecond)
	evBefore, missBefore := c.Evictions(), c.Misses()
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Evictions() != evBefore+1 || c.Misses() != missBefore+1 {
		t.Fatalf("evictions %d->%d misses %d->%d", evBefore, c.Evictions(), missBefore, c.Misses())
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
	if hooks.lazy != 1 || hooks.swept != 0 {
		t.Fatalf("hooks lazy=%d swept=%d", hooks.lazy, hooks.swept)
	}
}

func TestTTLExactBoundaryIsLive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTTL(t, time.Second, clock, nil)
	c.Put("k", 1)
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired at exactly its TTL")
	}
}

func TestTTLReadsDoNotExtendLifetime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTTL(t, time.Second, clock, nil)
	c.Put("k", 1)
	for i := 0; i < 4; i++ {
		clock.Advance(300 * time.Millisecond)
		c.Get("k")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("reads extended the entry lifetime")
	}
}

func TestTTLPutRestartsLifetime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTTL(t, time.Second, clock, nil)
	c.Put("k", 1)
	clock.Advance(800 * time.Millisecond)
	c.Put("k", 2)
	clock.Advance(800 * time.Millisecond)
	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("got %d, %v", v, ok)
	}
}

func TestTTLCleanup(t *testing.T) {
	const n = 25
	clock := clockwork.NewFakeClock()
	hooks := &expiryHooks{}
	c := newTTL(t, time.Second, clock, hooks)

	for i := 0; i < n; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	clock.Advance(2 * time.Second)
	c.Put("fresh", 1)

	if removed := c.Cleanup(); removed != n {
		t.Fatalf("removed = %d, want %d", removed, n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
	if c.Evictions() != n || c.Misses() != 0 {
		t.Fatalf("evictions=%d misses=%d", c.Evictions(), c.Misses())
	}
	if s := c.Stats(); s.Expirations != n {
		t.Fatalf("expirations = %d", s.Expirations)
	}
	if hooks.swept != n {
		t.Fatalf("swept = %d", hooks.swept)
	}
	if c.Cleanup() != 0 {
		t.Fatal("second cleanup removed entries")
	}
}

func TestTTLBackgroundSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c, err := NewTTL[string, int](TTLOptions{
		TTL:             time.Second,
		CleanupInterval: 5 * time.Second,
		Clock:           clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.Put("a", 1)
	c.Put("b", 2)

	deadline := time.Now().Add(2 * time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not run; size = %d", c.Size())
		}
		clock.Advance(5 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}
	if c.Misses() != 0 {
		t.Fatalf("sweep counted %d misses", c.Misses())
	}

	c.Close()
	c.Close()
}

func TestTTLRangeSkipsExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTTL(t, time.Second, clock, nil)
	c.Put("old", 1)
	clock.Advance(2 * time.Second)
	c.Put("new", 2)

	var keys []string
	c.Range(func(k string, _ int) bool { keys = append(keys, k); return true })
	if len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("range = %v", keys)
	}
	// Size counts unswept entries
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestTTLInvalidate(t *testing.T) {
	c := newTTL(t, time.Minute, nil, nil)
	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	c.Invalidate("k0")
	if n := c.InvalidateFunc(func(_ string, v int) bool { return v >= 5 }); n != 5 {
		t.Fatalf("removed %d", n)
	}
	if c.Size() != 4 {
		t.Fatalf("size = %d", c.Size())
	}
	c.InvalidateAll()
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestTTLRejectsBadOptions(t *testing.T) {
	for _, opts := range []TTLOptions{
		{TTL: 0},
		{TTL: -time.Second},
		{TTL: time.Second, CleanupInterval: -1},
	} {
		if _, err := NewTTL[string, int](opts); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%+v: err = %v", opts, err)
		}
	}
}
