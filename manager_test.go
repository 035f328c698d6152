package tiercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newManager(t *testing.T, cfg GlobalConfig, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(cfg, append([]Option{WithoutFlushScheduler()}, opts...)...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestRegisterBuildsCacheForPolicy(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.Repositories = []RepositoryConfig{
		{RepositoryClass: "lru", Policy: ptr(PolicyLRU), MaxSize: ptr(10)},
		{RepositoryClass: "ttl", Policy: ptr(PolicyTTL), TTLSeconds: ptr(1)},
		{RepositoryClass: "hot", Policy: ptr(PolicyHotAware), MaxSize: ptr(10), HotTierSize: ptr(2)},
		{RepositoryClass: "off", Enabled: ptr(false)},
	}
	m := newManager(t, cfg)

	lru, err := Register(m, Repository[string, int]{Name: "lru"})
	if err != nil {
		t.Fatal(err)
	}
	if tt, ok := lru.Cache().(*TwoTierCache[string, int]); !ok || tt.hot.capacity != 0 || tt.normal.capacity != 10 {
		t.Fatalf("lru cache = %T", lru.Cache())
	}

	ttl, err := Register(m, Repository[string, int]{Name: "ttl"})
	if err != nil {
		t.Fatal(err)
	}
	if tc, ok := ttl.Cache().(*TTLCache[string, int]); !ok || tc.ttl != time.Second {
		t.Fatalf("ttl cache = %T", ttl.Cache())
	}

	hot, err := Register(m, Repository[string, int]{Name: "hot"})
	if err != nil {
		t.Fatal(err)
	}
	if tt, ok := hot.Cache().(*TwoTierCache[string, int]); !ok || tt.hot.capacity != 2 {
		t.Fatalf("hot cache = %T", hot.Cache())
	}

	off, err := Register(m, Repository[string, int]{Name: "off"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := off.Cache().(*NopCache[string, int]); !ok {
		t.Fatalf("disabled cache = %T", off.Cache())
	}
	off.Cache().Put("k", 1)
	if _, ok := off.Cache().Get("k"); ok {
		t.Fatal("nop cache returned a value")
	}
}

func TestGloballyDisabledYieldsNopCache(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.Enabled = false
	m := newManager(t, cfg)

	c, err := CacheOf[string, int](m, "never-registered")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*NopCache[string, int]); !ok {
		t.Fatalf("cache = %T", c)
	}

	h, err := Register(m, Repository[string, int]{Name: "stats"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Cache().(*NopCache[string, int]); !ok {
		t.Fatalf("cache = %T", h.Cache())
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.Repositories = []RepositoryConfig{{RepositoryClass: "stats", HotTierSize: ptr(-1)}}
	if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewManager(DefaultGlobalConfig(), WithPromotionWindow(-time.Second)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}

	// defaults that only fail once resolved must not wait for Register
	ttl := DefaultGlobalConfig()
	ttl.DefaultPolicy = PolicyTTL
	ttl.DefaultTTLSeconds = 0
	wb := DefaultGlobalConfig()
	wb.DefaultWriteStrategy = WriteBack
	wb.DefaultFlushIntervalSeconds = 0
	for _, cfg := range []GlobalConfig{ttl, wb} {
		m, err := NewManager(cfg, WithoutFlushScheduler())
		if !errors.Is(err, ErrInvalidConfig) || m != nil {
			t.Fatalf("manager = %v, err = %v", m, err)
		}
	}
}

func TestRegisterErrors(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.Repositories = []RepositoryConfig{{RepositoryClass: "wb", WriteStrategy: ptr(WriteBack)}}
	m := newManager(t, cfg)

	if _, err := Register(m, Repository[string, int]{}); err == nil {
		t.Fatal("empty name accepted")
	}
	if _, err := Register(m, Repository[string, int]{Name: "wb"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("write-back without persist: %v", err)
	}

	if _, err := Register(m, Repository[string, int]{Name: "stats"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Register(m, Repository[string, int]{Name: "stats"}); !errors.Is(err, ErrDuplicateRepository) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := CacheOf[int, string](m, "stats"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("type mismatch: %v", err)
	}
	if h, err := HandleOf[string, int](m, "missing"); h != nil || err != nil {
		t.Fatalf("missing handle: %v %v", h, err)
	}
}

func TestManagerAggregates(t *testing.T) {
	m := newManager(t, DefaultGlobalConfig())
	a, _ := Register(m, Repository[string, int]{Name: "a"})
	b, _ := Register(m, Repository[int, string]{Name: "b"})

	a.Cache().Put("x", 1)
	a.Cache().Put("y", 2)
	b.Cache().Put(1, "one")
	a.Cache().Get("x")
	b.Cache().Get(2)

	if m.Size("a") != 2 || m.Size("missing") != 0 || m.TotalSize() != 3 {
		t.Fatalf("sizes a=%d total=%d", m.Size("a"), m.TotalSize())
	}
	if s, ok := m.Settings("b"); !ok || s.Repository != "b" {
		t.Fatalf("settings = %+v, %v", s, ok)
	}

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].Settings.Repository != "a" || snap[1].Settings.Repository != "b" {
		t.Fatalf("snapshot order: %+v", snap)
	}
	if snap[0].Stats.Hits != 1 || snap[1].Stats.Misses != 1 {
		t.Fatalf("snapshot stats: %+v", snap)
	}

	m.InvalidateAll()
	if m.TotalSize() != 0 {
		t.Fatalf("total = %d", m.TotalSize())
	}
}

func TestManagersAreIndependent(t *testing.T) {
	m1 := newManager(t, DefaultGlobalConfig())
	m2 := newManager(t, DefaultGlobalConfig())

	h1, err := Register(m1, Repository[string, int]{Name: "stats"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Register(m2, Repository[string, int]{Name: "stats"}); err != nil {
		t.Fatalf("second manager shares registrations: %v", err)
	}
	h1.Cache().Put("k", 1)
	if m2.TotalSize() != 0 {
		t.Fatal("managers share caches")
	}
}

func TestManagerPromotionWindowAndClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newManager(t, DefaultGlobalConfig(), WithClock(clock), WithPromotionWindow(time.Second))
	h, err := Register(m, Repository[string, int]{Name: "stats"})
	if err != nil {
		t.Fatal(err)
	}
	c := h.Cache().(*TwoTierCache[string, int])
	if c.window != time.Second {
		t.Fatalf("window = %s", c.window)
	}
	c.Put("k", 1)
	clock.Advance(2 * time.Second)
	getN(c, "k", PromotionThreshold)
	if c.Promotions() != 0 {
		t.Fatal("manager clock not used for promotion window")
	}
}

func TestRegisterAfterCloseFails(t *testing.T) {
	m, err := NewManager(DefaultGlobalConfig(), WithoutFlushScheduler())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := Register(m, Repository[string, int]{Name: "late"}); err == nil {
		t.Fatal("registered on a closed manager")
	}
}

func TestManagerTTLCleanupInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := DefaultGlobalConfig()
	cfg.Repositories = []RepositoryConfig{{RepositoryClass: "sessions", Policy: ptr(PolicyTTL), TTLSeconds: ptr(1)}}
	m := newManager(t, cfg, WithClock(clock), WithTTLCleanupInterval(5*time.Second))
	h, err := Register(m, Repository[string, int]{Name: "sessions"})
	if err != nil {
		t.Fatal(err)
	}
	h.Cache().Put("a", 1)

	deadline := time.Now().Add(2 * time.Second)
	for m.Size("sessions") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not run; size = %d", m.Size("sessions"))
		}
		clock.Advance(5 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := NewManager(cfg, WithTTLCleanupInterval(-time.Second)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
}
