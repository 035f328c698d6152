package tiercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// Manager owns one cache per registered repository. It is constructed
// explicitly and passed by reference; independent Managers never share state.
type Manager struct {
	cfg    GlobalConfig
	log    Logger
	hooks  Hooks
	clock  clockwork.Clock
	window time.Duration
	sweep  time.Duration

	schedule bool
	sched    *cron.Cron // nil when scheduling is disabled

	mu     sync.RWMutex
	repos  map[string]managed
	order  []string
	closed bool
}

type Option func(*Manager)

func WithLogger(l Logger) Option         { return func(m *Manager) { m.log = l } }
func WithHooks(h Hooks) Option           { return func(m *Manager) { m.hooks = h } }
func WithClock(c clockwork.Clock) Option { return func(m *Manager) { m.clock = c } }
func WithPromotionWindow(d time.Duration) Option {
	return func(m *Manager) { m.window = d }
}

// WithTTLCleanupInterval starts a background sweep every d on each TTL
// cache the manager builds. Without it TTL expiry is lazy.
func WithTTLCleanupInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweep = d }
}

// WithoutFlushScheduler leaves write-back flushing to explicit FlushAll/Flush calls.
func WithoutFlushScheduler() Option { return func(m *Manager) { m.schedule = false } }

// NewManager validates cfg and every override in it. Invalid sizes, policies
// or intervals fail here rather than on first use.
func NewManager(cfg GlobalConfig, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:      cfg,
		schedule: true,
		repos:    make(map[string]managed),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = coalesce[Logger](m.log, NopLogger{})
	m.hooks = coalesce[Hooks](m.hooks, NopHooks{})
	m.clock = coalesce[clockwork.Clock](m.clock, clockwork.NewRealClock())
	if m.window < 0 {
		return nil, &ConfigError{Field: "promotionWindow", Reason: "must not be negative"}
	}
	if m.sweep < 0 {
		return nil, &ConfigError{Field: "cleanupInterval", Reason: "must not be negative"}
	}

	if m.schedule {
		cl := cronLogger{l: m.log}
		m.sched = cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		)
		m.sched.Start()
	}
	return m, nil
}

// Config returns the configuration the manager was built from.
func (m *Manager) Config() GlobalConfig { return m.cfg }

// Register resolves the repository's settings and builds its cache:
// LRU is a two-tier cache without a hot tier, HOT_AWARE a two-tier cache with
// hotTierSize hot slots, TTL a TTLCache. Disabled repositories get a NopCache.
func Register[K comparable, V any](m *Manager, repo Repository[K, V]) (*Handle[K, V], error) {
	if repo.Name == "" {
		return nil, errors.New("tiercache: repository name is required")
	}
	s := m.cfg.Resolve(repo.Name)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.WriteStrategy == WriteBack && repo.Persist == nil {
		return nil, &ConfigError{Repository: repo.Name, Field: "writeStrategy", Reason: "write-back requires a persist function"}
	}

	c, err := newCache[K, V](m, s)
	if err != nil {
		return nil, err
	}
	h := &Handle[K, V]{
		settings: s,
		cache:    c,
		persist:  repo.Persist,
		log:      m.log,
		hooks:    m.hooks,
		dirty:    make(map[K]dirtyEntry[V]),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		h.close()
		return nil, errors.New("tiercache: manager is closed")
	}
	if _, dup := m.repos[repo.Name]; dup {
		h.close()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateRepository, repo.Name)
	}
	if s.WriteStrategy == WriteBack && m.sched != nil {
		spec := fmt.Sprintf("@every %s", s.FlushInterval)
		if _, err := m.sched.AddFunc(spec, func() { _ = h.Flush(context.Background()) }); err != nil {
			h.close()
			return nil, fmt.Errorf("tiercache: schedule flush for %q: %w", repo.Name, err)
		}
	}
	m.repos[repo.Name] = h
	m.order = append(m.order, repo.Name)

	m.log.Info("repository cache registered", Fields{
		"repository": s.Repository,
		"enabled":    s.Enabled,
		"policy":     s.Policy.String(),
		"maxSize":    s.MaxSize,
		"hotTier":    s.HotTierSize,
		"ttl":        s.TTL.String(),
		"write":      s.WriteStrategy.String(),
	})
	return h, nil
}

func newCache[K comparable, V any](m *Manager, s Settings) (Cache[K, V], error) {
	if !s.Enabled {
		return &NopCache[K, V]{}, nil
	}
	switch s.Policy {
	case PolicyLRU, PolicyHotAware:
		hot := 0
		if s.Policy == PolicyHotAware {
			hot = s.HotTierSize
		}
		c, err := NewTwoTier[K, V](TwoTierOptions{
			Name:            s.Repository,
			HotCapacity:     hot,
			NormalCapacity:  s.MaxSize,
			PromotionWindow: m.window,
			Clock:           m.clock,
			Hooks:           m.hooks,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case PolicyTTL:
		c, err := NewTTL[K, V](TTLOptions{
			Name:            s.Repository,
			TTL:             s.TTL,
			CleanupInterval: m.sweep,
			Clock:           m.clock,
			Hooks:           m.hooks,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, &ConfigError{Repository: s.Repository, Field: "policy", Reason: "unknown policy " + s.Policy.String()}
}

// CacheOf returns the cache registered under name. Unknown names yield a
// NopCache; a registration with other key/value types yields ErrTypeMismatch.
func CacheOf[K comparable, V any](m *Manager, name string) (Cache[K, V], error) {
	h, err := HandleOf[K, V](m, name)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return &NopCache[K, V]{}, nil
	}
	return h.Cache(), nil
}

// HandleOf returns the handle registered under name, or nil if there is none.
func HandleOf[K comparable, V any](m *Manager, name string) (*Handle[K, V], error) {
	m.mu.RLock()
	r, ok := m.repos[name]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	h, ok := r.(*Handle[K, V])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeMismatch, name)
	}
	return h, nil
}

// Settings returns the effective settings of a registered repository.
func (m *Manager) Settings(name string) (Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.repos[name]
	if !ok {
		return Settings{}, false
	}
	return r.config(), true
}

// Size reports the entry count of one repository cache (0 if unknown).
func (m *Manager) Size(name string) int {
	m.mu.RLock()
	r, ok := m.repos[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.size()
}

// TotalSize sums the entry counts of every cache.
func (m *Manager) TotalSize() int {
	n := 0
	for _, r := range m.snapshotRepos() {
		n += r.size()
	}
	return n
}

// InvalidateAll clears every cache. Pending write-back entries are kept.
func (m *Manager) InvalidateAll() {
	for _, r := range m.snapshotRepos() {
		r.invalidateAll()
	}
	m.log.Debug("invalidated all repository caches", nil)
}

// RepositoryStats describes one repository cache at a point in time.
type RepositoryStats struct {
	Settings Settings
	Size     int
	Dirty    int
	Stats    Stats
}

// Snapshot returns stats for every repository in registration order.
func (m *Manager) Snapshot() []RepositoryStats {
	repos := m.snapshotRepos()
	out := make([]RepositoryStats, 0, len(repos))
	for _, r := range repos {
		out = append(out, RepositoryStats{
			Settings: r.config(),
			Size:     r.size(),
			Dirty:    r.pending(),
			Stats:    r.stats(),
		})
	}
	return out
}

// FlushAll flushes every write-back repository and joins their errors.
func (m *Manager) FlushAll(ctx context.Context) error {
	var errs []error
	for _, r := range m.snapshotRepos() {
		if err := r.flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops scheduled flushes, waits for a running one, performs a final
// flush and stops background cache maintenance. If ctx ends while a scheduled
// flush is still running, the final flush is skipped and ctx.Err() returned;
// caches are closed either way. Safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	repos := m.snapshotRepos()
	defer func() {
		for _, r := range repos {
			r.close()
		}
	}()

	if m.sched != nil {
		stopped := m.sched.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			m.log.Warn("close abandoned a running flush", Fields{"err": ctx.Err()})
			return ctx.Err()
		}
	}
	return m.FlushAll(ctx)
}

func (m *Manager) snapshotRepos() []managed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]managed, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.repos[name])
	}
	return out
}
