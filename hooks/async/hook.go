// Package asynchook moves Hooks callbacks off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{EvictedEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	mgr, _ := tiercache.NewManager(cfg, tiercache.WithHooks(hooks))
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Hooks struct {
	inner   tiercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost a race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Evicted(c, tier string, n int)   { h.try(func() { h.inner.Evicted(c, tier, n) }) }
func (h *Hooks) Promoted(c string)               { h.try(func() { h.inner.Promoted(c) }) }
func (h *Hooks) Expired(c string, n int, s bool) { h.try(func() { h.inner.Expired(c, n, s) }) }
func (h *Hooks) LoadFailed(ns, repo string, err error) {
	h.try(func() { h.inner.LoadFailed(ns, repo, err) })
}
func (h *Hooks) ContributorFailed(ns, name string, err error) {
	h.try(func() { h.inner.ContributorFailed(ns, name, err) })
}
func (h *Hooks) FlushFailed(repo string, pending int, err error) {
	h.try(func() { h.inner.FlushFailed(repo, pending, err) })
}
