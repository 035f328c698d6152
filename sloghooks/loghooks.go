// Package sloghooks reports cache events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Options struct {
	// Sampling for the high-volume events; 0/1 = log all.
	EvictedEvery  uint64
	PromotedEvery uint64
	ExpiredEvery  uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictedCtr  atomic.Uint64
	promotedCtr atomic.Uint64
	expiredCtr  atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Evicted(cache, tier string, count int) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("tiercache.evicted",
		"cache", cache,
		"tier", tier,
		"count", count)
}

func (h *Hooks) Promoted(cache string) {
	if h.l == nil || !sample(h.opts.PromotedEvery, &h.promotedCtr) {
		return
	}
	h.l.Debug("tiercache.promoted", "cache", cache)
}

func (h *Hooks) Expired(cache string, count int, sweep bool) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("tiercache.expired",
		"cache", cache,
		"count", count,
		"sweep", sweep)
}

func (h *Hooks) LoadFailed(namespace, repository string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.load_failed",
		"namespace", namespace,
		"repository", repository,
		"err", err)
}

func (h *Hooks) ContributorFailed(namespace, contributor string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.contributor_failed",
		"namespace", namespace,
		"contributor", contributor,
		"err", err)
}

func (h *Hooks) FlushFailed(repository string, pending int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("tiercache.flush_failed",
		"repository", repository,
		"pending", pending,
		"err", err)
}
