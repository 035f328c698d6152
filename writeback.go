package tiercache

import (
	"context"
	"fmt"
	"sync"
)

// Repository describes a repository cache to register with a Manager.
type Repository[K comparable, V any] struct {
	// Name is the stable repository identity, matched against
	// RepositoryConfig.RepositoryClass.
	Name string
	// Persist writes batches to the backing store. Required for write-back;
	// for write-through a nil Persist makes Write a cache-only operation.
	Persist PersistFunc[K, V]
}

type dirtyEntry[V any] struct {
	val V
	seq uint64
}

// Handle is what a repository holds: its cache plus the write strategy
// that decides when cache writes reach the backing store.
type Handle[K comparable, V any] struct {
	settings Settings
	cache    Cache[K, V]
	persist  PersistFunc[K, V]
	log      Logger
	hooks    Hooks

	dirtyMu sync.Mutex
	dirty   map[K]dirtyEntry[V]
	seq     uint64

	flushMu sync.Mutex // one flush at a time
}

func (h *Handle[K, V]) Cache() Cache[K, V] { return h.cache }
func (h *Handle[K, V]) Settings() Settings { return h.settings }
func (h *Handle[K, V]) Name() string       { return h.settings.Repository }

// Write stores value under key following the repository's write strategy.
// Write-through persists first and leaves the cache untouched if that fails.
// Write-back updates the cache and defers persistence to the next flush.
func (h *Handle[K, V]) Write(ctx context.Context, key K, value V) error {
	if h.settings.WriteStrategy == WriteBack {
		h.cache.Put(key, value)
		h.MarkDirty(key, value)
		return nil
	}
	if h.persist != nil {
		if err := h.persist(ctx, map[K]V{key: value}); err != nil {
			return fmt.Errorf("tiercache: write-through %q: %w", h.settings.Repository, err)
		}
	}
	h.cache.Put(key, value)
	return nil
}

// Discard evicts key and drops any pending write-back for it.
// Removing the entity from the backing store is the repository's job.
func (h *Handle[K, V]) Discard(key K) {
	h.cache.Invalidate(key)
	h.dirtyMu.Lock()
	delete(h.dirty, key)
	h.dirtyMu.Unlock()
}

// MarkDirty records value as pending persistence. A later mark for the same
// key replaces the pending value.
func (h *Handle[K, V]) MarkDirty(key K, value V) {
	h.dirtyMu.Lock()
	h.seq++
	h.dirty[key] = dirtyEntry[V]{val: value, seq: h.seq}
	h.dirtyMu.Unlock()
}

// Dirty reports how many keys await a flush.
func (h *Handle[K, V]) Dirty() int {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()
	return len(h.dirty)
}

// Flush persists every dirty entry in one batch. The dirty set is
// snapshotted and unlocked before Persist runs; markers are cleared only for
// keys not re-marked while the batch was in flight. On failure all markers
// stay for the next flush.
func (h *Handle[K, V]) Flush(ctx context.Context) error {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	h.dirtyMu.Lock()
	if len(h.dirty) == 0 || h.persist == nil {
		h.dirtyMu.Unlock()
		return nil
	}
	batch := make(map[K]V, len(h.dirty))
	seqs := make(map[K]uint64, len(h.dirty))
	for k, d := range h.dirty {
		batch[k] = d.val
		seqs[k] = d.seq
	}
	h.dirtyMu.Unlock()

	if err := h.persist(ctx, batch); err != nil {
		pending := h.Dirty()
		h.hooks.FlushFailed(h.settings.Repository, pending, err)
		h.log.Warn("write-back flush failed", Fields{
			"repository": h.settings.Repository,
			"batch":      len(batch),
			"pending":    pending,
			"err":        err,
		})
		return &FlushError{Repository: h.settings.Repository, Pending: pending, Err: err}
	}

	h.dirtyMu.Lock()
	for k, s := range seqs {
		if d, ok := h.dirty[k]; ok && d.seq == s {
			delete(h.dirty, k)
		}
	}
	h.dirtyMu.Unlock()

	h.log.Debug("write-back flush persisted batch", Fields{
		"repository": h.settings.Repository,
		"batch":      len(batch),
	})
	return nil
}

// managed is the type-erased view the Manager keeps of every Handle.
type managed interface {
	config() Settings
	stats() Stats
	size() int
	pending() int
	invalidateAll()
	flush(ctx context.Context) error
	close()
}

func (h *Handle[K, V]) config() Settings                { return h.settings }
func (h *Handle[K, V]) stats() Stats                    { return h.cache.Stats() }
func (h *Handle[K, V]) size() int                       { return h.cache.Size() }
func (h *Handle[K, V]) pending() int                    { return h.Dirty() }
func (h *Handle[K, V]) invalidateAll()                  { h.cache.InvalidateAll() }
func (h *Handle[K, V]) flush(ctx context.Context) error { return h.Flush(ctx) }

func (h *Handle[K, V]) close() {
	if c, ok := h.cache.(interface{ Close() }); ok {
		c.Close()
	}
}
