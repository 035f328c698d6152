// Package store is a small entity store over a byte Provider with a
// secondary index on one field. Its FindBy and PutBatch methods have the
// shapes of tiercache.QueryFunc and tiercache.PersistFunc, so a KV can back
// a repository cache's coordinator loads and write-back flushes directly.
//
// Keys:
//
//	rec:<ns>:<id>     - framed record (index value + encoded entity)
//	idx:<ns>:<value>  - set of ids whose field equals value
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
	c "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/index"
	"github.com/unkn0wn-root/tiercache/internal/keys"
	"github.com/unkn0wn-root/tiercache/internal/wire"
	pr "github.com/unkn0wn-root/tiercache/provider"
)

var (
	ErrRejected = errors.New("store: provider rejected write")
	ErrNotFound = errors.New("store: entity not found")
)

// Options configure a KV. Namespace, Provider, Codec, ID and Field are required.
type Options[K comparable, V any] struct {
	Namespace string // e.g. "player_stats"
	Provider  pr.Provider
	Codec     c.Codec[V]
	ID        func(V) K      // primary key of an entity
	Field     func(V) string // indexed auto-load field
	FormatKey func(K) string // nil => fmt.Sprint

	Index  index.Store     // nil => index.NewLocal()
	Logger tiercache.Logger // nil => NopLogger
}

// KV stores entities as framed records and keeps the field index in step
// with every write. Writes to one KV are serialized so a record and its index
// membership never disagree within the process.
type KV[K comparable, V any] struct {
	ns        string
	provider  pr.Provider
	codec     c.Codec[V]
	id        func(V) K
	field     func(V) string
	formatKey func(K) string
	idx       index.Store
	log       tiercache.Logger

	writeMu sync.Mutex
	rev     atomic.Uint64
}

func New[K comparable, V any](opts Options[K, V]) (*KV[K, V], error) {
	switch {
	case opts.Namespace == "":
		return nil, fmt.Errorf("store: namespace is required")
	case opts.Provider == nil:
		return nil, fmt.Errorf("store: provider is required")
	case opts.Codec == nil:
		return nil, fmt.Errorf("store: codec is required")
	case opts.ID == nil || opts.Field == nil:
		return nil, fmt.Errorf("store: ID and Field extractors are required")
	}
	s := &KV[K, V]{
		ns:        opts.Namespace,
		provider:  opts.Provider,
		codec:     opts.Codec,
		id:        opts.ID,
		field:     opts.Field,
		formatKey: opts.FormatKey,
		idx:       opts.Index,
		log:       opts.Logger,
	}
	if s.formatKey == nil {
		s.formatKey = func(k K) string { return fmt.Sprint(k) }
	}
	if s.idx == nil {
		s.idx = index.NewLocal()
	}
	if s.log == nil {
		s.log = tiercache.NopLogger{}
	}
	return s, nil
}

func (s *KV[K, V]) recordKey(id string) string { return keys.Record(s.ns, id) }
func (s *KV[K, V]) indexKey(v string) string   { return keys.Index(s.ns, v) }

// Get loads one entity by primary key.
func (s *KV[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	return s.get(ctx, s.formatKey(key))
}

func (s *KV[K, V]) get(ctx context.Context, id string) (V, bool, error) {
	var zero V
	raw, ok, err := s.provider.Get(ctx, s.recordKey(id))
	if err != nil || !ok {
		return zero, false, err
	}
	rec, err := wire.DecodeRecord(raw)
	if err != nil {
		return zero, false, fmt.Errorf("store: %s/%s: %w", s.ns, id, err)
	}
	v, err := s.codec.Decode(rec.Payload)
	if err != nil {
		return zero, false, fmt.Errorf("store: decode %s/%s: %w", s.ns, id, err)
	}
	return v, true, nil
}

// Put writes one entity and moves its index membership if the field changed.
func (s *KV[K, V]) Put(ctx context.Context, v V) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.put(ctx, v)
}

// PutBatch writes every entity in batch. It stops at the first failure;
// entities written before it stay written.
func (s *KV[K, V]) PutBatch(ctx context.Context, batch map[K]V) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, v := range batch {
		if err := s.put(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *KV[K, V]) put(ctx context.Context, v V) error {
	id := s.formatKey(s.id(v))
	field := s.field(v)

	payload, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("store: encode %s/%s: %w", s.ns, id, err)
	}
	raw, err := wire.EncodeRecord(wire.Record{Rev: s.rev.Add(1), Index: field, Payload: payload})
	if err != nil {
		return fmt.Errorf("store: frame %s/%s: %w", s.ns, id, err)
	}

	prev, hadPrev := s.previousIndex(ctx, id)

	ok, err := s.provider.Set(ctx, s.recordKey(id), raw, int64(len(raw)), 0)
	if err != nil {
		return fmt.Errorf("store: write %s/%s: %w", s.ns, id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrRejected, s.ns, id)
	}

	if hadPrev && prev != field {
		if err := s.idx.Remove(ctx, s.indexKey(prev), id); err != nil {
			s.log.Warn("store: stale index entry not removed", tiercache.Fields{
				"ns": s.ns, "id": id, "field": prev, "err": err,
			})
		}
	}
	if err := s.idx.Add(ctx, s.indexKey(field), id); err != nil {
		return fmt.Errorf("store: index %s/%s: %w", s.ns, id, err)
	}
	return nil
}

// previousIndex reads the field value the current record was filed under.
// Corrupt or unreadable records count as absent.
func (s *KV[K, V]) previousIndex(ctx context.Context, id string) (string, bool) {
	raw, ok, err := s.provider.Get(ctx, s.recordKey(id))
	if err != nil || !ok {
		return "", false
	}
	rec, err := wire.DecodeRecord(raw)
	if err != nil {
		return "", false
	}
	return rec.Index, true
}

// Delete removes an entity and its index membership.
// Deleting a missing entity returns ErrNotFound.
func (s *KV[K, V]) Delete(ctx context.Context, key K) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := s.formatKey(key)
	prev, ok := s.previousIndex(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.ns, id)
	}
	if err := s.provider.Del(ctx, s.recordKey(id)); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", s.ns, id, err)
	}
	return s.idx.Remove(ctx, s.indexKey(prev), id)
}

// FindBy returns every entity whose indexed field equals value. Index members
// whose record vanished or was re-filed under another value are pruned.
func (s *KV[K, V]) FindBy(ctx context.Context, value string) ([]V, error) {
	ids, err := s.idx.Members(ctx, s.indexKey(value))
	if err != nil {
		return nil, fmt.Errorf("store: index lookup %s/%s: %w", s.ns, value, err)
	}
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		v, ok, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok || s.field(v) != value {
			_ = s.idx.Remove(ctx, s.indexKey(value), id)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Query adapts FindBy to tiercache.QueryFunc.
func (s *KV[K, V]) Query() tiercache.QueryFunc[V] { return s.FindBy }

// Persist adapts PutBatch to tiercache.PersistFunc.
func (s *KV[K, V]) Persist() tiercache.PersistFunc[K, V] { return s.PutBatch }

// Close closes the index and the provider.
func (s *KV[K, V]) Close(ctx context.Context) error {
	return errors.Join(s.idx.Close(ctx), s.provider.Close(ctx))
}
