package tiercache

import (
	"context"
	"fmt"
)

// Contributor synthesizes entities for a namespace key without touching the
// backing store, e.g. defaults for a player that has no stored row yet.
// Each entity handed to provide is inserted into the target cache.
type Contributor[V any] interface {
	Namespace() string
	Contribute(ctx context.Context, key string, provide func(V)) error
}

// ContributorSource is a contributor bound to the cache it fills.
type ContributorSource interface {
	Source
	Namespace() string
}

type contribution[K comparable, V any] struct {
	name  string
	c     Contributor[V]
	cache Cache[K, V]
	id    func(V) K
}

// Contribution binds c to cache; id extracts the primary key entities are stored under.
func Contribution[K comparable, V any](c Contributor[V], cache Cache[K, V], id func(V) K) ContributorSource {
	return &contribution[K, V]{
		name:  fmt.Sprintf("%T", c),
		c:     c,
		cache: cache,
		id:    id,
	}
}

func (s *contribution[K, V]) Name() string      { return s.name }
func (s *contribution[K, V]) Namespace() string { return s.c.Namespace() }

func (s *contribution[K, V]) Load(ctx context.Context, key string) (int, error) {
	n := 0
	err := s.c.Contribute(ctx, key, func(v V) {
		s.cache.Put(s.id(v), v)
		n++
	})
	return n, err
}

// Unload is a no-op: contributed entries are removed by the repository
// bindings that own the same cache.
func (s *contribution[K, V]) Unload(string) int { return 0 }
