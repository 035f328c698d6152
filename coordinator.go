package tiercache

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"
)

// Source is one participant in a namespace fan-out.
type Source interface {
	Name() string
	// Load inserts entities for key into the source's cache and reports how many.
	Load(ctx context.Context, key string) (int, error)
	// Unload evicts every cached entity belonging to key and reports how many.
	Unload(key string) int
}

// Binding ties a repository cache to the namespace field its entities carry.
type Binding[K comparable, V any] struct {
	Repository string
	Cache      Cache[K, V]
	// ID extracts the primary key the entity is cached under.
	ID func(V) K
	// Field extracts the auto-load field compared against namespace keys.
	Field func(V) string
	// Query loads every entity whose field equals key from the backing store.
	Query QueryFunc[V]
}

type autoLoad[K comparable, V any] struct{ b Binding[K, V] }

// AutoLoad turns a Binding into a repository Source.
func AutoLoad[K comparable, V any](b Binding[K, V]) Source { return &autoLoad[K, V]{b: b} }

func (a *autoLoad[K, V]) Name() string { return a.b.Repository }

func (a *autoLoad[K, V]) Load(ctx context.Context, key string) (int, error) {
	vs, err := a.b.Query(ctx, key)
	if err != nil {
		return 0, err
	}
	for _, v := range vs {
		a.b.Cache.Put(a.b.ID(v), v)
	}
	return len(vs), nil
}

// Unload scans the whole cache: entities are matched by field, not by primary key.
func (a *autoLoad[K, V]) Unload(key string) int {
	return a.b.Cache.InvalidateFunc(func(_ K, v V) bool { return a.b.Field(v) == key })
}

// Registry collects namespace participants at startup. The Coordinator
// copies it on construction; later changes have no effect.
type Registry struct {
	repos        map[string][]Source
	contributors map[string][]Source
}

func NewRegistry() *Registry {
	return &Registry{
		repos:        make(map[string][]Source),
		contributors: make(map[string][]Source),
	}
}

// AddRepository registers a repository source under namespace.
func (r *Registry) AddRepository(namespace string, src Source) *Registry {
	r.repos[namespace] = append(r.repos[namespace], src)
	return r
}

// AddContributor registers a contributor under its own namespace.
func (r *Registry) AddContributor(src ContributorSource) *Registry {
	ns := src.Namespace()
	r.contributors[ns] = append(r.contributors[ns], src)
	return r
}

type CoordinatorOptions struct {
	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// Coordinator fans load/unload events for a namespace key out to every
// repository cache and contributor participating in that namespace.
type Coordinator struct {
	log   Logger
	hooks Hooks

	repos        map[string][]Source
	contributors map[string][]Source

	group singleflight.Group
}

func NewCoordinator(reg *Registry, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:        coalesce[Hooks](opts.Hooks, NopHooks{}),
		repos:        make(map[string][]Source),
		contributors: make(map[string][]Source),
	}
	if reg != nil {
		for ns, srcs := range reg.repos {
			c.repos[ns] = append([]Source(nil), srcs...)
		}
		for ns, srcs := range reg.contributors {
			c.contributors[ns] = append([]Source(nil), srcs...)
		}
	}
	return c
}

// Namespaces lists every namespace with at least one participant.
func (c *Coordinator) Namespaces() []string {
	seen := make(map[string]struct{}, len(c.repos)+len(c.contributors))
	for ns := range c.repos {
		seen[ns] = struct{}{}
	}
	for ns := range c.contributors {
		seen[ns] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Load warms every cache participating in namespace for key: repositories
// are queried first, then contributors run. A failing or panicking source is
// logged and skipped; the pass always completes and the failures come back
// as a *LoadError. Concurrent calls for the same namespace and key share one pass.
//
// The shared pass runs detached from any single caller's cancellation. A
// caller whose ctx ends first gets ctx.Err() while the pass keeps warming the
// caches for everyone else joined to it.
func (c *Coordinator) Load(ctx context.Context, namespace, key string) error {
	pass := context.WithoutCancel(ctx)
	ch := c.group.DoChan(namespace+"\x00"+key, func() (any, error) {
		return nil, c.load(pass, namespace, key)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) load(ctx context.Context, namespace, key string) error {
	var failures []SourceError

	for _, src := range c.repos[namespace] {
		n, err := safeLoad(ctx, src, key)
		if err != nil {
			failures = append(failures, SourceError{Source: src.Name(), Err: err})
			c.hooks.LoadFailed(namespace, src.Name(), err)
			c.log.Warn("repository load failed", Fields{
				"namespace": namespace, "key": key, "repository": src.Name(), "err": err,
			})
			continue
		}
		c.log.Debug("repository loaded", Fields{
			"namespace": namespace, "key": key, "repository": src.Name(), "entities": n,
		})
	}

	for _, src := range c.contributors[namespace] {
		n, err := safeLoad(ctx, src, key)
		if err != nil {
			failures = append(failures, SourceError{Source: src.Name(), Err: err})
			c.hooks.ContributorFailed(namespace, src.Name(), err)
			c.log.Warn("contributor failed", Fields{
				"namespace": namespace, "key": key, "contributor": src.Name(), "err": err,
			})
			continue
		}
		c.log.Debug("contributor injected", Fields{
			"namespace": namespace, "key": key, "contributor": src.Name(), "entities": n,
		})
	}

	if len(failures) > 0 {
		return &LoadError{Namespace: namespace, Key: key, Failures: failures}
	}
	return nil
}

// Unload evicts, from every repository cache in namespace, all entries whose
// namespace field equals key. It returns the number of evicted entries.
func (c *Coordinator) Unload(namespace, key string) int {
	total := 0
	for _, src := range c.repos[namespace] {
		n := src.Unload(key)
		total += n
		c.log.Debug("repository unloaded", Fields{
			"namespace": namespace, "key": key, "repository": src.Name(), "entities": n,
		})
	}
	return total
}

func safeLoad(ctx context.Context, src Source, key string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSourcePanic, r)
		}
	}()
	return src.Load(ctx, key)
}
