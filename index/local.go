package index

import (
	"context"
	"sort"
	"sync"
)

// Local keeps the index in-process.
type Local struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

var _ Store = (*Local)(nil)

func NewLocal() *Local {
	return &Local{sets: make(map[string]map[string]struct{})}
}

func (s *Local) Add(_ context.Context, key, member string) error {
	s.mu.Lock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Remove drops member and deletes the set once it is empty so the map
// does not grow with every field value ever seen.
func (s *Local) Remove(_ context.Context, key, member string) error {
	s.mu.Lock()
	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// Members returns members sorted, for deterministic load order.
func (s *Local) Members(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// Len reports how many index keys currently have members.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

func (s *Local) Close(context.Context) error { return nil }
