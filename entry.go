package tiercache

import "time"

// entry is an intrusive doubly linked list element owned by a single tier.
// Head is MRU, tail is LRU. All fields are guarded by the owning cache's lock.
type entry[K comparable, V any] struct {
	key K
	val V

	insertedAt  time.Time
	accessCount uint32 // drives promotion

	prev *entry[K, V]
	next *entry[K, V]
}

func newEntry[K comparable, V any](key K, val V, now time.Time) *entry[K, V] {
	return &entry[K, V]{key: key, val: val, insertedAt: now}
}

// tier is one bounded LRU pool: a key map plus a recency list.
type tier[K comparable, V any] struct {
	capacity int
	items    map[K]*entry[K, V]
	head     *entry[K, V]
	tail     *entry[K, V]
}

func newTier[K comparable, V any](capacity int) *tier[K, V] {
	hint := capacity
	if hint > 1024 {
		hint = 1024
	}
	return &tier[K, V]{capacity: capacity, items: make(map[K]*entry[K, V], hint)}
}

func (t *tier[K, V]) len() int { return len(t.items) }

func (t *tier[K, V]) get(key K) (*entry[K, V], bool) {
	e, ok := t.items[key]
	return e, ok
}

func (t *tier[K, V]) pushFront(e *entry[K, V]) {
	t.items[e.key] = e
	e.prev = nil
	e.next = t.head
	if t.head != nil {
		t.head.prev = e
	}
	t.head = e
	if t.tail == nil {
		t.tail = e
	}
}

func (t *tier[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (t *tier[K, V]) moveToFront(e *entry[K, V]) {
	if t.head == e {
		return
	}
	t.unlink(e)
	t.pushFront(e)
}

func (t *tier[K, V]) remove(e *entry[K, V]) {
	t.unlink(e)
	delete(t.items, e.key)
}

// overflow evicts LRU entries until the tier fits its capacity and returns
// how many were dropped.
func (t *tier[K, V]) overflow() int {
	n := 0
	for len(t.items) > t.capacity && t.tail != nil {
		t.remove(t.tail)
		n++
	}
	return n
}

func (t *tier[K, V]) clear() {
	t.items = make(map[K]*entry[K, V])
	t.head, t.tail = nil, nil
}

// removeFunc drops entries matching fn, walking from MRU to LRU.
func (t *tier[K, V]) removeFunc(fn func(K, V) bool) int {
	n := 0
	for e := t.head; e != nil; {
		next := e.next
		if fn(e.key, e.val) {
			t.remove(e)
			n++
		}
		e = next
	}
	return n
}

func (t *tier[K, V]) each(fn func(K, V) bool) bool {
	for e := t.head; e != nil; e = e.next {
		if !fn(e.key, e.val) {
			return false
		}
	}
	return true
}

// keys lists resident keys from MRU to LRU.
func (t *tier[K, V]) keys() []K {
	out := make([]K, 0, len(t.items))
	for e := t.head; e != nil; e = e.next {
		out = append(out, e.key)
	}
	return out
}
