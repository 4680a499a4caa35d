package cache

import (
	"sync"

	"github.com/jonwraymond/heapcache/sizeof"
)

// entry is a node in a shard's recency list. Head is most recently used,
// tail is least recently used.
type entry[K comparable, V any] struct {
	key    K
	handle *Handle[V]

	// gen is the shard generation of the last insert or hit.
	gen uint64

	prev *entry[K, V]
	next *entry[K, V]
}

// dropped records an entry that left a shard, reported after unlock.
type dropped struct {
	bytes  uint64
	reason Reason
}

// cacheShard is one independently locked partition.
//
// Invariant (outside a critical section): budget.Used equals the sum of
// handle sizes over entries, and budget.Used <= budget.Limit unless the
// shard holds exactly one entry.
type cacheShard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V]
	tail    *entry[K, V]
	budget  sizeof.Budget
	gen     uint64
}

func newCacheShard[K comparable, V any](limit uint64) *cacheShard[K, V] {
	return &cacheShard[K, V]{
		entries: make(map[K]*entry[K, V]),
		budget:  sizeof.NewBudget(limit),
	}
}

func (s *cacheShard[K, V]) get(key K, touch bool) (*Handle[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if touch {
		s.gen++
		e.gen = s.gen
		s.moveToFront(e)
	}
	return e.handle, true
}

// insert stores h under key and evicts least recently used entries until
// the shard fits its budget or only the new entry remains.
func (s *cacheShard[K, V]) insert(key K, h *Handle[V]) []dropped {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []dropped
	s.gen++

	if e, ok := s.entries[key]; ok {
		s.budget.Refund(e.handle.size)
		out = append(out, dropped{bytes: e.handle.size, reason: ReasonReplaced})
		e.handle = h
		e.gen = s.gen
		s.moveToFront(e)
	} else {
		e := &entry[K, V]{key: key, handle: h, gen: s.gen}
		s.entries[key] = e
		s.pushFront(e)
	}
	s.budget.Charge(h.size)

	return s.evictToBudget(out)
}

func (s *cacheShard[K, V]) evictToBudget(out []dropped) []dropped {
	for s.budget.Over() && len(s.entries) > 1 {
		victim := s.tail
		s.unlink(victim)
		delete(s.entries, victim.key)
		s.budget.Refund(victim.handle.size)
		out = append(out, dropped{bytes: victim.handle.size, reason: ReasonCapacity})
	}
	return out
}

func (s *cacheShard[K, V]) remove(key K) (*Handle[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	s.unlink(e)
	delete(s.entries, key)
	s.budget.Refund(e.handle.size)
	return e.handle, true
}

func (s *cacheShard[K, V]) clear() []dropped {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]dropped, 0, len(s.entries))
	for e := s.head; e != nil; e = e.next {
		out = append(out, dropped{bytes: e.handle.size, reason: ReasonCleared})
	}
	s.entries = make(map[K]*entry[K, V])
	s.head, s.tail = nil, nil
	s.budget.Used = 0
	return out
}

// items returns the shard's entries from most to least recently used.
func (s *cacheShard[K, V]) items() []Item[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item[K, V], 0, len(s.entries))
	for e := s.head; e != nil; e = e.next {
		out = append(out, Item[K, V]{Key: e.key, Handle: e.handle})
	}
	return out
}

func (s *cacheShard[K, V]) stats() (int, sizeof.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), s.budget
}

func (s *cacheShard[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *cacheShard[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (s *cacheShard[K, V]) moveToFront(e *entry[K, V]) {
	if s.head == e {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}
