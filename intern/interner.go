package intern

import (
	"sync"

	"github.com/jonwraymond/heapcache/sizeof"
)

// Handle is a shared reference to an interned value.
//
// Two handles obtained from the same Interner for equal values are the same
// pointer, so handle equality is value equality.
type Handle[T comparable] struct {
	value T
	size  uint64
	refs  int64 // guarded by owner.mu
	owner *Interner[T]
}

// Value returns the interned value.
func (h *Handle[T]) Value() T {
	return h.value
}

// Refs returns the current reference count. Zero means the handle has been
// fully released and is no longer reachable from its interner.
func (h *Handle[T]) Refs() int64 {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	return h.refs
}

// Size returns the bytes the interner accounts for this value.
func (h *Handle[T]) Size() uint64 {
	return h.size
}

// SharedHeapSize implements sizeof.Shared. The payload is owned by the
// interner, so a holder is charged nothing beyond the pointer it stores.
func (h *Handle[T]) SharedHeapSize() uint64 {
	return 0
}

// Release drops one reference. When the last reference is released the value
// is removed from the interner and its bytes are no longer accounted.
// Releasing a handle that is already dead is a no-op.
func (h *Handle[T]) Release() {
	h.owner.release(h)
}

// Interner deduplicates equal values into a single shared Handle.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent Intern calls for
//     equal values converge on one Handle.
//   - Ownership: every Intern must be paired with one Release. Extra
//     Release calls on a live handle steal another holder's reference.
//   - Errors: interning cannot fail.
type Interner[T comparable] struct {
	mu    sync.Mutex
	table map[T]*Handle[T]
	bytes uint64
	size  func(T) uint64
}

// Option configures an Interner.
type Option[T comparable] func(*Interner[T])

// WithSizer overrides how interned values are accounted.
func WithSizer[T comparable](size func(T) uint64) Option[T] {
	return func(in *Interner[T]) {
		if size != nil {
			in.size = size
		}
	}
}

// New creates an empty interner.
func New[T comparable](opts ...Option[T]) *Interner[T] {
	in := &Interner[T]{
		table: make(map[T]*Handle[T]),
		size:  sizeof.OfFunc[T](),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Intern returns the shared handle for v, creating it on first use.
func (in *Interner[T]) Intern(v T) *Handle[T] {
	in.mu.Lock()
	defer in.mu.Unlock()

	if h, ok := in.table[v]; ok {
		h.refs++
		return h
	}

	h := &Handle[T]{
		value: v,
		size:  in.size(v),
		refs:  1,
		owner: in,
	}
	in.table[v] = h
	in.bytes += h.size
	return h
}

// Lookup returns the live handle for v without taking a reference.
func (in *Interner[T]) Lookup(v T) (*Handle[T], bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	h, ok := in.table[v]
	return h, ok
}

// Len returns the number of distinct live values.
func (in *Interner[T]) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.table)
}

// Bytes returns the accounted size of all live values.
func (in *Interner[T]) Bytes() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.bytes
}

func (in *Interner[T]) release(h *Handle[T]) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if h.refs <= 0 {
		return
	}
	h.refs--
	if h.refs > 0 {
		return
	}
	// A fresh handle may have replaced h after a full release.
	if cur, ok := in.table[h.value]; ok && cur == h {
		delete(in.table, h.value)
		in.bytes -= h.size
	}
}
