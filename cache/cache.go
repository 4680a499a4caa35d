package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/heapcache/shard"
	"github.com/jonwraymond/heapcache/sizeof"
)

// DefaultShardBudget is the per-shard byte budget used when none is set.
const DefaultShardBudget = 8 << 20

// Handle is a shared, read-only reference to a cached value.
//
// A handle stays valid after its entry is evicted or replaced; it simply
// stops being reachable from the cache. Callers must not mutate the value.
type Handle[V any] struct {
	value V
	size  uint64
}

// Value returns the cached value.
func (h *Handle[V]) Value() V {
	return h.value
}

// Size returns the bytes accounted for the value when it was inserted.
func (h *Handle[V]) Size() uint64 {
	return h.size
}

// Item is a key and its handle, as yielded by Range.
type Item[K comparable, V any] struct {
	Key    K
	Handle *Handle[V]
}

// Producer computes a value on a cache miss.
type Producer[V any] func(ctx context.Context) (V, error)

// Config configures a Cache.
type Config[V any] struct {
	// Shards is the number of partitions. Zero derives it from hardware
	// concurrency. Rounded up to a power of two.
	Shards int

	// ShardBudget is the soft byte limit per shard.
	// Default: DefaultShardBudget
	ShardBudget uint64

	// Sizer computes a value's footprint. Called once per insertion.
	// Default: sizeof.Of
	Sizer func(V) uint64

	// SingleFlight coalesces concurrent GetOrInsertWith misses for the same
	// key into one producer run. When false, racing callers may each run
	// their producer and the last insert wins.
	SingleFlight bool

	// Listener observes hits, misses, inserts and removals.
	Listener Listener
}

// Cache is a sharded, heap-size-bounded key/value store with per-shard LRU
// eviction.
//
// Contract:
//   - Concurrency: safe for concurrent use. Operations on different shards
//     never block each other.
//   - Producers run outside shard locks and may use the cache themselves.
//   - Errors: a miss is reported as (nil, false), never as an error.
type Cache[K comparable, V any] struct {
	dispatch *shard.Dispatcher[K]
	shards   []*cacheShard[K, V]
	sizer    func(V) uint64
	listener Listener
	flight   *singleflight.Group
}

// New creates a cache from cfg, applying defaults for zero fields.
func New[K comparable, V any](cfg Config[V]) *Cache[K, V] {
	if cfg.ShardBudget == 0 {
		cfg.ShardBudget = DefaultShardBudget
	}
	if cfg.Sizer == nil {
		cfg.Sizer = sizeof.OfFunc[V]()
	}
	if cfg.Listener == nil {
		cfg.Listener = noopListener{}
	}

	d := shard.NewDispatcher[K](cfg.Shards)
	c := &Cache[K, V]{
		dispatch: d,
		shards:   make([]*cacheShard[K, V], d.Count()),
		sizer:    cfg.Sizer,
		listener: cfg.Listener,
	}
	for i := range c.shards {
		c.shards[i] = newCacheShard[K, V](cfg.ShardBudget)
	}
	if cfg.SingleFlight {
		c.flight = &singleflight.Group{}
	}
	return c
}

// Get returns the handle for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (*Handle[V], bool) {
	idx := c.dispatch.For(key)
	h, ok := c.shards[idx].get(key, true)
	if ok {
		c.listener.Hit(idx)
	} else {
		c.listener.Miss(idx)
	}
	return h, ok
}

// Peek returns the handle for key without changing its recency.
func (c *Cache[K, V]) Peek(key K) (*Handle[V], bool) {
	return c.shards[c.dispatch.For(key)].get(key, false)
}

// Contains reports whether key is present without changing its recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.Peek(key)
	return ok
}

// Insert stores value under key, replacing any previous value, and evicts
// least recently used entries from the key's shard until it fits its budget.
// A value larger than the whole budget is still stored; it evicts every
// other entry in its shard.
func (c *Cache[K, V]) Insert(key K, value V) *Handle[V] {
	h := &Handle[V]{value: value, size: c.sizer(value)}
	idx := c.dispatch.For(key)

	out := c.shards[idx].insert(key, h)

	c.listener.Inserted(idx, h.size)
	for _, d := range out {
		c.listener.Removed(idx, d.bytes, d.reason)
	}
	return h
}

// GetOrInsertWith returns the cached handle for key, or runs producer and
// inserts its result on a miss.
//
// The producer runs without any shard lock held. Unless Config.SingleFlight
// is set, concurrent misses may each run their producer; every result is
// inserted and the last insert wins. A producer error is returned unchanged
// and leaves the cache untouched.
func (c *Cache[K, V]) GetOrInsertWith(ctx context.Context, key K, producer Producer[V]) (*Handle[V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if h, ok := c.Get(key); ok {
		return h, nil
	}
	if producer == nil {
		return nil, ErrNilProducer
	}

	if c.flight == nil {
		return c.produce(ctx, key, producer)
	}

	v, err, _ := c.flight.Do(flightKey(key), func() (any, error) {
		// A previous flight may have landed between our miss and this call.
		if h, ok := c.Peek(key); ok {
			return h, nil
		}
		return c.produce(ctx, key, producer)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle[V]), nil
}

func (c *Cache[K, V]) produce(ctx context.Context, key K, producer Producer[V]) (*Handle[V], error) {
	v, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	return c.Insert(key, v), nil
}

// Remove deletes key and returns its value.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	idx := c.dispatch.For(key)
	h, ok := c.shards[idx].remove(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.listener.Removed(idx, h.size, ReasonRemoved)
	return h.value, true
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	for i, s := range c.shards {
		for _, d := range s.clear() {
			c.listener.Removed(i, d.bytes, d.reason)
		}
	}
}

// Range calls fn for each entry, shard by shard, most recently used first
// within a shard. Iteration stops when fn returns false. fn runs without
// shard locks held and sees a point-in-time copy of each shard.
func (c *Cache[K, V]) Range(fn func(key K, h *Handle[V]) bool) {
	for _, s := range c.shards {
		for _, it := range s.items() {
			if !fn(it.Key, it.Handle) {
				return
			}
		}
	}
}

// Len returns the number of entries across all shards.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, s := range c.shards {
		count, _ := s.stats()
		n += count
	}
	return n
}

// TotalBytes returns the accounted bytes across all shards.
func (c *Cache[K, V]) TotalBytes() uint64 {
	var n uint64
	for _, s := range c.shards {
		_, b := s.stats()
		n += b.Used
	}
	return n
}

// ShardCount returns the number of shards.
func (c *Cache[K, V]) ShardCount() int {
	return len(c.shards)
}

// ShardFor returns the shard index key routes to.
func (c *Cache[K, V]) ShardFor(key K) int {
	return c.dispatch.For(key)
}

// flightKey renders a key for singleflight. Equal keys render equally and
// the dynamic type is part of the rendering, so 1 and "1" in a Cache[any, V]
// get separate flights.
func flightKey[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return "string\x00" + s
	}
	return fmt.Sprintf("%T\x00%#v", key, key)
}
