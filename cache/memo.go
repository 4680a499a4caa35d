package cache

import (
	"context"
	"fmt"
)

// MemoFunc computes a value from a structured input.
type MemoFunc[V any] func(ctx context.Context, input any) (V, error)

// Memo caches the results of a function keyed by its input.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: producer errors are returned and never cached.
//   - Inputs whose key cannot be derived are computed without caching.
type Memo[V any] struct {
	cache     *Cache[string, V]
	keyer     Keyer
	namespace string
}

// NewMemo creates a memo storing results in c under namespace.
// If keyer is nil, DefaultKeyer is used.
func NewMemo[V any](c *Cache[string, V], keyer Keyer, namespace string) (*Memo[V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if err := ValidateKey(namespace); err != nil {
		return nil, fmt.Errorf("memo namespace %q: %w", namespace, err)
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Memo[V]{cache: c, keyer: keyer, namespace: namespace}, nil
}

// Do returns the cached result for input, computing it with fn on a miss.
func (m *Memo[V]) Do(ctx context.Context, input any, fn MemoFunc[V]) (*Handle[V], error) {
	if fn == nil {
		return nil, ErrNilProducer
	}

	key, err := m.keyer.Key(m.namespace, input)
	if err != nil {
		v, err := fn(ctx, input)
		if err != nil {
			return nil, err
		}
		return &Handle[V]{value: v, size: m.cache.sizer(v)}, nil
	}

	return m.cache.GetOrInsertWith(ctx, key, func(ctx context.Context) (V, error) {
		return fn(ctx, input)
	})
}

// Forget drops the cached result for input, if any.
func (m *Memo[V]) Forget(input any) bool {
	key, err := m.keyer.Key(m.namespace, input)
	if err != nil {
		return false
	}
	_, ok := m.cache.Remove(key)
	return ok
}
