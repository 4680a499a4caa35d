package cache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Warm fills the cache for keys concurrently, running at most limit
// producers at once (limit <= 0 means unbounded). Keys already present are
// left alone. The first producer error cancels the remaining work and is
// returned; entries inserted before it stay cached.
func (c *Cache[K, V]) Warm(ctx context.Context, keys []K, limit int, produce func(ctx context.Context, key K) (V, error)) error {
	if c == nil {
		return ErrNilCache
	}
	if produce == nil {
		return ErrNilProducer
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, key := range keys {
		if c.Contains(key) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := c.GetOrInsertWith(gctx, key, func(ctx context.Context) (V, error) {
				return produce(ctx, key)
			})
			return err
		})
	}
	return g.Wait()
}
