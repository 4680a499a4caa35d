package bench

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/heapcache/cache"
)

const (
	defaultSkew        = 1.1
	defaultRemoveRatio = 0.01
)

// ProducerFactory returns the producer that computes the value for key.
type ProducerFactory func(key string) cache.Producer[[]byte]

// Config describes a workload.
type Config struct {
	// Keys is the size of the key space.
	Keys int

	// Workers is the number of concurrent goroutines.
	Workers int

	// Ops is the total number of operations across all workers.
	Ops int

	// Skew is the Zipf exponent. Must be greater than 1.
	// Default: 1.1
	Skew float64

	// RemoveRatio is the fraction of operations that remove their key.
	// Default: 0.01
	RemoveRatio float64

	// Seed makes key selection reproducible.
	Seed uint64

	// Produce builds the producer for a missed key.
	Produce ProducerFactory
}

// Validate reports whether c can be run.
func (c *Config) Validate() error {
	switch {
	case c.Keys < 1:
		return fmt.Errorf("%w: keys must be positive, got %d", ErrInvalidConfig, c.Keys)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.Ops < 0:
		return fmt.Errorf("%w: ops must not be negative, got %d", ErrInvalidConfig, c.Ops)
	case c.Skew != 0 && c.Skew <= 1:
		return fmt.Errorf("%w: skew must be greater than 1, got %g", ErrInvalidConfig, c.Skew)
	case c.RemoveRatio < 0 || c.RemoveRatio >= 1:
		return fmt.Errorf("%w: remove ratio must be in [0, 1), got %g", ErrInvalidConfig, c.RemoveRatio)
	case c.Produce == nil:
		return fmt.Errorf("%w: producer factory is required", ErrInvalidConfig)
	}
	return nil
}

// Result summarizes a finished workload. Misses counts lookups that ran
// their producer; a lookup served by another caller's in-flight producer
// counts as a hit.
type Result struct {
	Ops       int64         `json:"ops"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Removes   int64         `json:"removes"`
	Errors    int64         `json:"errors"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS float64       `json:"elapsed_ms"`
	OpsPerSec float64       `json:"ops_per_sec"`
}

// HitRatio returns hits over lookups, or 0 before any lookup.
func (r Result) HitRatio() float64 {
	lookups := r.Hits + r.Misses
	if lookups == 0 {
		return 0
	}
	return float64(r.Hits) / float64(lookups)
}

type counters struct {
	ops, hits, misses, removes, errors atomic.Int64
}

// Run executes the workload against c. Producer errors are counted, not
// returned. Run stops early and returns ctx.Err() when ctx is cancelled.
func Run(ctx context.Context, c *cache.Cache[string, []byte], cfg Config) (Result, error) {
	if cfg.Skew == 0 {
		cfg.Skew = defaultSkew
	}
	if cfg.RemoveRatio == 0 {
		cfg.RemoveRatio = defaultRemoveRatio
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	keys := make([]string, cfg.Keys)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%06d", i)
	}

	var n counters
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	per, rem := cfg.Ops/cfg.Workers, cfg.Ops%cfg.Workers
	for w := range cfg.Workers {
		ops := per
		if w < rem {
			ops++
		}
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(w)))
		zipf := rand.NewZipf(rng, cfg.Skew, 1, uint64(cfg.Keys-1))
		g.Go(func() error {
			for range ops {
				if err := gctx.Err(); err != nil {
					return err
				}
				key := keys[zipf.Uint64()]
				n.ops.Add(1)

				if rng.Float64() < cfg.RemoveRatio {
					c.Remove(key)
					n.removes.Add(1)
					continue
				}
				produce, ran := cfg.Produce(key), false
				_, err := c.GetOrInsertWith(gctx, key, func(ctx context.Context) ([]byte, error) {
					ran = true
					return produce(ctx)
				})
				if ran {
					n.misses.Add(1)
				} else {
					n.hits.Add(1)
				}
				if err != nil {
					n.errors.Add(1)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	elapsed := time.Since(start)
	r := Result{
		Ops:       n.ops.Load(),
		Hits:      n.hits.Load(),
		Misses:    n.misses.Load(),
		Removes:   n.removes.Load(),
		Errors:    n.errors.Load(),
		Elapsed:   elapsed,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000,
	}
	if s := elapsed.Seconds(); s > 0 {
		r.OpsPerSec = float64(r.Ops) / s
	}
	return r, err
}

// FixedSize returns a factory whose producers allocate size bytes filled
// with a pattern derived from the key.
func FixedSize(size int) ProducerFactory {
	return func(key string) cache.Producer[[]byte] {
		return func(context.Context) ([]byte, error) {
			b := make([]byte, size)
			for i := range b {
				b[i] = key[i%len(key)]
			}
			return b, nil
		}
	}
}
