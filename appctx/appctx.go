package appctx

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/heapcache/cache"
	"github.com/jonwraymond/heapcache/health"
	"github.com/jonwraymond/heapcache/intern"
	"github.com/jonwraymond/heapcache/observe"
)

// Config configures an application context.
type Config struct {
	// Observe configures telemetry. ServiceName defaults to "heapcache".
	Observe observe.Config

	// Health configures the health aggregator.
	Health health.AggregatorConfig

	// Subsystem labels every cache registered through this context.
	Subsystem string
}

// Context owns the process-wide state that subsystems share: named caches,
// the atom table, telemetry and health checks. Create one at startup and
// pass it to whatever needs a cache.
type Context struct {
	subsystem string
	atoms     *intern.Atoms
	observer  observe.Observer
	mw        *observe.Middleware
	health    *health.Aggregator

	mu     sync.RWMutex
	caches map[string]*registered
	closed bool
}

type registered struct {
	cache any
	usage observe.UsageSource
	gauge metric.Registration
}

// New creates a Context. The returned Context must be closed with Close.
func New(ctx context.Context, cfg Config) (*Context, error) {
	if cfg.Observe.ServiceName == "" {
		cfg.Observe.ServiceName = "heapcache"
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("appctx: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("appctx: %w", err)
	}

	c := &Context{
		subsystem: cfg.Subsystem,
		atoms:     intern.NewAtoms(),
		observer:  obs,
		mw:        mw,
		health:    health.NewAggregator(cfg.Health),
		caches:    make(map[string]*registered),
	}
	c.health.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{
		Budget: c.TotalBudget,
	}))
	return c, nil
}

var defaultContext = sync.OnceValue(func() *Context {
	c, err := New(context.Background(), Config{})
	if err != nil {
		// Telemetry is disabled in the zero Config, so New cannot fail.
		panic(err)
	}
	return c
})

// Default returns a process-wide Context with telemetry disabled, created
// on first use. It is never closed. Prefer passing an explicit Context.
func Default() *Context {
	return defaultContext()
}

// Atoms returns the shared atom table.
func (c *Context) Atoms() *intern.Atoms { return c.atoms }

// Observer returns the telemetry observer.
func (c *Context) Observer() observe.Observer { return c.observer }

// Logger returns the observer's logger.
func (c *Context) Logger() observe.Logger { return c.observer.Logger() }

// Middleware returns producer middleware backed by the observer.
func (c *Context) Middleware() *observe.Middleware { return c.mw }

// Health returns the health aggregator. Every registered cache adds a
// budget check named "cache:<name>", next to the "memory" check.
func (c *Context) Health() *health.Aggregator { return c.health }

// Meta returns the telemetry identity of the cache called name.
func (c *Context) Meta(name string) observe.CacheMeta {
	return observe.CacheMeta{Subsystem: c.subsystem, Name: name}
}

// Names returns the registered cache names in sorted order.
func (c *Context) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.caches))
}

// TotalBudget returns the sum of the budgets of all registered caches.
func (c *Context) TotalBudget() uint64 {
	c.mu.RLock()
	sources := make([]observe.UsageSource, 0, len(c.caches))
	for _, r := range c.caches {
		sources = append(sources, r.usage)
	}
	c.mu.RUnlock()

	var total uint64
	for _, s := range sources {
		total += s.Snapshot().Budget
	}
	return total
}

// Register creates a cache called name and wires it to the context's
// telemetry and health checks. cfg.Listener, when nil, is set to a
// recorder for the cache's metrics.
func Register[K comparable, V any](c *Context, name string, cfg cache.Config[V]) (*cache.Cache[K, V], error) {
	meta := c.Meta(name)
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("appctx: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, exists := c.caches[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateCache, name)
	}

	if cfg.Listener == nil {
		rec, err := observe.NewRecorder(c.observer.Meter(), c.observer.Logger(), meta)
		if err != nil {
			return nil, fmt.Errorf("appctx: %w", err)
		}
		cfg.Listener = rec
	}

	cc := cache.New[K, V](cfg)
	gauge, err := observe.RegisterUsage(c.observer.Meter(), meta, cc)
	if err != nil {
		return nil, fmt.Errorf("appctx: %w", err)
	}

	c.caches[name] = &registered{cache: cc, usage: cc, gauge: gauge}
	c.health.Register(checkName(name), health.NewBudgetChecker(name, cc))
	c.observer.Logger().WithCache(meta).Debug(context.Background(), "cache registered",
		observe.Field{Key: "shards", Value: cc.ShardCount()},
	)
	return cc, nil
}

// Lookup returns the cache called name. It fails with ErrCacheType when
// the cache exists with other key or value types.
func Lookup[K comparable, V any](c *Context, name string) (*cache.Cache[K, V], bool, error) {
	c.mu.RLock()
	r, ok := c.caches[name]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	cc, ok := r.cache.(*cache.Cache[K, V])
	if !ok {
		return nil, false, fmt.Errorf("%w: %q is %T", ErrCacheType, name, r.cache)
	}
	return cc, true, nil
}

// Unregister drops the cache called name from the registry, its gauges
// and its health check. The cache itself stays usable by holders.
func (c *Context) Unregister(name string) bool {
	c.mu.Lock()
	r, ok := c.caches[name]
	delete(c.caches, name)
	c.mu.Unlock()

	if !ok {
		return false
	}
	_ = r.gauge.Unregister()
	c.health.Unregister(checkName(name))
	return true
}

// Close unregisters every cache and shuts telemetry down. Later calls
// return nil.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	caches := c.caches
	c.caches = make(map[string]*registered)
	c.mu.Unlock()

	var errs []error
	for name, r := range caches {
		if err := r.gauge.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %w", name, err))
		}
		c.health.Unregister(checkName(name))
	}
	if err := c.observer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func checkName(name string) string { return "cache:" + name }
