package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/heapcache/appctx"
	"github.com/jonwraymond/heapcache/cache"
	"github.com/jonwraymond/heapcache/health"
	"github.com/jonwraymond/heapcache/internal/bench"
	"github.com/jonwraymond/heapcache/observe"
	"github.com/jonwraymond/heapcache/resilience"
)

const cacheName = "bench"

var metricsExporters = []string{"stdout", "prometheus", "none"}

type runOptions struct {
	shards       int
	budget       uint64
	keys         int
	workers      int
	ops          int
	valueSize    int
	singleFlight bool
	seed         uint64
	metrics      string
	logLevel     string
	timeout      time.Duration
	rate         float64
	serve        string
}

func defaultRunOptions() runOptions {
	return runOptions{
		budget:    cache.DefaultShardBudget,
		keys:      10_000,
		workers:   8,
		ops:       1_000_000,
		valueSize: 256,
		metrics:   "none",
		logLevel:  "warn",
		timeout:   time.Second,
	}
}

func (o *runOptions) validate() error {
	if !slices.Contains(metricsExporters, o.metrics) {
		return fmt.Errorf("%w: --metrics must be one of %v, got %q", errUsage, metricsExporters, o.metrics)
	}
	if o.shards < 0 {
		return fmt.Errorf("%w: --shards must not be negative", errUsage)
	}
	if o.valueSize < 1 {
		return fmt.Errorf("%w: --value-size must be positive", errUsage)
	}
	if o.rate < 0 {
		return fmt.Errorf("%w: --rate must not be negative", errUsage)
	}
	if o.timeout <= 0 {
		return fmt.Errorf("%w: --timeout must be positive", errUsage)
	}
	return nil
}

func newRunCmd() *cobra.Command {
	opts := defaultRunOptions()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload and print the cache snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBench(ctx, cmd, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &flagParseError{err: err}
	})

	f := cmd.Flags()
	f.IntVar(&opts.shards, "shards", opts.shards, "number of shards (0 derives from GOMAXPROCS)")
	f.Uint64Var(&opts.budget, "budget", opts.budget, "byte budget per shard")
	f.IntVar(&opts.keys, "keys", opts.keys, "size of the key space")
	f.IntVar(&opts.workers, "workers", opts.workers, "concurrent workers")
	f.IntVar(&opts.ops, "ops", opts.ops, "total operations")
	f.IntVar(&opts.valueSize, "value-size", opts.valueSize, "bytes per produced value")
	f.BoolVar(&opts.singleFlight, "single-flight", opts.singleFlight, "coalesce concurrent misses per key")
	f.Uint64Var(&opts.seed, "seed", opts.seed, "random seed for key selection")
	f.StringVar(&opts.metrics, "metrics", opts.metrics, "metrics exporter: stdout|prometheus|none")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug|info|warn|error")
	f.DurationVar(&opts.timeout, "timeout", opts.timeout, "per-producer timeout")
	f.Float64Var(&opts.rate, "rate", opts.rate, "producer calls per second (0 disables the limit)")
	f.StringVar(&opts.serve, "serve", opts.serve, "after the run, serve /healthz, /health and /metrics on this address")
	return cmd
}

type report struct {
	Result   bench.Result   `json:"result"`
	HitRatio float64        `json:"hit_ratio"`
	Snapshot cache.Snapshot `json:"snapshot"`
	Health   health.Report  `json:"health"`
}

func runBench(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	app, err := appctx.New(ctx, appctx.Config{
		Subsystem: "bench",
		Observe: observe.Config{
			ServiceName: "heapcache-bench",
			Version:     version,
			Metrics: observe.MetricsConfig{
				Enabled:  opts.metrics != "none",
				Exporter: opts.metrics,
			},
			Logging: observe.LoggingConfig{
				Enabled: true,
				Level:   opts.logLevel,
				Output:  cmd.ErrOrStderr(),
			},
		},
	})
	if err != nil {
		if errors.Is(err, observe.ErrInvalidLogLevel) {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(shutdownCtx)
	}()

	c, err := appctx.Register[string, []byte](app, cacheName, cache.Config[[]byte]{
		Shards:       opts.shards,
		ShardBudget:  opts.budget,
		SingleFlight: opts.singleFlight,
	})
	if err != nil {
		return err
	}

	guardOpts := []resilience.GuardOption{
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: opts.workers,
			MaxWait:       opts.timeout,
		})),
		resilience.WithTimeout(resilience.NewTimeout(opts.timeout)),
	}
	if opts.rate > 0 {
		guardOpts = append(guardOpts, resilience.WithRateLimit(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:    opts.rate,
			Burst:   opts.workers,
			MaxWait: opts.timeout,
		})))
	}
	guard := resilience.NewGuard(guardOpts...)
	meta := app.Meta(cacheName)
	values := bench.FixedSize(opts.valueSize)
	produce := func(key string) cache.Producer[[]byte] {
		return resilience.Wrap(guard, observe.WrapProducer(app.Middleware(), meta, values(key)))
	}

	res, err := bench.Run(ctx, c, bench.Config{
		Keys:    opts.keys,
		Workers: opts.workers,
		Ops:     opts.ops,
		Seed:    opts.seed,
		Produce: produce,
	})
	if err != nil {
		if errors.Is(err, bench.ErrInvalidConfig) {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return err
	}

	out := report{
		Result:   res,
		HitRatio: res.HitRatio(),
		Snapshot: c.Snapshot(),
		Health:   app.Health().Report(ctx),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if opts.serve == "" {
		return nil
	}
	return serve(ctx, app, opts)
}

func serve(ctx context.Context, app *appctx.Context, opts runOptions) error {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, app.Health())
	if opts.metrics == "prometheus" {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              opts.serve,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	app.Logger().Info(ctx, "serving diagnostics", observe.Field{Key: "addr", Value: opts.serve})

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
