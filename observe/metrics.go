package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/heapcache/cache"
)

// Metrics records producer executions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProduce records one producer call with its duration and outcome.
	RecordProduce(ctx context.Context, meta CacheMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates producer instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"cache.producer.total",
		metric.WithDescription("Total number of producer calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"cache.producer.errors",
		metric.WithDescription("Total number of failed producer calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.producer.duration_ms",
		metric.WithDescription("Producer duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordProduce(ctx context.Context, meta CacheMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordProduce(context.Context, CacheMeta, time.Duration, error) {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

// Recorder turns cache activity into counters. It implements cache.Listener
// and is attached through cache.Config.Listener.
//
// Capacity evictions count toward cache.evictions and cache.evicted_bytes.
// Explicit removals, replacements and clears count toward cache.removals
// labelled with their reason.
type Recorder struct {
	logger Logger

	hits          metric.Int64Counter
	misses        metric.Int64Counter
	inserts       metric.Int64Counter
	insertedBytes metric.Int64Counter
	evictions     metric.Int64Counter
	evictedBytes  metric.Int64Counter
	removals      metric.Int64Counter

	base     metric.MeasurementOption
	byReason map[cache.Reason]metric.MeasurementOption
}

var _ cache.Listener = (*Recorder)(nil)

// NewRecorder creates the cache counters on meter. A nil logger discards
// eviction logs.
func NewRecorder(meter metric.Meter, logger Logger, meta CacheMeta) (*Recorder, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = noopLogger{}
	}

	r := &Recorder{
		logger:   logger.WithCache(meta),
		base:     metric.WithAttributeSet(attribute.NewSet(meta.attributes()...)),
		byReason: make(map[cache.Reason]metric.MeasurementOption),
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&r.hits, "cache.hits", "Lookups that found a key", "{lookup}"},
		{&r.misses, "cache.misses", "Lookups that did not find a key", "{lookup}"},
		{&r.inserts, "cache.inserts", "Values stored", "{entry}"},
		{&r.insertedBytes, "cache.inserted_bytes", "Bytes charged for stored values", "By"},
		{&r.evictions, "cache.evictions", "Entries evicted to stay within budget", "{entry}"},
		{&r.evictedBytes, "cache.evicted_bytes", "Bytes released by capacity evictions", "By"},
		{&r.removals, "cache.removals", "Entries removed, replaced or cleared", "{entry}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	for _, reason := range []cache.Reason{cache.ReasonRemoved, cache.ReasonReplaced, cache.ReasonCleared} {
		attrs := append(meta.attributes(), attribute.String("cache.reason", reason.String()))
		r.byReason[reason] = metric.WithAttributeSet(attribute.NewSet(attrs...))
	}

	return r, nil
}

// Hit implements cache.Listener.
func (r *Recorder) Hit(int) {
	r.hits.Add(context.Background(), 1, r.base)
}

// Miss implements cache.Listener.
func (r *Recorder) Miss(int) {
	r.misses.Add(context.Background(), 1, r.base)
}

// Inserted implements cache.Listener.
func (r *Recorder) Inserted(_ int, bytes uint64) {
	ctx := context.Background()
	r.inserts.Add(ctx, 1, r.base)
	r.insertedBytes.Add(ctx, int64(bytes), r.base)
}

// Removed implements cache.Listener.
func (r *Recorder) Removed(shard int, bytes uint64, reason cache.Reason) {
	ctx := context.Background()
	if reason == cache.ReasonCapacity {
		r.evictions.Add(ctx, 1, r.base)
		r.evictedBytes.Add(ctx, int64(bytes), r.base)
		r.logger.Debug(ctx, "cache entry evicted",
			Field{Key: "shard", Value: shard},
			Field{Key: "bytes", Value: bytes},
		)
		return
	}
	opt, ok := r.byReason[reason]
	if !ok {
		opt = r.base
	}
	r.removals.Add(ctx, 1, opt)
}

// UsageSource is anything that can describe its current footprint.
// *cache.Cache satisfies it for every type instantiation.
type UsageSource interface {
	Snapshot() cache.Snapshot
}

// RegisterUsage publishes cache.bytes_used, cache.bytes_budget and
// cache.entries as observable gauges read from src on every collection.
// Unregister the returned registration when the cache is discarded.
func RegisterUsage(meter metric.Meter, meta CacheMeta, src UsageSource) (metric.Registration, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNilUsageSource
	}

	used, err := meter.Int64ObservableGauge("cache.bytes_used",
		metric.WithDescription("Bytes currently charged to the cache"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	budget, err := meter.Int64ObservableGauge("cache.bytes_budget",
		metric.WithDescription("Sum of all shard budgets"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	entries, err := meter.Int64ObservableGauge("cache.entries",
		metric.WithDescription("Entries currently cached"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	opt := metric.WithAttributeSet(attribute.NewSet(meta.attributes()...))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := src.Snapshot()
		o.ObserveInt64(used, int64(snap.Used), opt)
		o.ObserveInt64(budget, int64(snap.Budget), opt)
		o.ObserveInt64(entries, int64(snap.Entries), opt)
		return nil
	}, used, budget, entries)
}
