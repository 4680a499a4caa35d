package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/heapcache/cache"
)

// Middleware wraps producers with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: wrapped producers are safe for concurrent use when the
//     underlying producer is.
//   - Context: the producer receives the context carrying its span.
//   - Errors: producer errors are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced with
// no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware backed by the observer's
// tracer, meter and logger.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// observe runs fn inside a producer span and records its outcome.
func (m *Middleware) observe(ctx context.Context, meta CacheMeta, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordProduce(ctx, meta, duration, err)

	fields := []Field{{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)}}
	logger := m.logger.WithCache(meta)
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		logger.Error(ctx, "cache producer failed", fields...)
	} else {
		logger.Debug(ctx, "cache producer completed", fields...)
	}
	return err
}

// WrapProducer returns a producer that runs p under m. A nil Middleware
// returns p unchanged.
func WrapProducer[V any](m *Middleware, meta CacheMeta, p cache.Producer[V]) cache.Producer[V] {
	if m == nil || p == nil {
		return p
	}
	return func(ctx context.Context) (V, error) {
		var v V
		err := m.observe(ctx, meta, func(ctx context.Context) error {
			var err error
			v, err = p(ctx)
			return err
		})
		return v, err
	}
}
