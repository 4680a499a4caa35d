package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/heapcache/cache"
)

func TestWrapProducer_Success(t *testing.T) {
	spans, tracer := newRecordingTracer()
	reader, mp := newTestMeter()
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics error = %v", err)
	}
	var logs bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("debug", &logs))

	meta := CacheMeta{Subsystem: "text", Name: "shaping"}
	c := cache.New[string, string](cache.Config[string]{Shards: 1})
	produce := WrapProducer[string](mw, meta, func(context.Context) (string, error) {
		return "shaped", nil
	})

	h, err := c.GetOrInsertWith(context.Background(), "run-1", produce)
	if err != nil {
		t.Fatalf("GetOrInsertWith error = %v", err)
	}
	if h.Value() != "shaped" {
		t.Errorf("Value() = %q, want shaped", h.Value())
	}

	// A hit does not run the producer again.
	if _, err := c.GetOrInsertWith(context.Background(), "run-1", produce); err != nil {
		t.Fatalf("GetOrInsertWith error = %v", err)
	}

	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	if ended[0].Name() != "cache.produce.text.shaping" {
		t.Errorf("span name = %q", ended[0].Name())
	}
	if got := counterValue(t, collect(t, reader), "cache.producer.total"); got != 1 {
		t.Errorf("cache.producer.total = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), "cache producer completed") {
		t.Errorf("log output = %q", logs.String())
	}
}

func TestWrapProducer_Error(t *testing.T) {
	spans, tracer := newRecordingTracer()
	reader, mp := newTestMeter()
	metrics, _ := NewMetrics(mp.Meter("test"))
	var logs bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", &logs))

	boom := errors.New("boom")
	produce := WrapProducer[int](mw, CacheMeta{Name: "broken"}, func(context.Context) (int, error) {
		return 0, boom
	})

	c := cache.New[string, int](cache.Config[int]{Shards: 1})
	if _, err := c.GetOrInsertWith(context.Background(), "k", produce); !errors.Is(err, boom) {
		t.Fatalf("GetOrInsertWith error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("failed producer should not populate the cache")
	}

	if s := spans.Ended()[0]; s.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", s.Status().Code)
	}
	if got := counterValue(t, collect(t, reader), "cache.producer.errors"); got != 1 {
		t.Errorf("cache.producer.errors = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), `"level":"error"`) || !strings.Contains(logs.String(), "boom") {
		t.Errorf("log output = %q", logs.String())
	}
}

func TestWrapProducer_ContextCarriesSpan(t *testing.T) {
	spans, tracer := newRecordingTracer()
	mw := NewMiddleware(tracer, nil, nil)

	var sawSpan bool
	produce := WrapProducer[int](mw, CacheMeta{Name: "ctx"}, func(ctx context.Context) (int, error) {
		sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
		return 1, nil
	})
	if _, err := produce(context.Background()); err != nil {
		t.Fatalf("produce error = %v", err)
	}
	if !sawSpan {
		t.Error("producer context should carry the producer span")
	}
	if len(spans.Ended()) != 1 {
		t.Errorf("got %d spans, want 1", len(spans.Ended()))
	}
}

func TestWrapProducer_NilMiddleware(t *testing.T) {
	p := func(context.Context) (int, error) { return 3, nil }
	wrapped := WrapProducer[int](nil, CacheMeta{Name: "x"}, p)
	if v, _ := wrapped(context.Background()); v != 3 {
		t.Errorf("wrapped() = %d, want 3", v)
	}
	if WrapProducer[int](NewMiddleware(nil, nil, nil), CacheMeta{Name: "x"}, nil) != nil {
		t.Error("wrapping a nil producer should return nil")
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("MiddlewareFromObserver(nil) error = %v", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "svc"})
	if err != nil {
		t.Fatalf("NewObserver error = %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver error = %v", err)
	}
	v, err := WrapProducer[string](mw, CacheMeta{Name: "noop"}, func(context.Context) (string, error) {
		return "ok", nil
	})(context.Background())
	if err != nil || v != "ok" {
		t.Errorf("wrapped producer = (%q, %v)", v, err)
	}
}
