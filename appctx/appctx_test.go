package appctx

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/jonwraymond/heapcache/cache"
	"github.com/jonwraymond/heapcache/health"
	"github.com/jonwraymond/heapcache/observe"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	c, err := New(context.Background(), Config{Subsystem: "test"})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := newTestContext(t)
	if c.Atoms() == nil || c.Observer() == nil || c.Logger() == nil || c.Middleware() == nil || c.Health() == nil {
		t.Fatal("New should populate every component")
	}
	if got := c.Health().CheckerNames(); !slices.Equal(got, []string{"memory"}) {
		t.Errorf("CheckerNames() = %v, want [memory]", got)
	}
}

func TestNew_InvalidObserveConfig(t *testing.T) {
	_, err := New(context.Background(), Config{
		Observe: observe.Config{Logging: observe.LoggingConfig{Enabled: true, Level: "loud"}},
	})
	if !errors.Is(err, observe.ErrInvalidLogLevel) {
		t.Fatalf("New error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	c := newTestContext(t)

	glyphs, err := Register[string, []byte](c, "glyphs", cache.Config[[]byte]{Shards: 2, ShardBudget: 1 << 10})
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	glyphs.Insert("a", []byte("outline"))

	got, ok, err := Lookup[string, []byte](c, "glyphs")
	if err != nil || !ok {
		t.Fatalf("Lookup = (%v, %v)", ok, err)
	}
	if got != glyphs {
		t.Error("Lookup should return the registered cache")
	}

	if _, ok, err := Lookup[string, []byte](c, "missing"); ok || err != nil {
		t.Errorf("Lookup(missing) = (%v, %v), want (false, nil)", ok, err)
	}
	if _, _, err := Lookup[int, []byte](c, "glyphs"); !errors.Is(err, ErrCacheType) {
		t.Errorf("Lookup with wrong key type error = %v, want ErrCacheType", err)
	}

	if got := c.Names(); !slices.Equal(got, []string{"glyphs"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := c.TotalBudget(); got != 2<<10 {
		t.Errorf("TotalBudget() = %d, want %d", got, 2<<10)
	}
}

func TestRegister_Errors(t *testing.T) {
	c := newTestContext(t)

	if _, err := Register[int, int](c, "", cache.Config[int]{}); !errors.Is(err, observe.ErrMissingCacheName) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := Register[int, int](c, "dup", cache.Config[int]{}); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if _, err := Register[int, int](c, "dup", cache.Config[int]{}); !errors.Is(err, ErrDuplicateCache) {
		t.Errorf("duplicate error = %v, want ErrDuplicateCache", err)
	}

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if _, err := Register[int, int](c, "late", cache.Config[int]{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Register after Close error = %v, want ErrClosed", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}

func TestRegister_KeepsCustomListener(t *testing.T) {
	c := newTestContext(t)
	l := &countingListener{}

	cc, err := Register[string, int](c, "custom", cache.Config[int]{Listener: l})
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	cc.Get("nothing")
	if l.misses != 1 {
		t.Errorf("custom listener misses = %d, want 1", l.misses)
	}
}

func TestRegister_AddsBudgetCheck(t *testing.T) {
	c := newTestContext(t)
	cc, err := Register[string, int](c, "boxes", cache.Config[int]{
		Shards:      1,
		ShardBudget: 10,
		Sizer:       func(v int) uint64 { return uint64(v) },
	})
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	cc.Insert("big", 50)

	r, err := c.Health().Check(context.Background(), "cache:boxes")
	if err != nil {
		t.Fatalf("Check error = %v", err)
	}
	if r.Status != health.StatusDegraded {
		t.Errorf("Status = %v, want degraded", r.Status)
	}

	if !c.Unregister("boxes") {
		t.Fatal("Unregister should report a removed cache")
	}
	if c.Unregister("boxes") {
		t.Error("second Unregister should report nothing removed")
	}
	if _, err := c.Health().Check(context.Background(), "cache:boxes"); !errors.Is(err, health.ErrCheckerNotFound) {
		t.Errorf("Check after Unregister error = %v", err)
	}
	// The cache stays usable for its holders.
	if _, ok := cc.Get("big"); !ok {
		t.Error("unregistered cache lost its entries")
	}
}

func TestRegister_LogsWithSubsystem(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(context.Background(), Config{
		Subsystem: "text",
		Observe: observe.Config{
			Logging: observe.LoggingConfig{Enabled: true, Level: "debug", Output: &buf},
		},
	})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	if _, err := Register[string, string](c, "runs", cache.Config[string]{}); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if !strings.Contains(buf.String(), `"cache.id":"text.runs"`) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestDefault_IsSingleton(t *testing.T) {
	a, b := Default(), Default()
	if a != b {
		t.Fatal("Default should return the same Context")
	}
	if a.Atoms().Atom("div") != b.Atoms().Atom("div") {
		t.Error("Default contexts should share one atom table")
	}
}

type countingListener struct {
	misses int
}

func (l *countingListener) Hit(int)                           {}
func (l *countingListener) Miss(int)                          { l.misses++ }
func (l *countingListener) Inserted(int, uint64)              {}
func (l *countingListener) Removed(int, uint64, cache.Reason) {}
