package cache

import (
	"context"
	"errors"
	"testing"
)

func TestMemo_CachesByInput(t *testing.T) {
	c := New[string, string](Config[string]{Shards: 2})
	m, err := NewMemo(c, nil, "computed-style")
	if err != nil {
		t.Fatalf("NewMemo error = %v", err)
	}

	calls := 0
	fn := func(_ context.Context, input any) (string, error) {
		calls++
		return "resolved", nil
	}

	ctx := context.Background()
	in1 := map[string]any{"selector": "div", "classes": []any{"a", "b"}}
	in2 := map[string]any{"classes": []any{"a", "b"}, "selector": "div"}

	h1, err := m.Do(ctx, in1, fn)
	if err != nil {
		t.Fatalf("Do error = %v", err)
	}
	h2, err := m.Do(ctx, in2, fn)
	if err != nil {
		t.Fatalf("Do error = %v", err)
	}
	if h1 != h2 {
		t.Error("equivalent inputs should share a cached handle")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	if !m.Forget(in1) {
		t.Error("Forget should report a removed entry")
	}
	if _, err := m.Do(ctx, in1, fn); err != nil {
		t.Fatalf("Do error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d after Forget, want 2", calls)
	}
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	c := New[string, int](Config[int]{Shards: 1})
	m, _ := NewMemo(c, nil, "layout")
	boom := errors.New("boom")

	if _, err := m.Do(context.Background(), 1, func(context.Context, any) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Do error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemo_UnkeyableInputRunsUncached(t *testing.T) {
	c := New[string, int](Config[int]{Shards: 1})
	m, _ := NewMemo(c, nil, "layout")

	h, err := m.Do(context.Background(), map[string]any{"fn": func() {}}, func(context.Context, any) (int, error) {
		return 9, nil
	})
	if err != nil {
		t.Fatalf("Do error = %v", err)
	}
	if h.Value() != 9 {
		t.Errorf("Value() = %d, want 9", h.Value())
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestNewMemo_Validation(t *testing.T) {
	if _, err := NewMemo[int](nil, nil, "ns"); !errors.Is(err, ErrNilCache) {
		t.Errorf("nil cache error = %v, want ErrNilCache", err)
	}
	c := New[string, int](Config[int]{Shards: 1})
	if _, err := NewMemo(c, nil, " "); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("blank namespace error = %v, want ErrInvalidKey", err)
	}
}
