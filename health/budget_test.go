package health

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/heapcache/cache"
)

type snapshotFunc func() cache.Snapshot

func (f snapshotFunc) Snapshot() cache.Snapshot { return f() }

func TestBudgetChecker_RealCache(t *testing.T) {
	c := cache.New[string, int](cache.Config[int]{
		Shards:      1,
		ShardBudget: 100,
		Sizer:       func(v int) uint64 { return uint64(v) },
	})
	checker := NewBudgetChecker("boxes", c)
	ctx := context.Background()

	c.Insert("a", 40)
	c.Insert("b", 40)
	if r := checker.Check(ctx); r.Status != StatusHealthy {
		t.Fatalf("within budget: Status = %v (%s)", r.Status, r.Message)
	}

	c.Insert("huge", 500)
	r := checker.Check(ctx)
	if r.Status != StatusDegraded {
		t.Fatalf("oversized singleton: Status = %v (%s)", r.Status, r.Message)
	}
	if got := r.Details["oversized_shards"]; len(got.([]int)) != 1 {
		t.Errorf("oversized_shards = %v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestBudgetChecker_BrokenAccounting(t *testing.T) {
	src := snapshotFunc(func() cache.Snapshot {
		return cache.Snapshot{
			Shards: []cache.ShardStats{
				{Index: 0, Entries: 1, Used: 50, Budget: 100},
				{Index: 1, Entries: 3, Used: 150, Budget: 100},
			},
			Entries: 4,
			Used:    200,
			Budget:  200,
		}
	})

	r := NewBudgetChecker("broken", src).Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, ErrOverBudget) {
		t.Errorf("Error = %v, want ErrOverBudget", r.Error)
	}
	shards, _ := r.Details["over_budget_shards"].([]int)
	if len(shards) != 1 || shards[0] != 1 {
		t.Errorf("over_budget_shards = %v, want [1]", shards)
	}
}

func TestBudgetChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := cache.New[int, int](cache.Config[int]{})
	if r := NewBudgetChecker("c", c).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
}
