package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/heapcache/cache"
)

// SnapshotSource is anything that reports per-shard cache usage.
// *cache.Cache satisfies it.
type SnapshotSource interface {
	Snapshot() cache.Snapshot
}

// BudgetChecker verifies that every shard of a cache is within budget.
//
// A shard over budget with exactly one entry holds an oversized value,
// which is allowed but reported as degraded. A shard over budget with more
// than one entry means accounting is broken and is reported as unhealthy.
type BudgetChecker struct {
	name string
	src  SnapshotSource
}

// NewBudgetChecker creates a BudgetChecker for src.
func NewBudgetChecker(name string, src SnapshotSource) *BudgetChecker {
	return &BudgetChecker{name: name, src: src}
}

// Name returns the name of this checker.
func (b *BudgetChecker) Name() string { return b.name }

// Check inspects a fresh snapshot.
func (b *BudgetChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	snap := b.src.Snapshot()
	var oversized, broken []int
	for _, s := range snap.Shards {
		if !s.Oversized() {
			continue
		}
		if s.Entries > 1 {
			broken = append(broken, s.Index)
		} else {
			oversized = append(oversized, s.Index)
		}
	}

	details := map[string]any{
		"entries":      snap.Entries,
		"bytes_used":   snap.Used,
		"bytes_budget": snap.Budget,
		"shards":       len(snap.Shards),
	}

	switch {
	case len(broken) > 0:
		details["over_budget_shards"] = broken
		return Unhealthy(
			fmt.Sprintf("%d shard(s) over budget with multiple entries", len(broken)),
			ErrOverBudget,
		).WithDetails(details)
	case len(oversized) > 0:
		details["oversized_shards"] = oversized
		return Degraded(
			fmt.Sprintf("%d shard(s) hold a single value larger than the shard budget", len(oversized)),
		).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d entries within budget", snap.Entries)).WithDetails(details)
	}
}
