package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// Budget returns the bytes the process intends to spend on caches,
	// usually the sum of every cache's Snapshot().Budget.
	Budget func() uint64

	// WarningRatio is the heap-to-budget ratio that triggers degraded
	// status. Default: 2.
	WarningRatio float64

	// CriticalRatio is the heap-to-budget ratio that triggers unhealthy
	// status. Default: 4.
	CriticalRatio float64
}

// MemoryChecker compares the live Go heap against the cache budget.
// Cache accounting estimates sizes, so a heap far above the budget points
// at sizers that undercount or at memory held outside the caches.
type MemoryChecker struct {
	config MemoryCheckerConfig
	heap   func() uint64
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningRatio <= 1 {
		config.WarningRatio = 2
	}
	if config.CriticalRatio <= config.WarningRatio {
		config.CriticalRatio = 2 * config.WarningRatio
	}
	return &MemoryChecker{config: config, heap: heapAlloc}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string { return "memory" }

// Check performs the memory health check.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	heap := m.heap()
	var budget uint64
	if m.config.Budget != nil {
		budget = m.config.Budget()
	}

	details := map[string]any{
		"heap_alloc":   heap,
		"cache_budget": budget,
		"goroutines":   runtime.NumGoroutine(),
	}
	if budget == 0 {
		return Healthy("no cache budget configured").WithDetails(details)
	}

	ratio := float64(heap) / float64(budget)
	details["heap_to_budget"] = ratio

	switch {
	case ratio >= m.config.CriticalRatio:
		return Unhealthy(fmt.Sprintf("heap is %.1fx the cache budget", ratio), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningRatio:
		return Degraded(fmt.Sprintf("heap is %.1fx the cache budget", ratio)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap is %.1fx the cache budget", ratio)).WithDetails(details)
	}
}
