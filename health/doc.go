// Package health provides health checks for processes that hold caches.
//
// A Checker reports Healthy, Degraded or Unhealthy. An Aggregator runs a set
// of checkers with a shared timeout and reduces them to the most severe
// status.
//
// Two cache-specific checkers are provided. BudgetChecker walks a cache
// snapshot and flags shards that exceed their budget. MemoryChecker compares
// the Go heap with the bytes the caches are allowed to hold.
//
//	agg := health.NewAggregator()
//	agg.Register("glyphs", health.NewBudgetChecker("glyphs", glyphCache))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    Budget: func() uint64 { return glyphCache.Snapshot().Budget },
//	}))
//
//	report := agg.Report(ctx)
//
// RegisterHandlers exposes the same report over HTTP at /health, plus a
// plain liveness probe at /healthz.
package health
