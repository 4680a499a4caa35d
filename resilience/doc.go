// Package resilience guards cache producers.
//
// A producer runs on a cache miss and may be slow or flaky: it might decode
// an image, shape a run of text, or fetch a remote resource. The cache calls
// it once per miss and never retries, so callers that need bounded latency
// or retries wrap the producer before handing it to GetOrInsertWith.
//
//   - Timeout bounds each attempt.
//   - Retry re-runs failed attempts with exponential backoff.
//   - Breaker fails fast after repeated failures.
//   - Bulkhead caps concurrent producers.
//   - RateLimiter throttles calls to a shared backend.
//
// Guard composes them, and Wrap adapts a Guard to a cache.Producer:
//
//	guard := resilience.NewGuard(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(resilience.NewTimeout(200*time.Millisecond)),
//	)
//	h, err := images.GetOrInsertWith(ctx, url, resilience.Wrap(guard, fetch(url)))
//
// A failed guarded producer leaves the cache untouched, exactly like an
// unguarded one.
package resilience
