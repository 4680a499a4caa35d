// Package bench drives a synthetic mixed workload against a cache.
//
// Keys are drawn from a Zipf distribution so that a small set of hot keys
// dominates, which is how interned names and computed styles behave in a
// real document. Each operation is a lookup that falls back to the
// producer on a miss, or occasionally an explicit removal.
package bench
