// Heapcache-bench drives a synthetic workload against a heap-size-bounded
// cache and prints its usage snapshot as JSON.
//
// Usage:
//
//	heapcache-bench run                          # default workload
//	heapcache-bench run --shards 8 --budget 65536 --single-flight
//	heapcache-bench run --metrics prometheus --serve :9090
//	heapcache-bench version
package main
