// Package observe provides telemetry for caches: OpenTelemetry setup,
// a structured JSON logger, a cache.Listener that turns cache activity
// into metrics, usage gauges fed by cache snapshots, and middleware that
// traces and times producers.
//
// It does no caching itself. Consumers create one Observer at startup and
// attach a Recorder to every cache they want measured.
package observe
