// Package metrics instruments pooled executors when a metrics backend is
// available and does nothing otherwise.
//
// # Overview
//
// A Gate wraps one Backend. The first time it is asked, the gate probes the
// backend and caches the answer for its whole lifetime. When the backend is
// unavailable every decoration is the identity: the executor is returned
// untouched and nothing is registered. When it is available, each decorated
// executor receives a unique executor ID of the form "<category>-exec<n>",
// counted per category, and is registered with the backend. The executor is
// sampled in place; it is never wrapped.
//
// # Quick Start
//
//	registry := prometheus.NewRegistry()
//	gate := metrics.NewGate(metrics.NewPrometheusBackend(registry))
//
//	pool := metrics.Decorate(gate, "parallel", "Parallel(4)", workerpool.New(4, 100))
//
// or let the pool constructors do it:
//
//	pool := workerpool.NewParallel(gate, 4, 100)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// # Backends
//
//   - PrometheusBackend: one collector per executor on a prometheus.Registerer
//   - OTelBackend: observable instruments on an OpenTelemetry metric.Meter
//   - NopBackend: never available
//
// # Available Metrics
//
//   - poolmon_executor_pool_size: Current number of workers in the pool
//   - poolmon_executor_active_threads: Number of workers currently executing tasks
//   - poolmon_executor_queued_tasks: Number of tasks waiting for a worker
//   - poolmon_executor_submitted_tasks_total: Total number of tasks submitted
//   - poolmon_executor_completed_tasks_total: Total number of tasks completed
//   - poolmon_executor_monitored_total: Executors registered, by category (Prometheus only)
//
// # Labels
//
//   - name: the executor category, e.g. "parallel" or "single"
//   - scheduler: the description given at decoration time, e.g. "Parallel(4)"
//   - executorId: unique per gate, e.g. "parallel-exec2"
//
// # Failure Handling
//
// Probe errors and panics make the gate unavailable. Registration errors
// are logged through the gate's zap logger and swallowed, so a broken
// backend never prevents an executor from being built. Factory errors passed
// to DecorateFunc are returned unchanged.
package metrics
