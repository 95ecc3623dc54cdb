/*
Package poolmon instruments worker pools and schedulers with executor
metrics, registering each pool with a metrics backend under a unique
executor identifier when the backend is available.

Metrics (pkg/metrics):
  - Gate: probes the backend once and decorates executors
  - PrometheusBackend: per-executor collectors on a prometheus.Registerer
  - OTelBackend: observable instruments on an OpenTelemetry meter

Executors (pkg/scheduling):
  - workerpool: fixed-size pools, constructible through a Gate
  - scheduler: cron and interval scheduling onto an instrumented pool

Example usage:

	import (
		"github.com/vnykmshr/poolmon/pkg/metrics"
		"github.com/vnykmshr/poolmon/pkg/scheduling/workerpool"
	)

	gate := metrics.NewGateFromConfig(metrics.DefaultConfig())
	pool, _ := workerpool.NewParallel(gate, 4, 100) // parallel-exec1

	http.Handle("/metrics", promhttp.Handler())
*/
package poolmon
