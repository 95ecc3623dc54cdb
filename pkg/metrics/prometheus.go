package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
)

// PrometheusOption configures a Prometheus backend.
type PrometheusOption func(*PrometheusBackend)

// WithNamespace overrides DefaultNamespace. An empty namespace is ignored.
func WithNamespace(ns string) PrometheusOption {
	return func(b *PrometheusBackend) {
		if ns != "" {
			b.namespace = ns
		}
	}
}

// WithConstLabels adds labels to every executor metric. Labels that collide
// with name, scheduler or executorId are overridden by the executor's own.
func WithConstLabels(labels prometheus.Labels) PrometheusOption {
	return func(b *PrometheusBackend) {
		for k, v := range labels {
			b.labels[k] = v
		}
	}
}

// PrometheusBackend registers one collector per executor with a Prometheus registerer.
type PrometheusBackend struct {
	reg       prometheus.Registerer
	namespace string
	labels    prometheus.Labels
	monitored *prometheus.CounterVec

	registerOnce sync.Once
}

// NewPrometheusBackend creates a backend over reg. Nothing is registered
// until the first executor is monitored.
func NewPrometheusBackend(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusBackend {
	b := &PrometheusBackend{
		reg:       reg,
		namespace: DefaultNamespace,
		labels:    prometheus.Labels{},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.monitored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: b.namespace,
			Subsystem: "executor",
			Name:      "monitored_total",
			Help:      "Total number of executors registered for monitoring",
		},
		[]string{LabelName},
	)

	return b
}

// Probe fails when there is no registerer, or when the registerer is also a
// gatherer and gathering fails.
func (b *PrometheusBackend) Probe() error {
	if b.reg == nil {
		return pmerrors.ErrBackendUnavailable
	}
	if g, ok := b.reg.(prometheus.Gatherer); ok {
		if _, err := g.Gather(); err != nil {
			return pmerrors.NewOperationError("metrics", "Probe", err).
				WithContext("gathering from registry")
		}
	}
	return nil
}

// Monitor registers a collector sampling exec at scrape time.
func (b *PrometheusBackend) Monitor(exec Executor, category string, tags Tags) error {
	if b.reg == nil {
		return pmerrors.ErrBackendUnavailable
	}

	c := newExecutorCollector(exec, b.namespace, b.constLabels(category, tags))
	if err := b.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			err = pmerrors.ErrAlreadyMonitored
		}
		return pmerrors.NewOperationError("metrics", "Monitor", err).
			WithContext(tags.ExecutorID)
	}

	b.registerMonitored()
	b.monitored.WithLabelValues(category).Inc()
	return nil
}

// registerMonitored adds the monitored_total counter to the registry on the
// first successful Monitor, reusing a counter another backend registered.
func (b *PrometheusBackend) registerMonitored() {
	b.registerOnce.Do(func() {
		if err := b.reg.Register(b.monitored); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					b.monitored = existing
				}
			}
		}
	})
}

func (b *PrometheusBackend) constLabels(category string, tags Tags) prometheus.Labels {
	labels := make(prometheus.Labels, len(b.labels)+3)
	for k, v := range b.labels {
		labels[k] = v
	}
	labels[LabelName] = category
	labels[LabelScheduler] = tags.Scheduler
	labels[LabelExecutorID] = tags.ExecutorID
	return labels
}

// executorCollector reads executor state on every scrape.
type executorCollector struct {
	exec Executor

	poolSize  *prometheus.Desc
	active    *prometheus.Desc
	queued    *prometheus.Desc
	submitted *prometheus.Desc
	completed *prometheus.Desc
}

func newExecutorCollector(exec Executor, namespace string, labels prometheus.Labels) *executorCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "executor", name),
			help, nil, labels,
		)
	}

	return &executorCollector{
		exec:      exec,
		poolSize:  desc("pool_size", "Current number of workers in the pool"),
		active:    desc("active_threads", "Number of workers currently executing tasks"),
		queued:    desc("queued_tasks", "Number of tasks waiting for a worker"),
		submitted: desc("submitted_tasks_total", "Total number of tasks submitted to the pool"),
		completed: desc("completed_tasks_total", "Total number of tasks completed by the pool"),
	}
}

func (c *executorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.poolSize
	ch <- c.active
	ch <- c.queued
	ch <- c.submitted
	ch <- c.completed
}

func (c *executorCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.poolSize, prometheus.GaugeValue, float64(c.exec.Size()))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(c.exec.ActiveWorkers()))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(c.exec.QueueSize()))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(c.exec.TotalSubmitted()))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(c.exec.TotalCompleted()))
}
