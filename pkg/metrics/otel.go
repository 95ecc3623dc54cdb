package metrics

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
)

// OTelBackend reports executors through observable instruments of an
// OpenTelemetry meter.
type OTelBackend struct {
	meter     metric.Meter
	namespace string

	poolSize  metric.Int64ObservableGauge
	active    metric.Int64ObservableGauge
	queued    metric.Int64ObservableGauge
	submitted metric.Int64ObservableCounter
	completed metric.Int64ObservableCounter

	mu            sync.Mutex
	registrations map[string]metric.Registration
}

// OTelOption configures an OpenTelemetry backend.
type OTelOption func(*OTelBackend)

// WithMeterNamespace overrides DefaultNamespace as the instrument name
// prefix. An empty namespace is ignored.
func WithMeterNamespace(ns string) OTelOption {
	return func(b *OTelBackend) {
		if ns != "" {
			b.namespace = ns
		}
	}
}

// NewOTelBackend creates the executor instruments on meter, named
// "<namespace>_executor_*". A nil meter yields a backend whose Probe fails.
func NewOTelBackend(meter metric.Meter, opts ...OTelOption) (*OTelBackend, error) {
	b := &OTelBackend{
		meter:         meter,
		namespace:     DefaultNamespace,
		registrations: make(map[string]metric.Registration),
	}
	for _, opt := range opts {
		opt(b)
	}
	if meter == nil {
		return b, nil
	}
	name := func(suffix string) string {
		return b.namespace + "_executor_" + suffix
	}

	var err error
	if b.poolSize, err = meter.Int64ObservableGauge(name("pool_size"),
		metric.WithDescription("Current number of workers in the pool.")); err != nil {
		return nil, err
	}
	if b.active, err = meter.Int64ObservableGauge(name("active_threads"),
		metric.WithDescription("Number of workers currently executing tasks.")); err != nil {
		return nil, err
	}
	if b.queued, err = meter.Int64ObservableGauge(name("queued_tasks"),
		metric.WithDescription("Number of tasks waiting for a worker.")); err != nil {
		return nil, err
	}
	if b.submitted, err = meter.Int64ObservableCounter(name("submitted_tasks_total"),
		metric.WithDescription("Total number of tasks submitted to the pool.")); err != nil {
		return nil, err
	}
	if b.completed, err = meter.Int64ObservableCounter(name("completed_tasks_total"),
		metric.WithDescription("Total number of tasks completed by the pool.")); err != nil {
		return nil, err
	}

	return b, nil
}

// Probe fails when the backend has no meter.
func (b *OTelBackend) Probe() error {
	if b.meter == nil {
		return pmerrors.ErrBackendUnavailable
	}
	return nil
}

// Monitor registers a callback observing exec on every collection.
func (b *OTelBackend) Monitor(exec Executor, category string, tags Tags) error {
	if b.meter == nil {
		return pmerrors.ErrBackendUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registrations[tags.ExecutorID]; ok {
		return pmerrors.NewOperationError("metrics", "Monitor", pmerrors.ErrAlreadyMonitored).
			WithContext(tags.ExecutorID)
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelName, category),
		attribute.String(LabelScheduler, tags.Scheduler),
		attribute.String(LabelExecutorID, tags.ExecutorID),
	)

	reg, err := b.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(b.poolSize, int64(exec.Size()), attrs)
		o.ObserveInt64(b.active, int64(exec.ActiveWorkers()), attrs)
		o.ObserveInt64(b.queued, int64(exec.QueueSize()), attrs)
		o.ObserveInt64(b.submitted, exec.TotalSubmitted(), attrs)
		o.ObserveInt64(b.completed, exec.TotalCompleted(), attrs)
		return nil
	}, b.poolSize, b.active, b.queued, b.submitted, b.completed)
	if err != nil {
		return pmerrors.NewOperationError("metrics", "Monitor", err).
			WithContext(tags.ExecutorID)
	}

	b.registrations[tags.ExecutorID] = reg
	return nil
}

// Close unregisters every callback created by Monitor.
func (b *OTelBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for id, reg := range b.registrations {
		if err := reg.Unregister(); err != nil {
			errs = append(errs, err)
		}
		delete(b.registrations, id)
	}
	return errors.Join(errs...)
}
