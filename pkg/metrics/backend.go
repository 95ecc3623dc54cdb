package metrics

import (
	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
)

// Label keys attached to every monitored executor.
const (
	LabelName       = "name"
	LabelScheduler  = "scheduler"
	LabelExecutorID = "executorId"
)

// Executor is the state a backend samples from a pooled executor.
// workerpool.Pool satisfies it.
type Executor interface {
	// Size returns the number of workers in the pool.
	Size() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// QueueSize returns the number of tasks waiting for a worker.
	QueueSize() int

	// TotalSubmitted returns the number of tasks accepted so far.
	TotalSubmitted() int64

	// TotalCompleted returns the number of tasks that finished, successfully or not.
	TotalCompleted() int64
}

// Tags identify one monitored executor.
type Tags struct {
	// Scheduler is the human-readable description of the executor.
	Scheduler string

	// ExecutorID is unique per gate, of the form "<category>-exec<n>".
	ExecutorID string
}

// Backend is a metrics registry executors can be registered with.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Probe reports whether the backend can accept registrations.
	Probe() error

	// Monitor registers exec so that its state is reported under category
	// with the given tags. The executor is sampled in place; it is never
	// wrapped or replaced.
	Monitor(exec Executor, category string, tags Tags) error
}

// NopBackend is a Backend that is never available.
type NopBackend struct{}

// Probe always returns ErrBackendUnavailable.
func (NopBackend) Probe() error {
	return pmerrors.ErrBackendUnavailable
}

// Monitor always returns ErrBackendUnavailable.
func (NopBackend) Monitor(Executor, string, Tags) error {
	return pmerrors.ErrBackendUnavailable
}
