package workerpool

import (
	"fmt"

	"github.com/vnykmshr/poolmon/pkg/metrics"
)

// Categories used by the instrumented constructors.
const (
	CategoryParallel = "parallel"
	CategorySingle   = "single"
)

// NewInstrumented creates a pool from config and registers it with gate
// under category. An empty description defaults to "<category>(<workers>)".
// When gate is nil or its backend is unavailable the pool is returned
// without instrumentation. Configuration errors are returned unchanged.
func NewInstrumented(config Config, category, description string, gate *metrics.Gate) (Pool, error) {
	describe := func() string {
		if description != "" {
			return description
		}
		return fmt.Sprintf("%s(%d)", category, config.WorkerCount)
	}

	return metrics.DecorateFunc(gate, category, describe, func() (Pool, error) {
		return NewSafe(config)
	})
}

// NewParallel creates a pool of workerCount workers monitored as "parallel".
func NewParallel(gate *metrics.Gate, workerCount, queueSize int) (Pool, error) {
	return NewInstrumented(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	}, CategoryParallel, fmt.Sprintf("Parallel(%d)", workerCount), gate)
}

// NewSingle creates a single-worker pool monitored as "single".
func NewSingle(gate *metrics.Gate, queueSize int) (Pool, error) {
	return NewInstrumented(Config{
		WorkerCount: 1,
		QueueSize:   queueSize,
	}, CategorySingle, "Single()", gate)
}
