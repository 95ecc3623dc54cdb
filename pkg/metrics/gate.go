package metrics

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
	"github.com/vnykmshr/poolmon/pkg/common/validation"
)

// Gate decides once whether a metrics backend is reachable and, when it
// is, registers executors with it under unique executor IDs.
//
// A nil *Gate is valid and always unavailable.
type Gate struct {
	backend Backend
	logger  *zap.Logger

	once      sync.Once
	available bool

	mu        sync.Mutex
	seen      map[string]uint64
	monitored int
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the logger used for registration failures.
func WithLogger(logger *zap.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a gate over backend. The backend is not probed until the
// first call to Available or to one of the decorate functions.
func NewGate(backend Backend, opts ...GateOption) *Gate {
	g := &Gate{
		backend: backend,
		logger:  zap.NewNop(),
		seen:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var (
	defaultGate     *Gate
	defaultGateOnce sync.Once
)

// Default returns a process-wide gate over prometheus.DefaultRegisterer.
// Prefer passing an explicit gate to constructors.
func Default() *Gate {
	defaultGateOnce.Do(func() {
		defaultGate = NewGateFromConfig(DefaultConfig())
	})
	return defaultGate
}

// Available reports whether the backend answered its probe. The probe runs
// at most once per gate; later calls return the cached result.
func (g *Gate) Available() bool {
	if g == nil {
		return false
	}
	g.once.Do(func() {
		g.available = g.probe()
		g.logger.Debug("metrics backend probed", zap.Bool("available", g.available))
	})
	return g.available
}

func (g *Gate) probe() (ok bool) {
	if g.backend == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return g.backend.Probe() == nil
}

// NextExecutorID increments the counter for category and returns
// "<category>-exec<n>", n starting at 1. A nil gate has no counters and
// returns "".
func (g *Gate) NextExecutorID(category string) string {
	if g == nil {
		return ""
	}
	g.mu.Lock()
	g.seen[category]++
	n := g.seen[category]
	g.mu.Unlock()

	return category + "-exec" + strconv.FormatUint(n, 10)
}

// Monitored returns how many executors were registered successfully.
func (g *Gate) Monitored() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.monitored
}

// monitor registers exec with the backend. Failures are logged and never
// returned: metrics must not break executor construction.
func (g *Gate) monitor(exec Executor, category, description string) {
	if err := validation.ValidateNotEmpty("metrics", "category", category); err != nil {
		g.logger.Warn("executor not monitored", zap.Error(err))
		return
	}
	if err := validation.ValidateNotNil("metrics", "executor", exec); err != nil {
		g.logger.Warn("executor not monitored", zap.String("category", category), zap.Error(err))
		return
	}

	tags := Tags{
		Scheduler:  description,
		ExecutorID: g.NextExecutorID(category),
	}

	if err := g.register(exec, category, tags); err != nil {
		g.logger.Warn("executor registration failed",
			zap.String("category", category),
			zap.String("scheduler", tags.Scheduler),
			zap.String("executorId", tags.ExecutorID),
			zap.Bool("retryable", pmerrors.IsRetryable(err)),
			zap.Error(err),
		)
		return
	}

	g.mu.Lock()
	g.monitored++
	g.mu.Unlock()

	g.logger.Debug("executor monitored",
		zap.String("category", category),
		zap.String("scheduler", tags.Scheduler),
		zap.String("executorId", tags.ExecutorID),
	)
}

func (g *Gate) register(exec Executor, category string, tags Tags) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panicked: %v", r)
		}
	}()
	return g.backend.Monitor(exec, category, tags)
}

// Decorate registers exec with the gate's backend when it is available and
// returns exec itself either way.
func Decorate[E Executor](g *Gate, category, description string, exec E) E {
	if g.Available() {
		g.monitor(exec, category, description)
	}
	return exec
}

// DecorateFunc calls factory exactly once and decorates its result. A
// factory error is returned unchanged and nothing is registered. The
// description is only evaluated when the executor is actually monitored.
func DecorateFunc[E Executor](g *Gate, category string, description func() string, factory func() (E, error)) (E, error) {
	exec, err := factory()
	if err != nil {
		return exec, err
	}

	if g.Available() {
		var desc string
		if description != nil {
			desc = description()
		}
		g.monitor(exec, category, desc)
	}
	return exec, nil
}

// Decorator instruments an executor of category described by description
// and returns the same executor.
type Decorator[E Executor] func(category, description string, exec E) E

// NewDecorator returns the identity function when g is unavailable and a
// registering decorator otherwise.
func NewDecorator[E Executor](g *Gate) Decorator[E] {
	if !g.Available() {
		return func(_, _ string, exec E) E {
			return exec
		}
	}
	return func(category, description string, exec E) E {
		g.monitor(exec, category, description)
		return exec
	}
}
