package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultNamespace prefixes every executor metric exported by the Prometheus backend.
const DefaultNamespace = "poolmon"

// Config holds configuration for executor instrumentation.
type Config struct {
	// Enabled is the capability flag. When false every gate built from this
	// config is unavailable and decoration is the identity.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "poolmon" namespace for metrics.
	Namespace string

	// Labels are additional labels to add to all metrics.
	Labels prometheus.Labels

	// Logger receives registration failures. If nil, logging is discarded.
	Logger *zap.Logger
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
		Labels:    nil,
		Logger:    zap.NewNop(),
	}
}

// NewGateFromConfig assembles a gate over a Prometheus backend, or over
// NopBackend when the config is disabled.
func NewGateFromConfig(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		return NewGate(NopBackend{}, WithLogger(logger))
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	backend := NewPrometheusBackend(reg,
		WithNamespace(cfg.Namespace),
		WithConstLabels(cfg.Labels),
	)
	return NewGate(backend, WithLogger(logger))
}
