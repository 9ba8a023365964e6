package observability

import (
	"fmt"
	"net/http"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
)

// Provider hands out loggers and metrics scoped to a component
type Provider struct {
	config  *config.Config
	logger  ports.Logger
	metrics ports.Metrics
	closers []func()
	handler http.Handler
}

// New wraps an existing logger and metrics pair. metrics may be nil.
func New(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if metrics == nil {
		metrics = noopMetrics
	}

	return &Provider{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Components returns logger and metrics without any scoping
func (obs *Provider) Components() (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.logger, obs.metrics, nil
}

// ComponentsScoped returns logger and metrics scoped to a specific component
func (obs *Provider) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.getScopedLogger(component), obs.getScopedMetrics(component), nil
}

// LoggerScoped returns a logger scoped to a specific component
func (obs *Provider) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.getScopedLogger(component), nil
}

// MetricsScoped returns metrics scoped to a specific component
func (obs *Provider) MetricsScoped(component string) (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.getScopedMetrics(component), nil
}

// MetricsHandler returns the scrape handler, or nil when the metrics
// backend has nothing to expose.
func (obs *Provider) MetricsHandler() http.Handler {
	return obs.handler
}

// Close flushes logger backends.
func (obs *Provider) Close() {
	for _, c := range obs.closers {
		c()
	}
}

// getScopedLogger creates a logger with component and service context
func (obs *Provider) getScopedLogger(component string) ports.Logger {
	return obs.logger.WithFields(map[string]interface{}{
		"service":   obs.config.ServiceName,
		"version":   obs.config.Version,
		"env":       obs.config.Environment,
		"component": component,
	})
}

// getScopedMetrics creates metrics with component tags
func (obs *Provider) getScopedMetrics(component string) ports.Metrics {
	return obs.metrics.WithTags(map[string]string{
		"component": component,
	})
}
