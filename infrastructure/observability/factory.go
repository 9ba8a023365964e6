package observability

import (
	"context"
	"fmt"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/infrastructure/observability/adapters/cloudwatch"
	"github.com/vesla0x1/multiruntime/infrastructure/observability/adapters/prometheus"
	"github.com/vesla0x1/multiruntime/infrastructure/observability/adapters/stdout"
)

var noopMetrics ports.Metrics = stdout.Noop{}

// Create builds the logger and metrics backends selected by cfg.Adapters.
func Create(ctx context.Context, cfg *config.Config) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	var (
		logger  ports.Logger
		closers []func()
	)

	switch cfg.Adapters.Logger {
	case "cloudwatch":
		cw, err := cloudwatch.NewLogger(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudWatch logger: %w", err)
		}
		logger = cw
		closers = append(closers, cw.Flush)
	default:
		l, err := stdout.NewLogger(cfg.LogLevel, !cfg.IsDevelopment())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout logger: %w", err)
		}
		logger = l
		closers = append(closers, func() { _ = l.Sync() })
	}

	provider, err := New(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	provider.closers = closers

	switch cfg.Adapters.Metrics {
	case "prometheus":
		pm := prometheus.New(cfg.ServiceName)
		provider.metrics = pm
		provider.handler = pm.Handler()
	case "stdout":
		provider.metrics = stdout.NewMetrics(logger.WithFields(map[string]interface{}{"component": "metrics"}))
	}

	return provider, nil
}
