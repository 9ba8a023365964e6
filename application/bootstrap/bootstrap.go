// Package bootstrap composes runtime detection, adapter creation and the
// process lifecycle into a single entry point.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/infrastructure/observability"
	"github.com/vesla0x1/multiruntime/infrastructure/runtime"
)

const component = "runtime-adapter"

// Option customizes Initialize.
type Option func(*options)

type options struct {
	logger  ports.Logger
	metrics ports.Metrics
	obs     *observability.Provider
	exit    func(int)
}

// WithLogger injects the logger used by the adapter and the lifecycle.
func WithLogger(logger ports.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics injects the metrics backend used by the adapter.
func WithMetrics(metrics ports.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithObservability supplies an already built provider instead of creating
// one from configuration. The caller keeps ownership of it.
func WithObservability(obs *observability.Provider) Option {
	return func(o *options) { o.obs = obs }
}

// WithExit replaces os.Exit as the final step of Shutdown.
func WithExit(exit func(int)) Option {
	return func(o *options) { o.exit = exit }
}

// Runtime is an initialized adapter together with its lifecycle.
type Runtime struct {
	cfg     *config.Config
	kind    ports.RuntimeKind
	adapter ports.Adapter
	logger  ports.Logger

	obs    *observability.Provider
	ownObs bool

	metricsServer   *http.Server
	metricsListener net.Listener

	exit         func(int)
	done         chan struct{}
	shutdownOnce sync.Once
	signalsOnce  sync.Once
}

// Initialize detects the runtime, builds its adapter and, for persistent
// adapters, starts listening. It returns once the adapter is ready.
func Initialize(ctx context.Context, cfg *config.Config, handler ports.Handler, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	o := options{exit: os.Exit}
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{
		cfg:  cfg,
		kind: runtime.Detect(cfg.Source()),
		obs:  o.obs,
		exit: o.exit,
		done: make(chan struct{}),
	}

	if rt.obs == nil && (o.logger == nil || o.metrics == nil) {
		obs, err := observability.Create(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
		rt.obs = obs
		rt.ownObs = true
	}

	logger, metrics, err := rt.components(o)
	if err != nil {
		rt.closeObservability()
		return nil, err
	}
	rt.logger = logger

	rt.adapter = runtime.Create(rt.kind, runtime.AdapterConfigFrom(cfg, handler, logger, metrics))

	logger.Info("Initializing runtime adapter",
		"runtime", rt.kind.String(),
		"platform", rt.adapter.Platform().String(),
		"persistent", rt.adapter.SupportsPersistentConnections(),
		"environment", rt.adapter.Environment())
	metrics.IncrementCounter("runtime.starts", map[string]string{"platform": rt.adapter.Platform().String()})

	if err := rt.start(ctx); err != nil {
		logger.Error("Failed to start runtime adapter", "error", err)
		rt.closeObservability()
		return nil, err
	}

	return rt, nil
}

// components picks the injected logger and metrics, falling back to the
// provider scoped to the adapter component.
func (rt *Runtime) components(o options) (ports.Logger, ports.Metrics, error) {
	logger, metrics := o.logger, o.metrics

	if logger == nil {
		scoped, err := rt.obs.LoggerScoped(component)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = scoped
	}
	if metrics == nil {
		scoped, err := rt.obs.MetricsScoped(component)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		metrics = scoped
	}

	return logger, metrics, nil
}

func (rt *Runtime) start(ctx context.Context) error {
	server, ok := rt.adapter.(ports.PersistentAdapter)
	if !ok || !rt.adapter.SupportsPersistentConnections() {
		rt.logger.Info("Runtime adapter ready for events", "platform", rt.adapter.Platform().String())
		return nil
	}

	host := rt.cfg.Server.Host
	if rt.adapter.Platform() == ports.RuntimeDeno {
		host = "0.0.0.0"
	}

	if err := server.StartServer(ctx, rt.cfg.Server.Port, host); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := rt.startMetricsListener(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout())
		defer cancel()
		_ = server.Stop(stopCtx)
		return err
	}

	return nil
}

// startMetricsListener exposes the metrics backend on METRICS_ADDR when
// both are configured.
func (rt *Runtime) startMetricsListener(ctx context.Context) error {
	addr := rt.cfg.Observability.MetricsAddr
	if addr == "" || rt.obs == nil || rt.obs.MetricsHandler() == nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.obs.MetricsHandler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rt.metricsServer = srv
	rt.metricsListener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("Metrics listener stopped unexpectedly", "error", err)
		}
	}()

	rt.logger.Info("Metrics listener started", "address", ln.Addr().String())
	return nil
}

// Adapter returns the active adapter.
func (rt *Runtime) Adapter() ports.Adapter {
	return rt.adapter
}

// Kind returns the detected runtime kind, before fallback resolution.
func (rt *Runtime) Kind() ports.RuntimeKind {
	return rt.kind
}

// MetricsAddr returns the metrics listener address, or nil.
func (rt *Runtime) MetricsAddr() net.Addr {
	if rt.metricsListener == nil {
		return nil
	}
	return rt.metricsListener.Addr()
}

// Wait blocks for the lifetime of the runtime. A Lambda adapter hands the
// process to the Lambda runtime loop; other adapters wait for Shutdown.
func (rt *Runtime) Wait() {
	if fn, ok := rt.adapter.(*runtime.LambdaAdapter); ok {
		fn.Start()
		return
	}
	<-rt.done
}

// Done is closed once Shutdown has drained the runtime.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.done
}

// SetupGracefulShutdown routes SIGINT and SIGTERM to Shutdown.
func (rt *Runtime) SetupGracefulShutdown() {
	rt.signalsOnce.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			defer signal.Stop(sigs)

			select {
			case sig := <-sigs:
				rt.Shutdown(sig)
			case <-rt.done:
			}
		}()
	})
}

// Shutdown stops the adapter and the metrics listener within
// SHUTDOWN_TIMEOUT, closes Done and exits the process with status 0. Only
// the first call has any effect.
func (rt *Runtime) Shutdown(sig os.Signal) {
	rt.shutdownOnce.Do(func() {
		name := "none"
		if sig != nil {
			name = sig.String()
		}
		rt.logger.Info("Received shutdown signal, shutting down gracefully", "signal", name)

		if err := rt.drain(); err != nil {
			rt.logger.Error("Graceful shutdown incomplete", "error", err)
		} else {
			rt.logger.Info("Shutdown complete")
		}

		rt.closeObservability()
		close(rt.done)
		rt.exit(0)
	})
}

func (rt *Runtime) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if server, ok := rt.adapter.(ports.PersistentAdapter); ok {
		g.Go(func() error {
			return server.Stop(gctx)
		})
	}

	if rt.metricsServer != nil {
		g.Go(func() error {
			if err := rt.metricsServer.Shutdown(gctx); err != nil {
				return fmt.Errorf("failed to stop metrics listener: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (rt *Runtime) shutdownTimeout() time.Duration {
	if rt.cfg.Server.ShutdownTimeout > 0 {
		return rt.cfg.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}

func (rt *Runtime) closeObservability() {
	if rt.ownObs && rt.obs != nil {
		rt.obs.Close()
	}
}
