package runtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/infrastructure/observability/adapters/stdout"
	"github.com/vesla0x1/multiruntime/utils"
)

const readChunkSize = 32 * 1024

// AdapterConfig is the configuration every adapter is built from. It is
// copied into the adapter and not modified afterwards.
type AdapterConfig struct {
	Handler      ports.Handler
	Logger       ports.Logger
	Metrics      ports.Metrics
	Timeout      time.Duration
	MaxBodyBytes int64

	// Environment gates error detail: failure messages are only exposed in
	// development.
	Environment string

	// Source feeds Environment() diagnostics. Defaults to the OS environment.
	Source config.Source
}

// AdapterConfigFrom builds an AdapterConfig from parsed configuration.
func AdapterConfigFrom(cfg *config.Config, handler ports.Handler, logger ports.Logger, metrics ports.Metrics) AdapterConfig {
	return AdapterConfig{
		Handler:      handler,
		Logger:       logger,
		Metrics:      metrics,
		Timeout:      cfg.Runtime.Timeout,
		MaxBodyBytes: cfg.Runtime.MaxBodyBytes,
		Environment:  adapterEnvironment(cfg),
		Source:       cfg.Source(),
	}
}

// adapterEnvironment withholds a defaulted development environment so that
// error detail is only exposed when ENVIRONMENT=development is set.
func adapterEnvironment(cfg *config.Config) string {
	if cfg.IsDevelopment() && !cfg.ExposeErrorDetail() {
		return ""
	}
	return cfg.Environment
}

// outcome tells which path produced the response of a request.
type outcome int

const (
	outcomeHandled outcome = iota
	outcomeFailed
	outcomeTimedOut
)

func (o outcome) String() string {
	switch o {
	case outcomeHandled:
		return "handled"
	case outcomeFailed:
		return "failed"
	default:
		return "timed_out"
	}
}

// executor holds what every adapter shares: the handler, the limits and the
// race between handler completion and the timeout.
type executor struct {
	platform     ports.RuntimeKind
	handler      ports.Handler
	logger       ports.Logger
	metrics      ports.Metrics
	timeout      time.Duration
	maxBodyBytes int64
	detailed     bool
	source       config.Source
}

func newExecutor(platform ports.RuntimeKind, cfg AdapterConfig) *executor {
	if cfg.Handler == nil {
		panic(fmt.Errorf("failed to create %s adapter: handler is required", platform))
	}

	e := &executor{
		platform:     platform,
		handler:      cfg.Handler,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
		detailed:     cfg.Environment == config.EnvDevelopment,
		source:       cfg.Source,
	}

	if e.logger == nil {
		e.logger = stdout.NewFromZap(zap.NewNop())
	}
	if e.metrics == nil {
		e.metrics = stdout.Noop{}
	}
	if e.timeout <= 0 {
		e.timeout = config.DefaultTimeout
	}
	if e.maxBodyBytes <= 0 {
		e.maxBodyBytes = config.DefaultMaxBodyBytes
	}
	if e.source == nil {
		e.source = utils.OSEnv{}
	}

	return e
}

// environment returns the runtime diagnostics plus the adapter's own view.
func (e *executor) environment(persistent bool) map[string]string {
	info := Info(e.source)
	info["platform"] = e.platform.String()
	info["persistent_connections"] = fmt.Sprintf("%t", persistent)
	info["timeout_ms"] = fmt.Sprintf("%d", e.timeout.Milliseconds())
	info["max_body_bytes"] = fmt.Sprintf("%d", e.maxBodyBytes)
	return info
}

// invoke runs the handler against w and races it with the timeout. Exactly
// one of the handler's response, a 500 or a 504 reaches w. On timeout the
// handler's context is cancelled but the handler itself keeps running; its
// later writes fail with ErrResponseSent.
func (e *executor) invoke(ctx context.Context, req *ports.Request, w *guardedWriter) outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Handler panicked",
					"request_id", req.ID,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()))
				done <- fmt.Errorf("panic recovered: %v", r)
			}
		}()
		done <- e.handler(ctx, req, w)
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err == nil {
			w.finish()
			return outcomeHandled
		}

		e.logger.Error("Handler failed",
			"request_id", req.ID,
			"method", req.Method,
			"path", req.Path,
			"error", err)
		w.respond(http.StatusInternalServerError, internalErrorBody(req.ID, err, e.detailed))
		return outcomeFailed

	case <-timer.C:
		e.logger.Warn("Handler timed out",
			"request_id", req.ID,
			"method", req.Method,
			"path", req.Path,
			"timeout_ms", e.timeout.Milliseconds())
		w.respond(http.StatusGatewayTimeout, timeoutBody(req.ID))
		return outcomeTimedOut
	}
}

// readBody accumulates the request stream chunk by chunk. It fails with
// errBodyTooLarge as soon as the running total passes the limit and
// returns nil when no bytes arrived.
func (e *executor) readBody(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}

	var (
		body  []byte
		total int64
		chunk = make([]byte, readChunkSize)
	)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > e.maxBodyBytes {
				return nil, errBodyTooLarge
			}
			body = append(body, chunk[:n]...)
		}
		if err == io.EOF {
			return body, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// normalizeHTTP converts a parsed *http.Request into a ports.Request.
// Header names are emitted in sorted order since http.Header does not
// retain arrival order.
func (e *executor) normalizeHTTP(r *http.Request, body []byte, remoteAddr string) *ports.Request {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make(ports.Headers, 0, len(names)+1)
	if r.Host != "" {
		headers.Add("Host", r.Host)
	}
	for _, name := range names {
		for _, v := range r.Header[name] {
			headers.Add(name, v)
		}
	}

	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}

	return &ports.Request{
		ID:         id,
		Source:     e.platform,
		Method:     r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Headers:    headers,
		Body:       body,
		RemoteAddr: remoteAddr,
		ReceivedAt: time.Now().UTC(),
	}
}

// record emits per-request metrics.
func (e *executor) record(status int, started time.Time) {
	tags := map[string]string{
		"platform": e.platform.String(),
		"status":   fmt.Sprintf("%d", status),
	}
	e.metrics.IncrementCounter("http.requests", tags)
	e.metrics.RecordHistogram("http.request_duration_ms", float64(time.Since(started).Milliseconds()), tags)
}
