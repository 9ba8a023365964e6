package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vesla0x1/multiruntime/application/ports"
)

// ServerAdapter owns a listening socket and serves every connection through
// the request lifecycle: receive the body within the size limit, invoke the
// handler against the timeout, send exactly one response.
type ServerAdapter struct {
	exec *executor

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	serveDone chan struct{}

	inFlight    atomic.Int64
	connections atomic.Int64
}

var _ ports.PersistentAdapter = (*ServerAdapter)(nil)

// NewServerAdapter creates a persistent adapter tagged with platform.
func NewServerAdapter(platform ports.RuntimeKind, cfg AdapterConfig) *ServerAdapter {
	return &ServerAdapter{exec: newExecutor(platform, cfg)}
}

func (a *ServerAdapter) Platform() ports.RuntimeKind {
	return a.exec.platform
}

func (a *ServerAdapter) Environment() map[string]string {
	info := a.exec.environment(true)
	if addr := a.Addr(); addr != nil {
		info["address"] = addr.String()
	}
	return info
}

func (a *ServerAdapter) SupportsPersistentConnections() bool {
	return true
}

// Addr returns the bound address, or nil when not listening.
func (a *ServerAdapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// StartServer binds host:port and starts serving in the background. It
// returns once the socket is listening, or the bind error.
func (a *ServerAdapter) StartServer(ctx context.Context, port int, host string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrServerAlreadyStarted
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(&connErrorWriter{logger: a.exec.logger}, "", 0),
		ConnState:         a.trackConnState,
	}

	done := make(chan struct{})
	a.server = srv
	a.listener = ln
	a.serveDone = done

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.exec.logger.Error("Server stopped unexpectedly", "error", err)
		}
	}()

	a.exec.logger.Info("Server listening",
		"address", ln.Addr().String(),
		"platform", a.exec.platform.String())
	a.exec.metrics.IncrementCounter("http.starts", nil)

	return nil
}

// Stop stops accepting connections and waits for in-flight requests to
// finish or ctx to expire. It is a no-op when the server never started.
func (a *ServerAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv, done := a.server, a.serveDone
	a.server, a.listener, a.serveDone = nil, nil, nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}

	a.exec.logger.Info("Shutting down server")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	a.exec.logger.Info("Server stopped")
	return nil
}

// ServeHTTP runs one request through the lifecycle.
func (a *ServerAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	a.exec.metrics.RecordGauge("http.in_flight", float64(a.inFlight.Add(1)), nil)
	defer func() {
		a.exec.metrics.RecordGauge("http.in_flight", float64(a.inFlight.Add(-1)), nil)
	}()

	if r.ContentLength > a.exec.maxBodyBytes {
		a.rejectTooLarge(w, r)
		return
	}

	body, err := a.exec.readBody(r.Body)
	if errors.Is(err, errBodyTooLarge) {
		a.rejectTooLarge(w, r)
		return
	}
	if err != nil {
		a.rejectBadRequest(w, r, err)
		return
	}

	req := a.exec.normalizeHTTP(r, body, r.RemoteAddr)
	sink := newGuardedWriter(w)

	result := a.exec.invoke(r.Context(), req, sink)
	status := sink.Status()
	a.exec.record(status, started)

	if result == outcomeHandled {
		a.exec.logger.Debug("Request handled",
			"request_id", req.ID,
			"method", req.Method,
			"path", req.Path,
			"remote_addr", req.RemoteAddr,
			"status", status,
			"duration_ms", time.Since(started).Milliseconds())
	}
}

// rejectTooLarge answers 413 and drops the connection without reading the
// rest of the body.
func (a *ServerAdapter) rejectTooLarge(w http.ResponseWriter, r *http.Request) {
	a.exec.logger.Warn("Request body too large",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"max_body_bytes", a.exec.maxBodyBytes)
	a.exec.metrics.IncrementCounter("http.rejections", map[string]string{"reason": "too_large"})

	w.Header().Set("Connection", "close")
	writeJSON(w, http.StatusRequestEntityTooLarge, tooLargeBody())

	rc := http.NewResponseController(w)
	_ = rc.Flush()
	if conn, _, err := rc.Hijack(); err == nil {
		_ = conn.Close()
	}
}

// rejectBadRequest answers 400 when the body stream failed before it was
// complete. Nothing has been written at this point.
func (a *ServerAdapter) rejectBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	a.exec.logger.Warn("Request stream failed",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error", err)
	a.exec.metrics.IncrementCounter("http.rejections", map[string]string{"reason": "bad_request"})

	newGuardedWriter(w).respond(http.StatusBadRequest, badRequestBody())
}

func (a *ServerAdapter) trackConnState(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		a.exec.metrics.RecordGauge("http.connections", float64(a.connections.Add(1)), nil)
	case http.StateHijacked, http.StateClosed:
		a.exec.metrics.RecordGauge("http.connections", float64(a.connections.Add(-1)), nil)
	}
}

// connErrorWriter routes http.Server error logs to the adapter logger.
// Peer resets are routine and logged at debug level.
type connErrorWriter struct {
	logger ports.Logger
}

func (c *connErrorWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if strings.Contains(msg, "connection reset by peer") {
		c.logger.Debug("Connection reset by peer", "message", msg)
	} else {
		c.logger.Warn("Connection error", "message", msg)
	}
	return len(p), nil
}
