package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vesla0x1/multiruntime/application/ports"
)

// FetchAdapter serves edge-isolate platforms whose native contract is a
// fetch handler: one request object in, one response object out. It keeps
// no state between invocations.
type FetchAdapter struct {
	exec *executor
}

var _ ports.Adapter = (*FetchAdapter)(nil)

// NewCloudflareAdapter creates the adapter for Cloudflare Workers.
func NewCloudflareAdapter(cfg AdapterConfig) *FetchAdapter {
	return &FetchAdapter{exec: newExecutor(ports.RuntimeCloudflare, cfg)}
}

// NewDenoDeployAdapter creates the adapter for Deno Deploy.
func NewDenoDeployAdapter(cfg AdapterConfig) *FetchAdapter {
	return &FetchAdapter{exec: newExecutor(ports.RuntimeDeno, cfg)}
}

func (a *FetchAdapter) Platform() ports.RuntimeKind {
	return a.exec.platform
}

func (a *FetchAdapter) Environment() map[string]string {
	return a.exec.environment(false)
}

func (a *FetchAdapter) SupportsPersistentConnections() bool {
	return false
}

// Handle processes one fetch event. It always returns a usable response;
// failures are translated into 4xx/5xx responses.
func (a *FetchAdapter) Handle(ctx context.Context, r *http.Request) *http.Response {
	started := time.Now()
	a.exec.metrics.IncrementCounter("invocations", map[string]string{"platform": a.exec.platform.String()})

	resp := a.handle(ctx, r)
	a.exec.record(resp.StatusCode, started)

	return toHTTPResponse(resp, r)
}

func (a *FetchAdapter) handle(ctx context.Context, r *http.Request) *ports.Response {
	if r.ContentLength > a.exec.maxBodyBytes {
		return tooLargeResponse()
	}

	var src io.Reader
	if r.Body != nil {
		src = r.Body
		defer r.Body.Close()
	}

	body, err := a.exec.readBody(src)
	if errors.Is(err, errBodyTooLarge) {
		return tooLargeResponse()
	}
	if err != nil {
		a.exec.logger.Error("Failed to read request body", "error", err)
		return a.exec.failureResponse("", fmt.Errorf("failed to read request body: %w", err))
	}

	req := a.exec.normalizeHTTP(r, body, a.remoteAddr(r))

	resp, _ := a.exec.invokeBuffered(ctx, req)
	return resp
}

// ServeHTTP lets a host shim mount the adapter on any http.Handler chain.
func (a *FetchAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := a.Handle(r.Context(), r)
	defer resp.Body.Close()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// remoteAddr prefers the client address reported by the edge network.
func (a *FetchAdapter) remoteAddr(r *http.Request) string {
	switch a.exec.platform {
	case ports.RuntimeCloudflare:
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
			return ip
		}
	case ports.RuntimeDeno:
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	return r.RemoteAddr
}

func toHTTPResponse(resp *ports.Response, r *http.Request) *http.Response {
	header := resp.Headers
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       r,
	}
}
