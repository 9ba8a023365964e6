package ports

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// RuntimeKind identifies the hosting execution model the process runs under.
type RuntimeKind string

const (
	RuntimeLambda        RuntimeKind = "lambda"
	RuntimeCloudflare    RuntimeKind = "cloudflare"
	RuntimeDeno          RuntimeKind = "deno"
	RuntimeFargate       RuntimeKind = "fargate"
	RuntimeGenericServer RuntimeKind = "generic-server"
)

// Known reports whether k is one of the supported runtime kinds.
func (k RuntimeKind) Known() bool {
	switch k {
	case RuntimeLambda, RuntimeCloudflare, RuntimeDeno, RuntimeFargate, RuntimeGenericServer:
		return true
	}
	return false
}

func (k RuntimeKind) String() string {
	return string(k)
}

// HeaderField is a single header line as received.
type HeaderField struct {
	Name  string
	Value string
}

// Headers keeps request headers in arrival order.
type Headers []HeaderField

// Get returns the first value for name, matched case-insensitively.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in arrival order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Add appends a header field.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// HTTPHeader converts the fields into an http.Header.
func (h Headers) HTTPHeader() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out.Add(f.Name, f.Value)
	}
	return out
}

// Request is the platform-agnostic request handed to the application handler.
type Request struct {
	ID         string
	Source     RuntimeKind
	Method     string
	Path       string
	RawQuery   string
	Headers    Headers
	Body       []byte // nil when no body bytes arrived
	RemoteAddr string
	ReceivedAt time.Time
}

// Response is the platform-agnostic response produced once per request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Handler is the application entry point shared by every adapter.
// It writes its response to w; a returned error is treated as a handler failure.
type Handler func(ctx context.Context, req *Request, w http.ResponseWriter) error

// Adapter is implemented by every hosting-model adapter.
type Adapter interface {
	// Platform returns the constant runtime tag of the adapter.
	Platform() RuntimeKind

	// Environment describes the hosting environment for diagnostics.
	Environment() map[string]string

	// SupportsPersistentConnections reports whether the adapter owns a listening socket.
	SupportsPersistentConnections() bool
}

// PersistentAdapter is the optional capability of adapters that serve
// connections themselves instead of being invoked per event.
type PersistentAdapter interface {
	Adapter

	// StartServer binds host:port and returns once listening or on the bind error.
	StartServer(ctx context.Context, port int, host string) error

	// Stop closes the listener and waits for in-flight requests to drain.
	// Calling Stop on an adapter that never started is a no-op.
	Stop(ctx context.Context) error

	// Addr returns the bound address, or nil before StartServer succeeds.
	Addr() net.Addr
}
