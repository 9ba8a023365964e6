package runtime

import (
	"net/http"
	"sync"
)

// guardedWriter is the response sink handed to the application handler. It
// enforces that exactly one response reaches the underlying writer: once
// the request has been finished by the handler, a failure or a timeout,
// every further write is dropped.
type guardedWriter struct {
	mu        sync.Mutex
	w         http.ResponseWriter
	header    http.Header
	committed bool
	closed    bool
	status    int
	written   int64
}

func newGuardedWriter(w http.ResponseWriter) *guardedWriter {
	return &guardedWriter{
		w:      w,
		header: make(http.Header),
	}
}

// Header returns the handler's private header map; it is copied to the
// underlying writer when the response is committed.
func (g *guardedWriter) Header() http.Header {
	return g.header
}

func (g *guardedWriter) WriteHeader(status int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.committed {
		return
	}
	g.commitLocked(status)
}

func (g *guardedWriter) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, ErrResponseSent
	}
	if !g.committed {
		g.commitLocked(http.StatusOK)
	}

	n, err := g.w.Write(p)
	g.written += int64(n)
	return n, err
}

// Flush implements http.Flusher so handlers can stream.
func (g *guardedWriter) Flush() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	if !g.committed {
		g.commitLocked(http.StatusOK)
	}
	if f, ok := g.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *guardedWriter) commitLocked(status int) {
	dst := g.w.Header()
	for k, v := range g.header {
		dst[k] = append([]string(nil), v...)
	}
	g.w.WriteHeader(status)
	g.committed = true
	g.status = status
}

// respond writes a layer-generated JSON response and closes the sink. It
// reports false, writing nothing, when a response was already started.
func (g *guardedWriter) respond(status int, body interface{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.committed {
		g.closed = true
		return false
	}

	writeJSON(g.w, status, body)
	g.committed = true
	g.closed = true
	g.status = status
	return true
}

// finish closes the sink after the handler returned successfully. A handler
// that wrote nothing yields an empty 200.
func (g *guardedWriter) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	if !g.committed {
		g.commitLocked(http.StatusOK)
	}
	g.closed = true
}

// Status returns the committed status code, or 0.
func (g *guardedWriter) Status() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
