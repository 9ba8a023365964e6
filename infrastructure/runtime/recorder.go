package runtime

import (
	"bytes"
	"context"
	"net/http"

	"github.com/vesla0x1/multiruntime/application/ports"
)

// recorder buffers a response in memory for invocation-style adapters,
// which translate it into the platform's result shape once the handler is
// done.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

// response returns the normalized response. Only call it once the guarded
// writer wrapping the recorder has been closed.
func (r *recorder) response() *ports.Response {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}

	var body []byte
	if r.body.Len() > 0 {
		body = append([]byte(nil), r.body.Bytes()...)
	}

	return &ports.Response{
		StatusCode: status,
		Headers:    r.header.Clone(),
		Body:       body,
	}
}

// invokeBuffered runs the handler with the timeout race and returns the
// single response it produced.
func (e *executor) invokeBuffered(ctx context.Context, req *ports.Request) (*ports.Response, outcome) {
	rec := newRecorder()
	result := e.invoke(ctx, req, newGuardedWriter(rec))
	return rec.response(), result
}

// failureResponse builds a 500 response for requests that never reached
// the handler.
func (e *executor) failureResponse(requestID string, err error) *ports.Response {
	rec := newRecorder()
	writeJSON(rec, http.StatusInternalServerError, internalErrorBody(requestID, err, e.detailed))
	return rec.response()
}

// tooLargeResponse builds a 413 response.
func tooLargeResponse() *ports.Response {
	rec := newRecorder()
	writeJSON(rec, http.StatusRequestEntityTooLarge, tooLargeBody())
	return rec.response()
}
