package runtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/utils"
)

func TestFetchAdapter_Handle(t *testing.T) {
	received := make(chan *ports.Request, 1)
	adapter := NewCloudflareAdapter(AdapterConfig{
		Source: utils.MapEnv{},
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			received <- req
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_, err := w.Write([]byte(`{"ok":true}`))
			return err
		},
	})

	req := httptest.NewRequest(http.MethodPost, "https://edge.example.com/jobs?id=7", strings.NewReader("payload"))
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")

	resp := adapter.Handle(context.Background(), req)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(len(body)), resp.ContentLength)

	got := <-received
	assert.Equal(t, ports.RuntimeCloudflare, got.Source)
	assert.Equal(t, "/jobs", got.Path)
	assert.Equal(t, "id=7", got.RawQuery)
	assert.Equal(t, []byte("payload"), got.Body)
	assert.Equal(t, "203.0.113.9", got.RemoteAddr)
	assert.False(t, adapter.SupportsPersistentConnections())
}

func TestFetchAdapter_HandlerFailure(t *testing.T) {
	adapter := NewDenoDeployAdapter(AdapterConfig{
		Source:      utils.MapEnv{},
		Environment: "development",
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			return errors.New("upstream failed")
		},
	})

	resp := adapter.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeErrorBody(t, resp.Body)
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.Equal(t, "upstream failed", body.Message)
}

func TestFetchAdapter_BodyTooLarge(t *testing.T) {
	adapter := NewCloudflareAdapter(AdapterConfig{
		Source:       utils.MapEnv{},
		MaxBodyBytes: 3,
		Handler:      noopHandler,
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long"))
	resp := adapter.Handle(context.Background(), req)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestFetchAdapter_DenoForwardedFor(t *testing.T) {
	received := make(chan *ports.Request, 1)
	adapter := NewDenoDeployAdapter(AdapterConfig{
		Source: utils.MapEnv{},
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			received <- req
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")

	resp := adapter.Handle(context.Background(), req)
	resp.Body.Close()

	assert.Equal(t, "198.51.100.4", (<-received).RemoteAddr)
}

func TestFetchAdapter_ServeHTTP(t *testing.T) {
	adapter := NewCloudflareAdapter(AdapterConfig{
		Source: utils.MapEnv{},
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			w.Header().Set("X-Edge", "1")
			_, err := w.Write([]byte("hello"))
			return err
		},
	})

	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Edge"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
}
