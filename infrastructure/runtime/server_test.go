package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/application/ports/mocks"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/infrastructure/observability/adapters/stdout"
	"github.com/vesla0x1/multiruntime/utils"
)

func startServer(t *testing.T, cfg AdapterConfig) *ServerAdapter {
	t.Helper()

	if cfg.Source == nil {
		cfg.Source = utils.MapEnv{}
	}
	adapter := NewServerAdapter(ports.RuntimeGenericServer, cfg)
	require.NoError(t, adapter.StartServer(context.Background(), 0, "127.0.0.1"))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = adapter.Stop(ctx)
	})
	return adapter
}

func baseURL(a *ServerAdapter) string {
	return "http://" + a.Addr().String()
}

func decodeErrorBody(t *testing.T, r io.Reader) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func TestServerAdapter_HandlerResponse(t *testing.T) {
	metrics := stdout.NewMetrics(nil)
	adapter := startServer(t, AdapterConfig{
		Metrics: metrics,
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusCreated)
			_, err := w.Write([]byte("ok"))
			return err
		},
	})

	resp, err := http.Post(baseURL(adapter)+"/items", "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	assert.Eventually(t, func() bool {
		return metrics.GetCounter("http.requests", map[string]string{"platform": "generic-server", "status": "201"}) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestServerAdapter_NormalizesRequest(t *testing.T) {
	received := make(chan *ports.Request, 1)
	adapter := startServer(t, AdapterConfig{
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			received <- req
			return nil
		},
	})

	req, err := http.NewRequest(http.MethodGet, baseURL(adapter)+"/search?q=go&page=2", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Add("X-Tag", "a")
	req.Header.Add("X-Tag", "b")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := <-received
	assert.Equal(t, "req-42", got.ID)
	assert.Equal(t, ports.RuntimeGenericServer, got.Source)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/search", got.Path)
	assert.Equal(t, "q=go&page=2", got.RawQuery)
	assert.Nil(t, got.Body)
	assert.Equal(t, "Host", got.Headers[0].Name)
	assert.Equal(t, []string{"a", "b"}, got.Headers.Values("x-tag"))
	assert.NotEmpty(t, got.RemoteAddr)
}

func TestServerAdapter_HandlerError(t *testing.T) {
	failing := func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
		return errors.New("database unavailable")
	}

	tests := []struct {
		name        string
		environment string
		message     string
	}{
		{name: "development exposes message", environment: "development", message: "database unavailable"},
		{name: "production hides message", environment: "production", message: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := mocks.NewMockLogger()
			adapter := startServer(t, AdapterConfig{
				Handler:     failing,
				Logger:      logger,
				Environment: tt.environment,
			})

			resp, err := http.Get(baseURL(adapter) + "/")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			body := decodeErrorBody(t, resp.Body)
			assert.Equal(t, "Internal Server Error", body.Error)
			assert.Equal(t, http.StatusInternalServerError, body.StatusCode)
			assert.Equal(t, tt.message, body.Message)
			assert.Contains(t, logger.Messages("Error"), "Handler failed")
		})
	}
}

func TestServerAdapter_HandlerPanic(t *testing.T) {
	adapter := startServer(t, AdapterConfig{
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			panic("boom")
		},
	})

	resp, err := http.Get(baseURL(adapter) + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServerAdapter_Timeout(t *testing.T) {
	lateWrite := make(chan error, 1)
	adapter := startServer(t, AdapterConfig{
		Timeout: 50 * time.Millisecond,
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			<-ctx.Done()
			_, err := w.Write([]byte("too late"))
			lateWrite <- err
			return nil
		},
	})

	resp, err := http.Get(baseURL(adapter) + "/slow")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	body := decodeErrorBody(t, resp.Body)
	assert.Equal(t, "Gateway Timeout", body.Error)
	assert.Equal(t, http.StatusGatewayTimeout, body.StatusCode)

	select {
	case err := <-lateWrite:
		assert.ErrorIs(t, err, ErrResponseSent)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not observe cancellation")
	}
}

func TestServerAdapter_DeclaredBodyTooLarge(t *testing.T) {
	invoked := make(chan struct{}, 1)
	adapter := startServer(t, AdapterConfig{
		MaxBodyBytes: 4,
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			invoked <- struct{}{}
			return nil
		},
	})

	conn, err := net.Dial("tcp", adapter.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprint(conn, "POST /upload HTTP/1.1\r\nHost: test\r\nContent-Length: 11\r\n\r\nhello world")
	require.NoError(t, err)

	assertSingleTooLarge(t, conn)
	assert.Empty(t, invoked)
}

func TestServerAdapter_ChunkedBodyTooLarge(t *testing.T) {
	invoked := make(chan struct{}, 1)
	adapter := startServer(t, AdapterConfig{
		MaxBodyBytes: 1,
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			invoked <- struct{}{}
			return nil
		},
	})

	conn, err := net.Dial("tcp", adapter.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Two one-byte chunks and no terminating chunk: the limit is crossed
	// while the stream is still open.
	_, err = fmt.Fprint(conn, "POST /upload HTTP/1.1\r\nHost: test\r\nTransfer-Encoding: chunked\r\n\r\n1\r\na\r\n1\r\nb\r\n")
	require.NoError(t, err)

	assertSingleTooLarge(t, conn)
	assert.Empty(t, invoked)
}

func assertSingleTooLarge(t *testing.T, conn net.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	reader := bufio.NewReader(conn)

	resp, err := http.ReadResponse(reader, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.True(t, resp.Close, "response must announce Connection: close")
	assert.Equal(t, "Payload Too Large", decodeErrorBody(t, resp.Body).Error)

	// Nothing follows the 413 and the server has closed its side.
	_, err = reader.ReadByte()
	assert.Error(t, err)
}

func TestServerAdapter_TruncatedBody(t *testing.T) {
	invoked := make(chan struct{}, 1)
	adapter := startServer(t, AdapterConfig{
		Handler: func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
			invoked <- struct{}{}
			return nil
		},
	})

	raw, err := net.Dial("tcp", adapter.Addr().String())
	require.NoError(t, err)
	conn := raw.(*net.TCPConn)
	defer conn.Close()

	_, err = fmt.Fprint(conn, "POST /upload HTTP/1.1\r\nHost: test\r\nContent-Length: 10\r\n\r\nabc")
	require.NoError(t, err)
	require.NoError(t, conn.CloseWrite())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Bad Request", decodeErrorBody(t, resp.Body).Error)
	assert.Empty(t, invoked)
}

func TestServerAdapter_Lifecycle(t *testing.T) {
	t.Run("stop before start", func(t *testing.T) {
		adapter := NewServerAdapter(ports.RuntimeFargate, AdapterConfig{Handler: noopHandler})

		assert.NoError(t, adapter.Stop(context.Background()))
		assert.Nil(t, adapter.Addr())
	})

	t.Run("second start", func(t *testing.T) {
		adapter := startServer(t, AdapterConfig{Handler: noopHandler})

		err := adapter.StartServer(context.Background(), 0, "127.0.0.1")
		assert.ErrorIs(t, err, ErrServerAlreadyStarted)
	})

	t.Run("address in use", func(t *testing.T) {
		first := startServer(t, AdapterConfig{Handler: noopHandler})
		port := first.Addr().(*net.TCPAddr).Port

		second := NewServerAdapter(ports.RuntimeGenericServer, AdapterConfig{Handler: noopHandler})
		err := second.StartServer(context.Background(), port, "127.0.0.1")

		assert.Error(t, err)
		assert.Nil(t, second.Addr())
	})

	t.Run("restart after stop", func(t *testing.T) {
		adapter := NewServerAdapter(ports.RuntimeGenericServer, AdapterConfig{Handler: noopHandler})
		require.NoError(t, adapter.StartServer(context.Background(), 0, "127.0.0.1"))
		require.NoError(t, adapter.Stop(context.Background()))

		require.NoError(t, adapter.StartServer(context.Background(), 0, "127.0.0.1"))
		assert.NoError(t, adapter.Stop(context.Background()))
	})

	t.Run("environment reports address", func(t *testing.T) {
		adapter := startServer(t, AdapterConfig{Handler: noopHandler})

		env := adapter.Environment()
		assert.Equal(t, "true", env["persistent_connections"])
		assert.Equal(t, adapter.Addr().String(), env["address"])
	})
}

func TestConnErrorWriter(t *testing.T) {
	logger := mocks.NewMockLogger()
	w := &connErrorWriter{logger: logger}

	_, _ = w.Write([]byte("http: read tcp 127.0.0.1:8080->127.0.0.1:5000: read: connection reset by peer\n"))
	_, _ = w.Write([]byte("http: TLS handshake error from 127.0.0.1:5000: EOF\n"))

	assert.Equal(t, []string{"Connection reset by peer"}, logger.Messages("Debug"))
	assert.Equal(t, []string{"Connection error"}, logger.Messages("Warn"))
}

func TestAdapterConfigFrom_ErrorDetail(t *testing.T) {
	failing := func(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
		return errors.New("database unavailable")
	}

	tests := []struct {
		name    string
		env     utils.MapEnv
		message string
	}{
		{name: "defaulted environment hides message", env: utils.MapEnv{}, message: ""},
		{name: "explicit development exposes message", env: utils.MapEnv{"ENVIRONMENT": "development"}, message: "database unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse(tt.env)
			require.NoError(t, err)

			adapter := startServer(t, AdapterConfigFrom(cfg, failing, nil, nil))

			resp, err := http.Get(baseURL(adapter) + "/")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, tt.message, decodeErrorBody(t, resp.Body).Message)
		})
	}
}
