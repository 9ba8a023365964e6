package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesla0x1/multiruntime/application/ports"
)

func runDetect(t *testing.T, args ...string) map[string]string {
	t.Helper()

	cmd := detectCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	return info
}

func TestDetectCmd_RuntimeFlag(t *testing.T) {
	info := runDetect(t, "--runtime", "fargate")

	assert.Equal(t, "fargate", info["detected_runtime"])
	assert.Equal(t, "fargate", info["resolved_runtime"])
}

func TestDetectCmd_UnknownRuntime(t *testing.T) {
	info := runDetect(t, "--runtime", "bun")

	assert.Equal(t, "bun", info["detected_runtime"])
	assert.Equal(t, "generic-server", info["resolved_runtime"])
}

func TestDetectCmd_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lambda.env")
	require.NoError(t, os.WriteFile(path, []byte("RUNTIME=auto\nAWS_LAMBDA_FUNCTION_NAME=orders\nAWS_REGION=eu-west-1\n"), 0o600))

	info := runDetect(t, "--env-file", path)

	assert.Equal(t, "lambda", info["detected_runtime"])
	assert.Equal(t, "orders", info["function_name"])
	assert.Equal(t, "eu-west-1", info["region"])
}

func TestEchoHandler(t *testing.T) {
	req := &ports.Request{
		ID:       "req-1",
		Source:   ports.RuntimeFargate,
		Method:   http.MethodPost,
		Path:     "/echo",
		RawQuery: "a=1",
		Body:     []byte("hello"),
	}
	req.Headers.Add("Content-Type", "text/plain")

	rec := httptest.NewRecorder()
	require.NoError(t, echoHandler(context.Background(), req, rec))

	var got echoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "fargate", got.Runtime)
	assert.Equal(t, "/echo", got.Path)
	assert.Equal(t, "a=1", got.Query)
	assert.Equal(t, 5, got.BodyBytes)
	assert.Equal(t, "text/plain", got.Headers["Content-Type"])
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}
