package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vesla0x1/multiruntime/application/bootstrap"
	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
)

func serveCmd() *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the detected runtime adapter",
		Long: `Detect the runtime, build its adapter and serve requests until SIGINT or
SIGTERM. Persistent runtimes listen on HOST:PORT; Lambda hands the process to
the Lambda runtime loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			layers, err := flags.sources(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.LoadWith(layers...)
			if err != nil {
				return err
			}

			rt, err := bootstrap.Initialize(cmd.Context(), cfg, echoHandler)
			if err != nil {
				return fmt.Errorf("failed to initialize runtime: %w", err)
			}

			rt.SetupGracefulShutdown()
			rt.Wait()
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// echoResponse is what the bundled handler returns for every request.
type echoResponse struct {
	RequestID string            `json:"requestId"`
	Runtime   string            `json:"runtime"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	Headers   map[string]string `json:"headers"`
	BodyBytes int               `json:"bodyBytes"`
}

// echoHandler describes the normalized request back to the caller.
func echoHandler(ctx context.Context, req *ports.Request, w http.ResponseWriter) error {
	headers := make(map[string]string, len(req.Headers))
	for _, h := range req.Headers {
		headers[h.Name] = req.Headers.Get(h.Name)
	}

	data, err := json.Marshal(echoResponse{
		RequestID: req.ID,
		Runtime:   req.Source.String(),
		Method:    req.Method,
		Path:      req.Path,
		Query:     req.RawQuery,
		Headers:   headers,
		BodyBytes: len(req.Body),
	})
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", req.ID)
	_, err = w.Write(data)
	return err
}
