package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "multiruntime",
		Short: "Run one HTTP handler on Lambda, edge isolates or a plain server",
		Long: `multiruntime detects the hosting platform from the environment and runs
the same request handler behind the matching adapter:

  lambda           API Gateway and ALB events
  cloudflare, deno fetch-style invocations
  fargate, generic-server
                   a persistent HTTP listener`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		detectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
