package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/utils"
)

// sourceFlags are the flags shared by commands that read configuration.
type sourceFlags struct {
	envFile string
	runtime string
	port    int
	host    string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "Read configuration from a dotenv file")
	cmd.Flags().StringVar(&f.runtime, "runtime", "", "Force the runtime (lambda, cloudflare, deno, fargate, generic-server, auto)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (persistent runtimes)")
	cmd.Flags().StringVar(&f.host, "host", "", "Host to bind (persistent runtimes)")
}

// sources returns the configuration layers the flags contribute, highest
// precedence first.
func (f *sourceFlags) sources(cmd *cobra.Command) ([]config.Source, error) {
	explicit := utils.MapEnv{}
	if f.runtime != "" {
		explicit[config.KeyRuntime] = f.runtime
	}
	if cmd.Flags().Changed("port") {
		explicit[config.KeyPort] = strconv.Itoa(f.port)
	}
	if f.host != "" {
		explicit[config.KeyHost] = f.host
	}

	layers := []config.Source{explicit}

	if f.envFile != "" {
		fileEnv, err := config.LoadFile(f.envFile)
		if err != nil {
			return nil, err
		}
		layers = append(layers, fileEnv)
	}

	return layers, nil
}
