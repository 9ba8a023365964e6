package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vesla0x1/multiruntime/infrastructure/runtime"
	"github.com/vesla0x1/multiruntime/utils"
)

func detectCmd() *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the detected runtime and its diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			layers, err := flags.sources(cmd)
			if err != nil {
				return err
			}

			src := append(utils.Chain{}, layers...)
			src = append(src, utils.OSEnv{})

			info := runtime.Info(src)
			info["resolved_runtime"] = runtime.Resolve(runtime.Detect(src)).String()

			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
