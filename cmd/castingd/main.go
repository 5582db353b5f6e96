// Command castingd serves the Casting Agency API.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepworx/casting-agency/pkg/config"
)

type loader func() (config.Config, error)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfgPath := os.Getenv("CASTING_CONFIG_PATH")

	root := &cobra.Command{
		Use:          "castingd",
		Short:        "Casting Agency API server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "TOML config file (env CASTING_CONFIG_PATH)")

	load := func() (config.Config, error) {
		return config.Load(cfgPath)
	}
	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		checkTokenCmd(load),
	)
	return root
}
