package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"walk-ca/internal/app"
	"walk-ca/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := app.NewConfig()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "walkctl",
		Short: "Headless random-walk grid simulator",
		Long: `walkctl drives a random walker on a toroidal grid and tracks the
percentage of cells it has visited.

It can run a single simulation, sweep many seeded runs in parallel, or
serve a live run to browser observers over websocket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			return cfg.LoadFile(configPath, func(name string) bool {
				f := cmd.Flags().Lookup(name)
				return f != nil && f.Changed
			})
		},
	}

	fs := flag.NewFlagSet("walkctl", flag.ContinueOnError)
	cfg.Bind(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	rootCmd.AddCommand(
		newRunCmd(cfg),
		newSweepCmd(cfg),
		newServeCmd(cfg),
	)
	return rootCmd
}

func newLogger(cmd *cobra.Command, cfg *app.Config) *slog.Logger {
	return logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
}
