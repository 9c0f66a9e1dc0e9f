// snapsolve points a camera at a problem, sends a still to a vision model,
// and shows and speaks the answer.
//
// Commands:
//
//	snapsolve serve    run the inference backend
//	snapsolve run      run the camera orchestrator and dashboard
//	snapsolve watch    print state changes from a running dashboard
//	snapsolve version  print the version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/snapsolve/internal/config"
	"github.com/teslashibe/snapsolve/internal/log"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "snapsolve",
		Short:         "Camera-to-answer problem solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(serveCommand(), runCommand(), watchCommand(), versionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "snapsolve", version)
		},
	}
}
