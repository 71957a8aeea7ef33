// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command boardlink runs the Trello connector for the automation host.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/boardlink/internal/config"
	xglog "github.com/ManuGH/boardlink/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const serviceName = "boardlink"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cliOptions are the flags shared by every subcommand.
type cliOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "boardlink",
		Short:         "Trello connector for the automation host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newServeCmd(opts),
		newPollCmd(opts),
		newFieldsCmd(opts),
		newRunCmd(opts),
		newStorageCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig applies the dotenv file and resolves the effective config with
// precedence ENV > file > defaults, then reconfigures logging onto logOut
// (stdout when nil).
func loadConfig(opts *cliOptions, logOut io.Writer) (config.AppConfig, *config.Loader, error) {
	xglog.Configure(xglog.Config{Level: "info", Output: logOut, Service: serviceName, Version: version})
	logger := xglog.WithComponent("cli")

	if opts.envFile != "" {
		if err := config.LoadDotEnv(opts.envFile); err != nil {
			logger.Warn().Err(err).Str("path", opts.envFile).Msg("failed to load dotenv file")
		}
	}

	loader := config.NewLoader(opts.configPath, version)
	cfg, err := loader.Load()
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("load config: %w", err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: logOut, Service: serviceName, Version: version})
	return cfg, loader, nil
}
