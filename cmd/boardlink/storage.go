// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/boardlink/internal/config"
	"github.com/ManuGH/boardlink/internal/persistence/sqlite"
)

// pollDatabase is the SQLite poll store file inside the data dir.
const pollDatabase = "poll.sqlite"

var errCorrupt = errors.New("database integrity check failed")

func newStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect local poll state",
	}
	cmd.AddCommand(newStorageVerifyCmd())
	return cmd
}

func newStorageVerifyCmd() *cobra.Command {
	var path, mode string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check SQLite poll store integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode = strings.ToLower(strings.TrimSpace(mode))
			if mode != "quick" && mode != "full" {
				return fmt.Errorf("invalid mode %q: use quick or full", mode)
			}
			if path == "" {
				dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
				if dataDir == "" {
					return errors.New("--path or " + config.EnvDataDir + " is required")
				}
				path = filepath.Join(dataDir, pollDatabase)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Verifying integrity of %s (mode: %s)...\n", path, mode)
			issues, err := sqlite.VerifyIntegrity(cmd.Context(), path, mode)
			if err != nil {
				return fmt.Errorf("verification interrupted: %w", err)
			}
			if issues != nil {
				_, _ = fmt.Fprintln(out, "CORRUPTION DETECTED")
				for _, issue := range issues {
					_, _ = fmt.Fprintf(out, "  - %s\n", issue)
				}
				return errCorrupt
			}
			_, _ = fmt.Fprintln(out, "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "SQLite database file (default $"+config.EnvDataDir+"/"+pollDatabase+")")
	cmd.Flags().StringVar(&mode, "mode", "quick", "verification mode: quick or full")
	return cmd
}
