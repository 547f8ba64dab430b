// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psu-triup/portal/internal/platform/config"
	"github.com/psu-triup/portal/internal/platform/migration"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the access audit schema",
		Long: `Manage the access audit schema in DATABASE_URL.

Migrations are read from MIGRATION_PATH (default ./data/migrations).
The serve command applies pending migrations on its own; these commands
exist for deploy pipelines that migrate ahead of a rollout.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadMigration()
				if err != nil {
					return err
				}
				return migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, newLogger(false))
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadMigration()
				if err != nil {
					return err
				}

				state, err := migration.Status(cfg.DatabaseURL, cfg.MigrationPath, newLogger(false))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch {
				case state.Empty:
					fmt.Fprintln(out, "no migrations applied")
				case state.Dirty:
					fmt.Fprintf(out, "version %d (dirty)\n", state.Version)
				default:
					fmt.Fprintf(out, "version %d\n", state.Version)
				}
				return nil
			},
		},
	)

	return cmd
}
