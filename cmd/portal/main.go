// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Command portal is the entry point for the TRIUP research portal gateway.
//
// # Commands
//
//   - serve: run the HTTP server with the access gate in front of every page.
//   - migrate: apply or inspect the access audit schema.
//   - whoami: resolve a credential against an area and print the decision.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/psu-triup/portal/internal/platform/constants"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "portal",
		Short:   "TRIUP research disclosure portal",
		Version: constants.AppVersion,
		Long: `Portal serves the TRIUP research disclosure pages in front of the
backend API. Every navigation into the admin or PSU areas is checked
against the backend identity endpoint before a page is rendered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		whoamiCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the JSON logger shared by every command.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	return log
}
