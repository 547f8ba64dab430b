// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/platform/config"
	"github.com/psu-triup/portal/internal/platform/constants"
)

// areaHomes is the default path checked for each area.
var areaHomes = map[string]string{
	"admin": constants.AdminHomePath,
	"psu":   constants.PSUHomePath,
}

func whoamiCmd() *cobra.Command {
	var (
		areaName string
		path     string
	)

	cmd := &cobra.Command{
		Use:   "whoami <credential>",
		Short: "Resolve a credential against an area",
		Long: `Resolve a credential against an area and print the gate decision.

The credential is an admin session token for the admin area, or the
value of the psu_session cookie for the psu area. Only BACKEND_URL and
IDENTITY_TIMEOUT are read from the environment.

Examples:
  portal whoami 3f2a...
  portal whoami --area psu --path /profile s%3Aabc...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), cmd.OutOrStdout(), areaName, path, args[0])
		},
	}

	cmd.Flags().StringVarP(&areaName, "area", "a", "admin", "Area to check (admin or psu)")
	cmd.Flags().StringVar(&path, "path", "", "Path to check (default: the area home)")

	return cmd
}

func runWhoami(ctx context.Context, out io.Writer, areaName, path, value string) error {
	cfg, err := config.LoadBackend()
	if err != nil {
		return err
	}

	client, err := backend.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, newLogger(false), nil)
	if err != nil {
		return err
	}

	gate := access.NewGate(client, cfg.IdentityTimeout, access.Hooks{}, access.AdminArea(), access.PSUArea())
	area, ok := gate.Area(areaName)
	if !ok {
		return fmt.Errorf("unknown area %q", areaName)
	}
	if path == "" {
		path = areaHomes[area.Name]
	}

	outcome, err := gate.Check(ctx, area, path, area.Credential(value))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "area:     %s\n", outcome.Area)
	fmt.Fprintf(out, "path:     %s\n", outcome.Path)
	fmt.Fprintf(out, "decision: %s\n", outcome.Decision)
	fmt.Fprintf(out, "state:    %s\n", outcome.State)
	if outcome.Location != "" {
		fmt.Fprintf(out, "redirect: %s\n", outcome.Location)
	}
	if identity := outcome.Identity; identity != nil {
		fmt.Fprintf(out, "user:     %s (%s)\n", identity.Username(), identity.DisplayName())
		fmt.Fprintf(out, "role:     %d %s\n", identity.RoleID(), identity.RoleID().Label())
	}

	return nil
}
