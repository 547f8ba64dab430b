// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal

import (
	"strings"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/platform/constants"
)

// MenuItem is one sidebar link.
type MenuItem struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// Viewer is the sidebar block shown on every gated page.
//
// It is built from the identity the gate just verified, never from a cached
// copy, so the menu always matches what the gate would allow.
type Viewer struct {
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	RoleID      access.RoleID `json:"roles_id"`
	RoleName    string        `json:"role_name"`
	Menu        []MenuItem    `json:"menu"`
}

var (
	homeMenu = []MenuItem{
		{Label: "Home", Path: constants.PSUHomePath},
	}
	adminMenu = []MenuItem{
		{Label: "Dashboard", Path: constants.AdminHomePath},
		{Label: "System", Path: "/admin/system"},
		{Label: "Users", Path: "/admin/users-data"},
	}
)

// NewViewer builds the sidebar for identity on the page at path.
func NewViewer(identity *access.Identity, path string) Viewer {
	entries := homeMenu
	if identity.RoleID().IsAdminOrCEO() {
		entries = append(append([]MenuItem{}, homeMenu...), adminMenu...)
	}

	path = access.CanonicalPath(path)
	menu := make([]MenuItem, len(entries))
	for i, entry := range entries {
		entry.Active = strings.HasPrefix(path, entry.Path)
		menu[i] = entry
	}

	return Viewer{
		Username:    identity.Username(),
		DisplayName: identity.DisplayName(),
		RoleID:      identity.RoleID(),
		RoleName:    identity.RoleName(),
		Menu:        menu,
	}
}
