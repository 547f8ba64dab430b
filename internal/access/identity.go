// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedIdentity is returned when a "who am I" body cannot yield
// exactly one role id.
var ErrMalformedIdentity = errors.New("access: malformed identity response")

// # Identity Model

// User is the account block of a verified identity.
type User struct {
	Username string `json:"username"`
	RolesID  RoleID `json:"roles_id"`
	RoleName string `json:"role_name,omitempty"`
}

// Profile carries the directory attributes shown on the profile page.
type Profile struct {
	Username       string `json:"username,omitempty"`
	StaffID        string `json:"staffid,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	FullName       string `json:"fullname,omitempty"`
	Email          string `json:"email,omitempty"`
	Position       string `json:"position_th,omitempty"`
	Office         string `json:"office_name_th,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	CampusName     string `json:"campus_name,omitempty"`
}

// RoleBlock is the role descriptor returned next to the user.
type RoleBlock struct {
	RolesID   RoleID `json:"roles_id"`
	RolesName string `json:"roles_name,omitempty"`
}

// Identity is what the backend vouches for after verifying a credential.
type Identity struct {
	User    User      `json:"user"`
	Profile Profile   `json:"profile"`
	Role    RoleBlock `json:"role"`
}

// RoleID returns the single role id attached to the identity.
func (identity *Identity) RoleID() RoleID {
	if identity == nil {
		return roleNone
	}
	return identity.User.RolesID
}

// Username returns the account name, falling back to the profile.
func (identity *Identity) Username() string {
	if identity == nil {
		return ""
	}
	if identity.User.Username != "" {
		return identity.User.Username
	}
	return identity.Profile.Username
}

// RoleName prefers the backend's role name and falls back to the local label.
func (identity *Identity) RoleName() string {
	if identity == nil {
		return ""
	}
	switch {
	case identity.Role.RolesName != "":
		return identity.Role.RolesName
	case identity.User.RoleName != "":
		return identity.User.RoleName
	default:
		return identity.RoleID().Label()
	}
}

// DisplayName resolves the name shown in the sidebar.
//
// Order: full name, then first and last name, then username, then "User".
func (identity *Identity) DisplayName() string {
	if identity == nil {
		return "User"
	}
	if name := strings.TrimSpace(identity.Profile.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(identity.Profile.FirstName + " " + identity.Profile.LastName); name != "" {
		return name
	}
	if username := identity.Username(); username != "" {
		return username
	}
	return "User"
}

// # Parsing

/*
ParseIdentity decodes a "who am I" response body.

Description: The role id is read from user.roles_id and falls back to
role.roles_id. When both are present they must agree; when neither is
present the body is rejected. Either failure yields [ErrMalformedIdentity],
which the gate treats exactly like a rejected credential.

Parameters:
  - body: []byte

Returns:
  - *Identity: Identity with User.RolesID and Role.RolesID both set
  - error: ErrMalformedIdentity
*/
func ParseIdentity(body []byte) (*Identity, error) {
	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}

	userRole := identity.User.RolesID
	blockRole := identity.Role.RolesID

	switch {
	case userRole == roleNone && blockRole == roleNone:
		return nil, fmt.Errorf("%w: no role id", ErrMalformedIdentity)
	case userRole != roleNone && blockRole != roleNone && userRole != blockRole:
		return nil, fmt.Errorf("%w: user role %d disagrees with role block %d", ErrMalformedIdentity, userRole, blockRole)
	case userRole == roleNone:
		identity.User.RolesID = blockRole
	case blockRole == roleNone:
		identity.Role.RolesID = userRole
	}

	return &identity, nil
}
