// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/psu-triup/portal/internal/access"
)

const (
	endpointUsers    = "/api/admin/users"
	endpointUser     = "/api/admin/users/{uuid}"
	endpointUserLog  = "/api/admin/users/{uuid}/role-log"
	endpointUserRole = "/api/admin/users/{uuid}/role"

	userLogSegment  = "role-log"
	userRoleSegment = "role"
)

// User is an account as listed by the admin API.
type User struct {
	UUID     string         `json:"user_pk_uuid"`
	Username string         `json:"username"`
	Email    string         `json:"email,omitempty"`
	RolesID  access.RoleID  `json:"roles_id"`
	Profile  access.Profile `json:"profile"`
}

// FullName returns the profile name, if any.
func (user User) FullName() string {
	return user.Profile.FullName
}

// RoleLogEntry records one role change.
type RoleLogEntry struct {
	LogID       ID     `json:"log_id"`
	OldRoleName string `json:"old_role_name"`
	NewRoleName string `json:"new_role_name"`
	ChangedBy   string `json:"changed_by"`
	ChangedAt   string `json:"changed_at"`
}

// ListUsers returns every account.
func (client *Client) ListUsers(ctx context.Context) ([]User, error) {
	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpointUsers,
		segments: []string{endpointUsers},
	})
	if err != nil {
		return nil, err
	}

	users, err := decodeData[[]User](endpointUsers, body)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}

	return users, nil
}

// GetUser returns one account.
func (client *Client) GetUser(ctx context.Context, uuid string) (*User, error) {
	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpointUser,
		segments: []string{endpointUsers, url.PathEscape(uuid)},
	})
	if err != nil {
		return nil, err
	}

	user, err := decodeData[*User](endpointUser, body)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &Error{Endpoint: endpointUser, Status: http.StatusNotFound, Message: "user not found"}
	}

	return user, nil
}

// RoleLog returns the role change history of one account.
func (client *Client) RoleLog(ctx context.Context, uuid string) ([]RoleLogEntry, error) {
	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpointUserLog,
		segments: []string{endpointUsers, url.PathEscape(uuid), userLogSegment},
	})
	if err != nil {
		return nil, err
	}

	entries, err := decodeData[[]RoleLogEntry](endpointUserLog, body)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []RoleLogEntry{}
	}

	return entries, nil
}

/*
UpdateRole changes the role of one account.

Parameters:
  - ctx: context.Context
  - uuid: string
  - rolesID: access.RoleID
  - changedBy: string (username of the verified administrator)

Returns:
  - error
*/
func (client *Client) UpdateRole(ctx context.Context, uuid string, rolesID access.RoleID, changedBy string) error {
	body, err := client.do(ctx, call{
		method:   http.MethodPut,
		endpoint: endpointUserRole,
		segments: []string{endpointUsers, url.PathEscape(uuid), userRoleSegment},
		body: map[string]any{
			"roles_id":   int(rolesID),
			"changed_by": changedBy,
		},
	})
	if err != nil {
		return err
	}

	if len(body) == 0 {
		return nil
	}
	_, err = decodeData[any](endpointUserRole, body)
	return err
}
