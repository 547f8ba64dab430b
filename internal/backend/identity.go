// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/psu-triup/portal/internal/access"
)

// # Endpoints

const (
	endpointAdminMe     = "/api/login-api-triup/me"
	endpointAdminLogin  = "/api/login-api-triup/login"
	endpointAdminLogout = "/api/login-api-triup/logout"
	endpointPSUMe       = "/api/auth/psu/me"
	endpointPSULogin    = "/api/auth/psu/login"
	endpointPSULogout   = "/api/auth/psu/logout"
)

// # Who Am I

/*
WhoAmI asks the backend which identity a credential belongs to.

Description: Bearer credentials are checked against the admin endpoint and
cookie credentials against the PSU endpoint. Any non-2xx answer, transport
failure or undecodable body is an error; the gate fails closed on all of them.

Parameters:
  - ctx: context.Context
  - credential: access.Credential

Returns:
  - *access.Identity
  - error: *Error, ErrMalformed or transport errors
*/
func (client *Client) WhoAmI(ctx context.Context, credential access.Credential) (*access.Identity, error) {
	endpoint := endpointAdminMe
	if credential.Scheme == access.SchemeCookie {
		endpoint = endpointPSUMe
	}

	body, err := client.do(ctx, call{
		method:     http.MethodGet,
		endpoint:   endpoint,
		segments:   []string{endpoint},
		credential: &credential,
	})
	if err != nil {
		return nil, err
	}

	identity, err := access.ParseIdentity(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return identity, nil
}

// # Login

// LoginSession is the backend session handed out on a successful login.
type LoginSession struct {
	ID        string    `json:"id"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResult is the answer of the admin login endpoint.
type LoginResult struct {
	Success bool           `json:"success"`
	Session LoginSession   `json:"session"`
	User    access.User    `json:"user"`
	Profile access.Profile `json:"profile"`
	Error   string         `json:"error,omitempty"`
}

// Token returns the credential to present on later calls.
func (result *LoginResult) Token() string {
	if result.Session.Token != "" {
		return result.Session.Token
	}
	return result.Session.ID
}

// Complete reports whether the result can open a session.
func (result *LoginResult) Complete() bool {
	return result.Success && result.Token() != "" && !result.Session.ExpiresAt.IsZero()
}

// Identity returns the advisory identity carried by the login answer.
func (result *LoginResult) Identity() *access.Identity {
	identity := &access.Identity{User: result.User, Profile: result.Profile}
	identity.Role.RolesID = result.User.RolesID
	identity.Role.RolesName = result.User.RoleName
	return identity
}

/*
Login exchanges an email and password for a backend session.

Description: Rejections in the 4xx range are decoded as a [LoginResult]
with Success=false so the caller can show the backend's message. Only
transport failures, 5xx answers and undecodable bodies return an error.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *LoginResult
  - error
*/
func (client *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	answer, err := client.send(ctx, call{
		method:   http.MethodPost,
		endpoint: endpointAdminLogin,
		segments: []string{endpointAdminLogin},
		body:     map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}

	if answer.status >= http.StatusInternalServerError {
		return nil, &Error{Endpoint: endpointAdminLogin, Status: answer.status, Message: errorMessage(answer.body)}
	}

	var result LoginResult
	if err := json.Unmarshal(answer.body, &result); err != nil {
		if answer.status >= http.StatusBadRequest {
			return &LoginResult{Error: errorMessage(answer.body)}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, endpointAdminLogin, err)
	}

	if answer.status >= http.StatusBadRequest {
		result.Success = false
	}

	return &result, nil
}

// # Logout

// Logout ends the backend admin session behind token.
func (client *Client) Logout(ctx context.Context, token string) error {
	credential := access.Bearer(token)
	_, err := client.do(ctx, call{
		method:     http.MethodPost,
		endpoint:   endpointAdminLogout,
		segments:   []string{endpointAdminLogout},
		credential: &credential,
	})
	return err
}

// LogoutPSU ends the PSU Passport session and returns the single sign-out URL.
//
// The URL is empty when the backend does not provide one.
func (client *Client) LogoutPSU(ctx context.Context, cookie access.Credential) (string, error) {
	body, err := client.do(ctx, call{
		method:     http.MethodPost,
		endpoint:   endpointPSULogout,
		segments:   []string{endpointPSULogout},
		credential: &cookie,
	})
	if err != nil {
		return "", err
	}

	var decoded struct {
		LogoutURL string `json:"logout_url"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMalformed, endpointPSULogout, err)
		}
	}

	return decoded.LogoutURL, nil
}

// PSULoginURL is the backend route that starts PSU Passport sign-in.
func (client *Client) PSULoginURL() string {
	return client.URL(endpointPSULogin)
}
