// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
)

// # Test Doubles

type observation struct {
	endpoint string
	status   int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (observer *recordingObserver) ObserveBackendRequest(endpoint string, status int, _ time.Duration) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.seen = append(observer.seen, observation{endpoint: endpoint, status: status})
}

func (observer *recordingObserver) Seen() []observation {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return append([]observation(nil), observer.seen...)
}

func newTestClient(t *testing.T, handler http.Handler) (*backend.Client, *recordingObserver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	observer := &recordingObserver{}
	client, err := backend.NewClient(server.URL, server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)), observer)
	require.NoError(t, err)
	return client, observer
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

// # Construction

/*
TestNewClient_RejectsInvalidBaseURL verifies the base URL must be absolute.
*/
func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "backend.local", "://nope"} {
		_, err := backend.NewClient(raw, nil, slog.Default(), nil)
		assert.Error(t, err, raw)
	}

	client, err := backend.NewClient("https://api.example.ac.th/", nil, slog.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.ac.th/api/auth/psu/login", client.PSULoginURL())
}

// # Who Am I

/*
TestClient_WhoAmI verifies each credential scheme reaches its endpoint.
*/
func TestClient_WhoAmI(t *testing.T) {
	var (
		mu        sync.Mutex
		paths     []string
		bearer    string
		cookie    string
		requestID string
	)
	client, observer := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		paths = append(paths, request.URL.Path)
		if value := request.Header.Get("Authorization"); value != "" {
			bearer = value
		}
		if c, err := request.Cookie("psu_session"); err == nil {
			cookie = c.Value
		}
		requestID = request.Header.Get("X-Request-ID")
		mu.Unlock()

		writeJSON(writer, http.StatusOK, map[string]any{
			"user": map[string]any{"username": "somchai.s", "roles_id": "1000"},
			"role": map[string]any{"roles_id": 1000, "roles_name": "ADMIN"},
		})
	}))

	ctx := ctxutil.WithRequestID(context.Background(), "req-42")

	identity, err := client.WhoAmI(ctx, access.Bearer("admin-token"))
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, identity.RoleID())
	assert.Equal(t, "somchai.s", identity.Username())

	_, err = client.WhoAmI(ctx, access.Cookie("psu_session", "passport"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/login-api-triup/me", "/api/auth/psu/me"}, paths)
	assert.Equal(t, "Bearer admin-token", bearer)
	assert.Equal(t, "passport", cookie)
	assert.Equal(t, "req-42", requestID)
	assert.Equal(t, []observation{
		{endpoint: "/api/login-api-triup/me", status: 200},
		{endpoint: "/api/auth/psu/me", status: 200},
	}, observer.Seen())
}

/*
TestClient_WhoAmIFailures verifies every failure mode surfaces as an error.
*/
func TestClient_WhoAmIFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{name: "Unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid token"}`},
		{name: "Server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "Not JSON", status: http.StatusOK, body: `<html>`, malformed: true},
		{name: "No role", status: http.StatusOK, body: `{"user":{"username":"x"}}`, malformed: true},
		{name: "Role disagreement", status: http.StatusOK, body: `{"user":{"roles_id":3000},"role":{"roles_id":1000}}`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = io.WriteString(writer, tt.body)
			}))

			identity, err := client.WhoAmI(context.Background(), access.Bearer("t"))
			require.Error(t, err)
			assert.Nil(t, identity)
			assert.Equal(t, tt.malformed, errors.Is(err, backend.ErrMalformed))

			var backendErr *backend.Error
			if !tt.malformed {
				require.ErrorAs(t, err, &backendErr)
				assert.Equal(t, tt.status, backendErr.Status)
			}
		})
	}
}

/*
TestClient_TransportFailure verifies an unreachable backend reports status 0.
*/
func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	observer := &recordingObserver{}
	client, err := backend.NewClient(server.URL, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), observer)
	require.NoError(t, err)

	_, err = client.WhoAmI(context.Background(), access.Bearer("t"))
	require.Error(t, err)
	assert.Equal(t, []observation{{endpoint: "/api/login-api-triup/me", status: 0}}, observer.Seen())
}

// # Login

/*
TestClient_Login verifies successful and rejected logins.
*/
func TestClient_Login(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))

		if body.Password != "correct" {
			writeJSON(writer, http.StatusUnauthorized, map[string]any{"success": false, "error": "รหัสผ่านไม่ถูกต้อง"})
			return
		}
		writeJSON(writer, http.StatusOK, map[string]any{
			"success": true,
			"session": map[string]any{"id": "backend-session", "expiresAt": "2026-03-01T11:00:00.000Z"},
			"user":    map[string]any{"username": "admin.triup", "roles_id": 1000, "role_name": "ADMIN"},
			"profile": map[string]any{"fullname": "ผู้ดูแล ระบบ"},
		})
	}))

	result, err := client.Login(context.Background(), "admin@psu.ac.th", "correct")
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, "backend-session", result.Token())
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), result.Session.ExpiresAt.UTC())
	assert.Equal(t, access.RoleAdmin, result.Identity().RoleID())
	assert.Equal(t, "ADMIN", result.Identity().RoleName())

	rejected, err := client.Login(context.Background(), "admin@psu.ac.th", "wrong")
	require.NoError(t, err)
	assert.False(t, rejected.Complete())
	assert.Equal(t, "รหัสผ่านไม่ถูกต้อง", rejected.Error)
}

/*
TestClient_LoginIncomplete verifies a success without expiry cannot open a session.
*/
func TestClient_LoginIncomplete(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{"success": true, "session": map[string]any{"id": "x"}})
	}))

	result, err := client.Login(context.Background(), "a@psu.ac.th", "p")
	require.NoError(t, err)
	assert.False(t, result.Complete())
}

/*
TestClient_LogoutPSU verifies the single sign-out URL is returned.
*/
func TestClient_LogoutPSU(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/api/auth/psu/logout", request.URL.Path)
		writeJSON(writer, http.StatusOK, map[string]any{"logout_url": "https://passport.psu.ac.th/logout"})
	}))

	logoutURL, err := client.LogoutPSU(context.Background(), access.Cookie("psu_session", "passport"))
	require.NoError(t, err)
	assert.Equal(t, "https://passport.psu.ac.th/logout", logoutURL)
}
