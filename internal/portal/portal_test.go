// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/audit"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/platform/apperr"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/middleware"
	"github.com/psu-triup/portal/internal/platform/respond"
	"github.com/psu-triup/portal/internal/portal"
	"github.com/psu-triup/portal/internal/session"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	adminToken  = "admin-token"
	ceoToken    = "ceo-token"
	viewerToken = "viewer-token"
	psuCookie   = "psu-cookie"
)

// # Test Doubles

type roleUpdate struct {
	UUID      string
	RolesID   access.RoleID
	ChangedBy string
}

type fakeBackend struct {
	mu          sync.Mutex
	identities  map[string]*access.Identity
	whoAmICalls int

	loginResult *backend.LoginResult
	loginErr    error
	logoutErr   error
	loggedOut   []string

	psuLogoutURL string
	psuLogoutErr error
	psuLoggedOut []string

	findings []backend.Finding
	detail   *backend.FindingDetail
	stats    *backend.Statistics
	statsErr error
	users    []backend.User
	roleLog  []backend.RoleLogEntry
	updates  []roleUpdate
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		identities: map[string]*access.Identity{
			adminToken:  identity("admin.triup", access.RoleAdmin, "ผู้ดูแล ระบบ"),
			ceoToken:    identity("ceo.psu", access.RoleCEO, ""),
			viewerToken: identity("viewer.v", access.RoleViewer, ""),
			psuCookie:   identity("somchai.j", access.RoleGeneralUser, "สมชาย ใจดี"),
		},
	}
}

func identity(username string, role access.RoleID, fullName string) *access.Identity {
	return &access.Identity{
		User:    access.User{Username: username, RolesID: role},
		Profile: access.Profile{FullName: fullName, Email: username + "@psu.ac.th"},
		Role:    access.RoleBlock{RolesID: role},
	}
}

func (fake *fakeBackend) WhoAmI(_ context.Context, credential access.Credential) (*access.Identity, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.whoAmICalls++
	if found, ok := fake.identities[credential.Value]; ok {
		return found, nil
	}
	return nil, &backend.Error{Status: http.StatusUnauthorized, Message: "invalid session"}
}

func (fake *fakeBackend) Calls() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.whoAmICalls
}

func (fake *fakeBackend) Login(_ context.Context, email, password string) (*backend.LoginResult, error) {
	return fake.loginResult, fake.loginErr
}

func (fake *fakeBackend) Logout(_ context.Context, token string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.loggedOut = append(fake.loggedOut, token)
	return fake.logoutErr
}

func (fake *fakeBackend) LogoutPSU(_ context.Context, cookie access.Credential) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.psuLoggedOut = append(fake.psuLoggedOut, cookie.Value)
	return fake.psuLogoutURL, fake.psuLogoutErr
}

func (fake *fakeBackend) PSULoginURL() string {
	return "https://api.triup.test/api/auth/psu/login"
}

func (fake *fakeBackend) ListFindings(context.Context) ([]backend.Finding, error) {
	return fake.findings, nil
}

func (fake *fakeBackend) GetFinding(_ context.Context, id string) (*backend.FindingDetail, error) {
	if fake.detail == nil {
		return nil, &backend.Error{Status: http.StatusNotFound, Message: "finding " + id + " not found"}
	}
	return fake.detail, nil
}

func (fake *fakeBackend) Statistics(context.Context) (*backend.Statistics, error) {
	return fake.stats, fake.statsErr
}

func (fake *fakeBackend) ExportURL(format string) (string, bool) {
	if format != "excel" && format != "pdf" {
		return "", false
	}
	return "https://api.triup.test/api/statistics/export/" + format, true
}

func (fake *fakeBackend) ListUsers(context.Context) ([]backend.User, error) {
	return fake.users, nil
}

func (fake *fakeBackend) GetUser(_ context.Context, uuid string) (*backend.User, error) {
	for _, user := range fake.users {
		if user.UUID == uuid {
			found := user
			return &found, nil
		}
	}
	return nil, &backend.Error{Status: http.StatusNotFound, Message: "User not found"}
}

func (fake *fakeBackend) RoleLog(context.Context, string) ([]backend.RoleLogEntry, error) {
	return fake.roleLog, nil
}

func (fake *fakeBackend) UpdateRole(_ context.Context, uuid string, rolesID access.RoleID, changedBy string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.updates = append(fake.updates, roleUpdate{UUID: uuid, RolesID: rolesID, ChangedBy: changedBy})
	return nil
}

type fakeImports struct {
	mu       sync.Mutex
	runs     []backend.Script
	runBy    []string
	conflict bool
}

func (fake *fakeImports) Run(_ context.Context, script backend.Script, triggeredBy string) (importer.Result, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.conflict {
		return importer.Result{}, apperr.Conflict("Script is already running")
	}
	fake.runs = append(fake.runs, script)
	fake.runBy = append(fake.runBy, triggeredBy)
	return importer.Result{Script: script, Success: true, TriggeredBy: triggeredBy}, nil
}

func (fake *fakeImports) RunAll(_ context.Context, triggeredBy string) []importer.Result {
	results := make([]importer.Result, 0, len(backend.ImportScripts))
	for _, script := range backend.ImportScripts {
		results = append(results, importer.Result{Script: script, Success: true, TriggeredBy: triggeredBy})
	}
	return results
}

func (fake *fakeImports) Status(context.Context) ([]importer.Status, error) {
	return []importer.Status{
		{Script: backend.ScriptFetchAll},
		{Script: backend.ScriptImportFix, Running: true},
	}, nil
}

type fakeAudit struct {
	entries []audit.Entry
	limit   int
	offset  int
}

func (fake *fakeAudit) List(_ context.Context, limit, offset int) ([]audit.Entry, int, error) {
	fake.limit, fake.offset = limit, offset
	return fake.entries, 45, nil
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func (store *memoryStore) Save(_ context.Context, s *session.Session, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[s.ID] = *s
	return nil
}

func (store *memoryStore) Find(_ context.Context, id string) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	s, ok := store.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (store *memoryStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.sessions, id)
	return nil
}

func (store *memoryStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.sessions)
}

// # Fixture

type fixture struct {
	backend *fakeBackend
	imports *fakeImports
	audit   *fakeAudit
	store   *memoryStore
	gate    *access.Gate
	router  chi.Router
}

func newFixture(t *testing.T, configure ...func(*portal.Options)) *fixture {
	t.Helper()

	f := &fixture{
		backend: newFakeBackend(),
		imports: &fakeImports{},
		audit:   &fakeAudit{},
		store:   &memoryStore{sessions: map[string]session.Session{}},
	}
	f.gate = access.NewGate(f.backend, time.Second, access.Hooks{}, access.AdminArea(), access.PSUArea())
	provider := session.NewProvider(f.store, testSecret, false, nil)

	options := portal.Options{
		Backend:         f.backend,
		Gate:            f.gate,
		Sessions:        provider,
		Imports:         f.imports,
		Audit:           f.audit,
		LogoutHosts:     []string{"passport.psu.ac.th"},
		IdentityTimeout: time.Second,
	}
	for _, apply := range configure {
		apply(&options)
	}

	handler, err := portal.NewHandler(options)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(provider.Middleware)
	handler.RegisterRoutes(router)
	f.router = router

	return f
}

func (f *fixture) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

func adminCookie(token string) *http.Cookie {
	return &http.Cookie{Name: constants.AdminCookieName, Value: token}
}

func psuSession(value string) *http.Cookie {
	return &http.Cookie{Name: constants.PSUCookieName, Value: value}
}

func decodeData[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) respond.ErrorEnvelope {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope
}

func decodeRedirect(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope respond.RedirectEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope.Redirect
}

func responseCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// # Construction

/*
TestNewHandler verifies missing collaborators and areas are rejected.
*/
func TestNewHandler(t *testing.T) {
	_, err := portal.NewHandler(portal.Options{})
	assert.Error(t, err)

	fake := newFakeBackend()
	provider := session.NewProvider(&memoryStore{sessions: map[string]session.Session{}}, testSecret, false, nil)
	adminOnly := access.NewGate(fake, time.Second, access.Hooks{}, access.AdminArea())

	_, err = portal.NewHandler(portal.Options{
		Backend:  fake,
		Gate:     adminOnly,
		Sessions: provider,
		Imports:  &fakeImports{},
	})
	assert.ErrorContains(t, err, `"psu"`)
}

// # Public Pages

/*
TestLanding verifies the landing page offers sign-in unless the PSU cookie verifies.
*/
func TestLanding(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/login"} {
		recorder := f.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		page := decodeData[portal.LandingPage](t, recorder)
		assert.Equal(t, "https://api.triup.test/api/auth/psu/login", page.LoginURL)
	}

	recorder := f.do(http.MethodGet, "/", "", psuSession(psuCookie))
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, constants.PSUHomePath, recorder.Header().Get("Location"))

	recorder = f.do(http.MethodGet, "/", "", psuSession("expired"))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestForbidden verifies the forbidden page answers 403.
*/
func TestForbidden(t *testing.T) {
	f := newFixture(t)

	recorder := f.do(http.MethodGet, constants.ForbiddenPath, "")

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	page := decodeData[portal.ForbiddenPage](t, recorder)
	assert.Equal(t, http.StatusForbidden, page.Status)
	assert.Equal(t, "/", page.HomePath)
}

/*
TestLogoutPSU verifies the single sign-out URL is only followed on allowed hosts.
*/
func TestLogoutPSU(t *testing.T) {
	tests := []struct {
		name      string
		cookie    *http.Cookie
		logoutURL string
		logoutErr error
		want      string
	}{
		{"allowed_host", psuSession(psuCookie), "https://passport.psu.ac.th/logout?next=portal", nil, "https://passport.psu.ac.th/logout?next=portal"},
		{"allowed_host_case", psuSession(psuCookie), "https://PASSPORT.psu.ac.th/logout", nil, "https://PASSPORT.psu.ac.th/logout"},
		{"foreign_host", psuSession(psuCookie), "https://evil.example/logout", nil, "/"},
		{"lookalike_host", psuSession(psuCookie), "https://passport.psu.ac.th.evil.example/", nil, "/"},
		{"script_scheme", psuSession(psuCookie), "javascript:alert(1)", nil, "/"},
		{"relative", psuSession(psuCookie), "/somewhere", nil, "/"},
		{"backend_error", psuSession(psuCookie), "", &backend.Error{Status: 500}, "/"},
		{"no_cookie", nil, "https://passport.psu.ac.th/logout", nil, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.psuLogoutURL = tt.logoutURL
			f.backend.psuLogoutErr = tt.logoutErr

			var cookies []*http.Cookie
			if tt.cookie != nil {
				cookies = append(cookies, tt.cookie)
			}
			recorder := f.do(http.MethodPost, "/logout", "", cookies...)

			require.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.want, decodeRedirect(t, recorder))

			cleared := responseCookie(recorder, constants.PSUCookieName)
			require.NotNil(t, cleared)
			assert.Negative(t, cleared.MaxAge)
		})
	}
}

// # Admin Login

/*
TestLogin verifies the admin sign-in form.
*/
func TestLogin(t *testing.T) {
	expiresAt := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	complete := &backend.LoginResult{
		Success: true,
		Session: backend.LoginSession{ID: "tok-1", ExpiresAt: expiresAt},
		User:    access.User{Username: "admin.triup", RolesID: access.RoleAdmin},
	}

	tests := []struct {
		name        string
		body        string
		result      *backend.LoginResult
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"missing_password", `{"email":"admin@psu.ac.th","password":""}`, nil, nil, http.StatusBadRequest, "กรอกอีเมล/รหัสผ่านก่อน"},
		{"blank_email", `{"email":"  ","password":"secret"}`, nil, nil, http.StatusBadRequest, "กรอกอีเมล/รหัสผ่านก่อน"},
		{"invalid_json", `{"email":`, nil, nil, http.StatusBadRequest, "Invalid JSON payload"},
		{"backend_message", `{"email":"admin@psu.ac.th","password":"x"}`, &backend.LoginResult{Error: "บัญชีถูกระงับ"}, nil, http.StatusUnauthorized, "บัญชีถูกระงับ"},
		{"generic_rejection", `{"email":"admin@psu.ac.th","password":"x"}`, &backend.LoginResult{}, nil, http.StatusUnauthorized, "username หรือ password ไม่ถูกต้อง"},
		{"missing_expiry", `{"email":"admin@psu.ac.th","password":"x"}`, &backend.LoginResult{Success: true, Session: backend.LoginSession{ID: "tok-1"}}, nil, http.StatusUnauthorized, "username หรือ password ไม่ถูกต้อง"},
		{"already_expired", `{"email":"admin@psu.ac.th","password":"x"}`, &backend.LoginResult{Success: true, Session: backend.LoginSession{ID: "tok-1", ExpiresAt: time.Now().Add(-time.Minute)}}, nil, http.StatusUnauthorized, "username หรือ password ไม่ถูกต้อง"},
		{"backend_down", `{"email":"admin@psu.ac.th","password":"x"}`, nil, &backend.Error{Status: http.StatusServiceUnavailable}, http.StatusBadGateway, "username หรือ password ไม่ถูกต้อง"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.loginResult = tt.result
			f.backend.loginErr = tt.err

			recorder := f.do(http.MethodPost, constants.AdminLoginPath, tt.body)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantMessage, decodeError(t, recorder).Error)
			assert.Nil(t, responseCookie(recorder, constants.AdminCookieName))
			assert.Zero(t, f.store.Len())
		})
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.backend.loginResult = complete

		recorder := f.do(http.MethodPost, constants.AdminLoginPath, `{"email":" admin@psu.ac.th ","password":"secret"}`)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, constants.AdminHomePath, decodeRedirect(t, recorder))

		cookie := responseCookie(recorder, constants.AdminCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, "tok-1", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.WithinDuration(t, expiresAt, cookie.Expires, time.Second)

		assert.NotNil(t, responseCookie(recorder, constants.PortalSessionCookieName))
		assert.Equal(t, 1, f.store.Len())
	})
}

/*
TestLoginPage verifies the form description.
*/
func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	recorder := f.do(http.MethodGet, constants.AdminLoginPath, "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, constants.AdminLoginPath, decodeData[portal.LoginPage](t, recorder).Action)
}

/*
TestLogin_RateLimited verifies password attempts are throttled per client.
*/
func TestLogin_RateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := newFixture(t, func(options *portal.Options) {
		options.LoginLimiter = middleware.NewRateLimiter(ctx, 0.2, 1)
	})
	f.backend.loginResult = &backend.LoginResult{}

	first := f.do(http.MethodPost, constants.AdminLoginPath, `{"email":"a","password":"b"}`)
	second := f.do(http.MethodPost, constants.AdminLoginPath, `{"email":"a","password":"b"}`)

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// The form itself is never throttled
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, constants.AdminLoginPath, "").Code)
}

// # Admin Logout

/*
TestLogoutAdmin verifies cookies and the session are cleared even when the backend fails.
*/
func TestLogoutAdmin(t *testing.T) {
	f := newFixture(t)
	f.backend.loginResult = &backend.LoginResult{
		Success: true,
		Session: backend.LoginSession{ID: adminToken, ExpiresAt: time.Now().Add(time.Hour)},
		User:    access.User{Username: "admin.triup", RolesID: access.RoleAdmin},
	}
	f.backend.logoutErr = &backend.Error{Status: http.StatusInternalServerError}

	login := f.do(http.MethodPost, constants.AdminLoginPath, `{"email":"admin@psu.ac.th","password":"secret"}`)
	require.Equal(t, http.StatusOK, login.Code)
	portalCookie := responseCookie(login, constants.PortalSessionCookieName)
	require.NotNil(t, portalCookie)
	require.Equal(t, 1, f.store.Len())

	recorder := f.do(http.MethodPost, constants.AdminLogoutPath, "", portalCookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, constants.PSUHomePath, decodeRedirect(t, recorder))
	assert.Equal(t, []string{adminToken}, f.backend.loggedOut)
	assert.Zero(t, f.store.Len())

	cleared := responseCookie(recorder, constants.AdminCookieName)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	// Without any session the cookie is still cleared
	anonymous := f.do(http.MethodPost, constants.AdminLogoutPath, "")
	require.Equal(t, http.StatusOK, anonymous.Code)
	assert.NotNil(t, responseCookie(anonymous, constants.AdminCookieName))
	assert.Len(t, f.backend.loggedOut, 1)
}

// # Viewer

/*
TestNewViewer verifies the menu depends on the verified role.
*/
func TestNewViewer(t *testing.T) {
	tests := []struct {
		name      string
		identity  *access.Identity
		wantMenu  []string
		wantName  string
		activeIdx int
	}{
		{"admin", identity("admin.triup", access.RoleAdmin, "ผู้ดูแล ระบบ"), []string{"Home", "Dashboard", "System", "Users"}, "ผู้ดูแล ระบบ", 3},
		{"ceo", identity("ceo.psu", access.RoleCEO, ""), []string{"Home", "Dashboard", "System", "Users"}, "ceo.psu", 3},
		{"researcher", identity("r.staff", access.RoleResearchStaff, ""), []string{"Home"}, "r.staff", -1},
		{"anonymous", nil, []string{"Home"}, "User", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewer := portal.NewViewer(tt.identity, "/admin/users-data/abc")

			labels := make([]string, len(viewer.Menu))
			for i, item := range viewer.Menu {
				labels[i] = item.Label
				assert.Equal(t, i == tt.activeIdx, item.Active, item.Label)
			}
			assert.Equal(t, tt.wantMenu, labels)
			assert.Equal(t, tt.wantName, viewer.DisplayName)
		})
	}
}

/*
TestEdgeAndRender verifies a page behind the edge reuses its decision.
*/
func TestEdgeAndRender(t *testing.T) {
	f := newFixture(t)
	f.backend.stats = &backend.Statistics{}

	router := chi.NewRouter()
	router.Use(access.Edge(f.gate))
	router.Mount("/", f.router)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, constants.AdminHomePath, nil)
	request.AddCookie(adminCookie(adminToken))
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, f.backend.Calls())

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, constants.AdminHomePath, nil)
	request.AddCookie(adminCookie(viewerToken))
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, constants.ForbiddenPath, recorder.Header().Get("Location"))
	assert.Equal(t, 2, f.backend.Calls())
}

func userUUID(n int) string {
	return fmt.Sprintf("0190a5d2-3c1e-7b4a-9f00-%012d", n)
}
