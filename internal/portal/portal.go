// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package portal serves the page models of the research-disclosure portal.

Every page answers JSON. Gated pages resolve the visitor through the access
gate render adapter and carry a [Viewer] block; user actions (login, logout)
answer with a redirect envelope so the page can stay put on failure.

Layout:

  - Public: landing, forbidden, PSU logout.
  - Admin: login, logout, dashboard, users, system imports, access audit.
  - PSU: findings list and detail tabs, profile.
*/
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/audit"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/platform/apperr"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/middleware"
	"github.com/psu-triup/portal/internal/session"
)

// # Collaborators

// Backend is the part of the backend API the pages read and write.
type Backend interface {
	access.Verifier

	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	Logout(ctx context.Context, token string) error
	LogoutPSU(ctx context.Context, cookie access.Credential) (string, error)
	PSULoginURL() string

	ListFindings(ctx context.Context) ([]backend.Finding, error)
	GetFinding(ctx context.Context, id string) (*backend.FindingDetail, error)

	Statistics(ctx context.Context) (*backend.Statistics, error)
	ExportURL(format string) (string, bool)

	ListUsers(ctx context.Context) ([]backend.User, error)
	GetUser(ctx context.Context, uuid string) (*backend.User, error)
	RoleLog(ctx context.Context, uuid string) ([]backend.RoleLogEntry, error)
	UpdateRole(ctx context.Context, uuid string, rolesID access.RoleID, changedBy string) error
}

// Imports runs and reports the admin batch imports.
type Imports interface {
	Run(ctx context.Context, script backend.Script, triggeredBy string) (importer.Result, error)
	RunAll(ctx context.Context, triggeredBy string) []importer.Result
	Status(ctx context.Context) ([]importer.Status, error)
}

// AuditLog lists recorded gate redirects.
type AuditLog interface {
	List(ctx context.Context, limit, offset int) ([]audit.Entry, int, error)
}

// Options wires a [Handler].
type Options struct {
	Backend  Backend
	Gate     *access.Gate
	Sessions *session.Provider
	Imports  Imports

	// Audit is nil when no audit database is configured.
	Audit AuditLog

	// LoginLimiter throttles password attempts; nil disables it.
	LoginLimiter *middleware.RateLimiter

	// LogoutHosts are the hosts a PSU logout may send the browser to.
	LogoutHosts []string

	IdentityTimeout time.Duration
	SecureCookies   bool
}

// # Handler

// Handler serves every portal page.
type Handler struct {
	backend  Backend
	sessions *session.Provider
	imports  Imports
	audit    AuditLog
	limiter  *middleware.RateLimiter

	admin   *access.Renderer
	psu     *access.Renderer
	psuArea *access.Area
	timeout time.Duration
	logout  []string
	secure  bool
}

/*
NewHandler builds the page handler.

Parameters:
  - options: Options (Backend, Gate, Sessions and Imports are required)

Returns:
  - *Handler
  - error: When the gate does not know the admin and psu areas
*/
func NewHandler(options Options) (*Handler, error) {
	if options.Backend == nil || options.Gate == nil || options.Sessions == nil || options.Imports == nil {
		return nil, errors.New("portal: backend, gate, sessions and imports are required")
	}

	adminArea, found := options.Gate.Area("admin")
	if !found {
		return nil, fmt.Errorf("portal: gate has no %q area", "admin")
	}
	psuArea, found := options.Gate.Area("psu")
	if !found {
		return nil, fmt.Errorf("portal: gate has no %q area", "psu")
	}

	return &Handler{
		backend:  options.Backend,
		sessions: options.Sessions,
		imports:  options.Imports,
		audit:    options.Audit,
		limiter:  options.LoginLimiter,
		admin:    access.Render(options.Gate, adminArea, options.Sessions, options.Sessions),
		psu:      access.Render(options.Gate, psuArea, nil, nil),
		psuArea:  psuArea,
		timeout:  options.IdentityTimeout,
		logout:   options.LogoutHosts,
		secure:   options.SecureCookies,
	}, nil
}

// RegisterRoutes mounts every page on the router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Public
	router.Get(constants.PSULoginPath, handler.landing)
	router.Get("/login", handler.landing)
	router.Get(constants.ForbiddenPath, handler.forbidden)
	router.Post("/logout", handler.logoutPSU)

	// Admin
	router.Route(constants.AdminPrefix, func(adminRoute chi.Router) {
		adminRoute.Get("/login-admin", handler.loginPage)
		adminRoute.With(handler.loginLimit).Post("/login-admin", handler.login)
		adminRoute.Post("/logout", handler.logoutAdmin)

		adminRoute.Get("/dashboard", handler.dashboard)

		adminRoute.Get("/users-data", handler.listUsers)
		adminRoute.Get("/users-data/{uuid}", handler.userDetail)
		adminRoute.Put("/users-data/{uuid}/role", handler.updateRole)

		adminRoute.Get("/system", handler.system)
		adminRoute.Post("/system/scripts/import-all", handler.runAllImports)
		adminRoute.Post("/system/scripts/{script}", handler.runScript)

		adminRoute.Get("/access-audit", handler.accessAudit)
	})

	// PSU
	router.Get(constants.PSUHomePath, handler.findings)
	router.Get(constants.PSUHomePath+"/detail/{formNewID}", handler.findingDetail)
	router.Get(constants.PSUHomePath+"/detail/{formNewID}/{tab}", handler.findingDetail)
	router.Get("/profile", handler.profile)
}

func (handler *Handler) loginLimit(next http.Handler) http.Handler {
	if handler.limiter == nil {
		return next
	}
	return handler.limiter.Handler(next)
}

// # Helpers

// upstream converts a backend failure into the error shown to the user.
func upstream(err error, fallback string) error {
	var backendErr *backend.Error
	if errors.As(err, &backendErr) {
		return apperr.FromStatus(backendErr.Status, backend.Message(err, fallback), err)
	}
	return apperr.BadGateway(fallback, err)
}
