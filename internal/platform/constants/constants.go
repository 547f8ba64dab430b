// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, cookie names and cross-cutting keys
that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Cookie names and redirect destinations.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "triup-portal"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Import scripts are proxied synchronously, so this is generous.
	DefaultWriteTimeout = 90 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 60 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// LoginRateLimitRPS throttles password attempts on the admin login form.
	LoginRateLimitRPS = 0.2

	// LoginRateLimitBurst allows a handful of quick retries before throttling.
	LoginRateLimitBurst = 5

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Access Gate

const (
	// AdminCookieName carries the backend admin token checked by the edge gate.
	AdminCookieName = "admin_session"

	// PSUCookieName is the backend-issued PSU Passport session cookie that is
	// forwarded to the cookie-based identity endpoint.
	PSUCookieName = "psu_session"

	// PortalSessionCookieName references the server-side portal session.
	PortalSessionCookieName = "portal_session"

	// AdminPrefix is the protected administrative path prefix.
	AdminPrefix = "/admin"

	// AdminLoginPath is always public and is the unauthenticated destination of the admin area.
	AdminLoginPath = "/admin/login-admin"

	// AdminLogoutPath ends an admin session. It stays reachable with a dead
	// token so the cookie can always be cleared.
	AdminLogoutPath = "/admin/logout"

	// AdminHomePath is where a successful admin login lands.
	AdminHomePath = "/admin/dashboard"

	// ForbiddenPath is the fixed destination for insufficient roles.
	ForbiddenPath = "/403"

	// PSULoginPath is the public landing page offering PSU Passport sign-in.
	PSULoginPath = "/"

	// PSUHomePath is the findings list for signed-in PSU users.
	PSUHomePath = "/user-psu/home"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # JSON Field Identifiers

const (
	FieldError = "error"
	FieldCode  = "code"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession    = "portal:session:"
	RedisPrefixImportLast = "portal:import:last:"
)
