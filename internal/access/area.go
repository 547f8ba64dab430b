// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"path"
	"strings"

	"github.com/psu-triup/portal/internal/platform/constants"
)

// # Credentials

// Scheme is the way a credential is presented to the identity endpoint.
type Scheme int

const (
	// SchemeBearer sends the credential as "Authorization: Bearer <value>".
	SchemeBearer Scheme = iota
	// SchemeCookie forwards the credential as a named cookie.
	SchemeCookie
)

func (s Scheme) String() string {
	if s == SchemeCookie {
		return "cookie"
	}
	return "bearer"
}

// Credential is an opaque proof of identity read from the request.
type Credential struct {
	Value      string
	Scheme     Scheme
	CookieName string
}

// Bearer builds a bearer credential.
func Bearer(value string) Credential {
	return Credential{Value: value, Scheme: SchemeBearer}
}

// Cookie builds a credential forwarded as the named cookie.
func Cookie(name, value string) Credential {
	return Credential{Value: value, Scheme: SchemeCookie, CookieName: name}
}

// Present reports whether a non-empty credential was supplied.
func (credential Credential) Present() bool {
	return strings.TrimSpace(credential.Value) != ""
}

// # Protected Areas

/*
Area describes one protected part of the portal and its allow-set.

Prefixes are matched on path segments, so "/admin" covers "/admin" and
"/admin/users" but not "/administrator". The login path is always public,
together with everything below it. Other public paths match exactly.

Every path is cleaned before matching, the same way the router cleans it
before dispatch, so "/admin/login-admin/../dashboard" is "/admin/dashboard".
*/
type Area struct {
	Name          string
	Prefixes      []string
	Public        []string
	LoginPath     string
	ForbiddenPath string
	Roles         RoleSet
	Scheme        Scheme
	CookieName    string
}

// AdminArea gates /admin/* for administrators and the CEO.
func AdminArea() *Area {
	return &Area{
		Name:          "admin",
		Prefixes:      []string{constants.AdminPrefix},
		Public:        []string{constants.AdminLogoutPath},
		LoginPath:     constants.AdminLoginPath,
		ForbiddenPath: constants.ForbiddenPath,
		Roles:         AdminRoles,
		Scheme:        SchemeBearer,
		CookieName:    constants.AdminCookieName,
	}
}

// PSUArea gates the PSU Passport pages for any signed-in identity.
func PSUArea() *Area {
	return &Area{
		Name:          "psu",
		Prefixes:      []string{"/user-psu", "/profile"},
		LoginPath:     constants.PSULoginPath,
		ForbiddenPath: constants.ForbiddenPath,
		Roles:         AnyRole,
		Scheme:        SchemeCookie,
		CookieName:    constants.PSUCookieName,
	}
}

// Protects reports whether the path falls under one of the area prefixes.
func (area *Area) Protects(requestPath string) bool {
	requestPath = CanonicalPath(requestPath)
	for _, prefix := range area.Prefixes {
		if underPrefix(requestPath, prefix) {
			return true
		}
	}
	return false
}

// IsPublic reports whether the path is carved out of the area.
func (area *Area) IsPublic(requestPath string) bool {
	requestPath = CanonicalPath(requestPath)
	if area.LoginPath != "" && underPrefix(requestPath, area.LoginPath) {
		return true
	}
	for _, public := range area.Public {
		if requestPath == CanonicalPath(public) {
			return true
		}
	}
	return false
}

// Credential wraps a raw value in the area's credential scheme.
func (area *Area) Credential(value string) Credential {
	if area.Scheme == SchemeCookie {
		return Cookie(area.CookieName, value)
	}
	return Bearer(value)
}

// CanonicalPath is the rooted, cleaned form of a request path: dot segments
// are resolved, repeated and trailing slashes dropped.
func CanonicalPath(requestPath string) string {
	return path.Clean("/" + requestPath)
}

// underPrefix matches whole path segments. The root prefix "/" only matches
// the root itself.
func underPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
