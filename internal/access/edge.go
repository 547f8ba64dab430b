// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/psu-triup/portal/internal/platform/ctxkey"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
)

// # Credential Sources

// Source supplies the credential for an area from a request.
type Source interface {
	Credential(request *http.Request, area *Area) Credential
}

// CookieSource reads the credential from a cookie.
//
// When Name is empty the area's own cookie name is used.
type CookieSource struct {
	Name string
}

// Credential implements [Source].
func (source CookieSource) Credential(request *http.Request, area *Area) Credential {
	name := source.Name
	if name == "" {
		name = area.CookieName
	}
	cookie, err := request.Cookie(name)
	if err != nil {
		return area.Credential("")
	}
	return area.Credential(cookie.Value)
}

// # Request Context

// WithOutcome stores the edge decision on the request context.
func WithOutcome(ctx context.Context, outcome Outcome) context.Context {
	return context.WithValue(ctx, ctxkey.KeyGateOutcome, outcome)
}

// OutcomeFrom returns the edge decision for this request, if one was made.
func OutcomeFrom(ctx context.Context) (Outcome, bool) {
	outcome, ok := ctx.Value(ctxkey.KeyGateOutcome).(Outcome)
	return outcome, ok
}

// IdentityFrom returns the identity the edge allowed, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	outcome, ok := OutcomeFrom(ctx)
	if !ok || outcome.State != StateAllowed {
		return nil
	}
	return outcome.Identity
}

// # Edge Adapter

/*
Edge runs the gate in front of every route.

Description: The area is chosen from the request path and the credential
is read from the area cookie. Redirect outcomes answer 302 Found. Allowed
outcomes continue with the outcome stored on the context. An abandoned
navigation writes nothing.
*/
func Edge(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Paths outside every area pass untouched
			area, found := gate.Match(request.URL.Path)
			if !found {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Resolve access
			credential := CookieSource{}.Credential(request, area)
			outcome, err := gate.Check(request.Context(), area, request.URL.Path, credential)
			if err != nil {
				if !errors.Is(err, ErrNavigationAbandoned) {
					http.Redirect(writer, request, area.LoginPath, http.StatusFound)
				}
				return
			}

			// 3. Act on the decision
			if outcome.Redirected() {
				http.Redirect(writer, request, outcome.Location, http.StatusFound)
				return
			}

			ctx := WithOutcome(request.Context(), outcome)
			if outcome.Identity != nil {
				ctxutil.SetUsername(ctx, outcome.Identity.Username())
			}

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
