// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"context"
	"errors"
	"net/http"
)

// IdentityCache holds the advisory copy of the verified identity used for
// conditional rendering. It is never consulted for a gating decision.
type IdentityCache interface {
	Remember(ctx context.Context, identity *Identity)
	Forget(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Remember(context.Context, *Identity) {}
func (noopCache) Forget(context.Context)              {}

// Result is what a handler receives from the render adapter.
type Result struct {
	Identity *Identity
	OK       bool
}

// Renderer is the handler-level adapter of the gate.
type Renderer struct {
	gate   *Gate
	area   *Area
	source Source
	cache  IdentityCache
}

// Render builds the handler-level adapter for one area.
//
// A nil source reads the area cookie; a nil cache disables caching.
func Render(gate *Gate, area *Area, source Source, cache IdentityCache) *Renderer {
	if source == nil {
		source = CookieSource{}
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &Renderer{gate: gate, area: area, source: source, cache: cache}
}

/*
Guard resolves access for the current request from inside a handler.

Description: When the edge already allowed this exact navigation, its
outcome is reused; it is the same navigation, not a second decision.
Otherwise the full check runs again. Guard is for pages that need a
verified identity: an allowed outcome without one (a public or unprotected
path) redirects to the login path. On a redirect the response is written
and OK is false, so the handler must return without writing anything else.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request

Returns:
  - Result: Identity and whether the handler may proceed
*/
func (renderer *Renderer) Guard(writer http.ResponseWriter, request *http.Request) Result {
	ctx := request.Context()
	requestPath := CanonicalPath(request.URL.Path)

	// 1. Same navigation already decided at the edge
	if outcome, ok := OutcomeFrom(ctx); ok &&
		outcome.Area == renderer.area.Name &&
		outcome.Path == requestPath &&
		outcome.State == StateAllowed &&
		outcome.Identity != nil {
		renderer.cache.Remember(ctx, outcome.Identity)
		return Result{Identity: outcome.Identity, OK: true}
	}

	// 2. Full check
	credential := renderer.source.Credential(request, renderer.area)
	outcome, err := renderer.gate.Check(ctx, renderer.area, requestPath, credential)
	if err != nil {
		if !errors.Is(err, ErrNavigationAbandoned) {
			renderer.cache.Forget(ctx)
			http.Redirect(writer, request, renderer.area.LoginPath, http.StatusFound)
		}
		return Result{}
	}

	// 3. Act on the decision
	switch outcome.State {
	case StateAllowed:
		if outcome.Identity == nil {
			http.Redirect(writer, request, renderer.area.LoginPath, http.StatusFound)
			return Result{}
		}
		renderer.cache.Remember(ctx, outcome.Identity)
		return Result{Identity: outcome.Identity, OK: true}
	case StateRedirectedUnauth:
		renderer.cache.Forget(ctx)
	}

	http.Redirect(writer, request, outcome.Location, http.StatusFound)
	return Result{}
}
