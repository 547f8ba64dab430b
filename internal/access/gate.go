// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package access implements the Access Gate of the portal.

Every navigation into a protected area goes through one predicate, [Resolve],
wrapped by two adapters: [Edge] runs it as router middleware before a page
handler is reached, and [Render] runs it from inside a handler that needs the
verified identity to build its view.

# Policy

  - Paths outside every area are allowed without any identity call.
  - The login path of an area is always public.
  - A missing credential redirects to the login path of the area.
  - Any verification failure (network, status, body, timeout) counts as a
    missing credential.
  - A verified role outside the allow-set redirects to the forbidden page.

Cached identities are advisory. Every protected navigation re-runs the full
check against the backend.
*/
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/psu-triup/portal/internal/platform/ctxutil"
	"github.com/psu-triup/portal/internal/platform/sec"
)

// ErrNavigationAbandoned is returned when the caller went away while the
// identity call was in flight. The late result is discarded.
var ErrNavigationAbandoned = errors.New("access: navigation abandoned")

// ErrIdentityTimeout marks an identity call that exceeded its deadline.
var ErrIdentityTimeout = errors.New("access: identity check timed out")

// # Collaborators

// Verifier asks the backend who a credential belongs to.
type Verifier interface {
	WhoAmI(ctx context.Context, credential Credential) (*Identity, error)
}

// Observer receives decision and latency measurements.
type Observer interface {
	ObserveDecision(area string, state State)
	ObserveIdentityCheck(area string, elapsed time.Duration)
}

// AuditSink receives every redirect decision.
type AuditSink interface {
	Record(ctx context.Context, outcome Outcome)
}

// Hooks bundles the optional side channels of the gate.
type Hooks struct {
	Observer Observer
	Audit    AuditSink
}

type noopObserver struct{}

func (noopObserver) ObserveDecision(string, State)              {}
func (noopObserver) ObserveIdentityCheck(string, time.Duration) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, Outcome) {}

// # Outcome

// Outcome is the terminal result of one navigation attempt.
type Outcome struct {
	Area     string
	Path     string
	State    State
	Decision Decision

	// Location is the redirect target; empty when allowed.
	Location string

	// Identity is set whenever verification succeeded.
	Identity *Identity

	// Verified reports whether the backend identity call was issued.
	Verified bool

	// Discarded reports a result dropped by the stale-response guard.
	Discarded bool
}

// Redirected reports whether the navigation ended in a redirect.
func (outcome Outcome) Redirected() bool {
	return outcome.State == StateRedirectedUnauth || outcome.State == StateRedirectedForbidden
}

// # Gate

// Gate evaluates navigations against a fixed set of areas.
type Gate struct {
	verifier Verifier
	timeout  time.Duration
	areas    []*Area
	observer Observer
	audit    AuditSink
}

// NewGate constructs a [Gate]. A zero timeout is not allowed; callers pass
// the configured identity timeout.
func NewGate(verifier Verifier, timeout time.Duration, hooks Hooks, areas ...*Area) *Gate {
	gate := &Gate{
		verifier: verifier,
		timeout:  timeout,
		areas:    areas,
		observer: hooks.Observer,
		audit:    hooks.Audit,
	}
	if gate.observer == nil {
		gate.observer = noopObserver{}
	}
	if gate.audit == nil {
		gate.audit = noopAudit{}
	}
	return gate
}

// Match returns the first area protecting the path.
func (gate *Gate) Match(path string) (*Area, bool) {
	path = CanonicalPath(path)
	for _, area := range gate.areas {
		if area.Protects(path) {
			return area, true
		}
	}
	return nil, false
}

// Area returns the area registered under name.
func (gate *Gate) Area(name string) (*Area, bool) {
	for _, area := range gate.areas {
		if area.Name == name {
			return area, true
		}
	}
	return nil, false
}

/*
Check runs one navigation through the gate.

Description: The path is cleaned first, so dot segments cannot walk out of
a public carve-out into a protected page. The only blocking step is the
identity call, which is bounded by the gate timeout. If ctx is cancelled while that call is in flight, the
result is discarded and [ErrNavigationAbandoned] is returned; no decision is
recorded. Every other failure is resolved into a redirect outcome, never an
error.

Parameters:
  - ctx: context.Context (the navigation's lifetime)
  - area: *Area
  - path: string
  - credential: Credential

Returns:
  - Outcome: Terminal navigation result
  - error: ErrNavigationAbandoned
*/
func (gate *Gate) Check(ctx context.Context, area *Area, path string, credential Credential) (Outcome, error) {
	path = CanonicalPath(path)
	navigation := NewNavigation()
	outcome := Outcome{Area: area.Name, Path: path}

	// 1. Unprotected paths and the login carve-out never pay for verification
	if !area.Protects(path) || area.IsPublic(path) {
		return gate.finish(ctx, area, navigation, outcome, Allowed, nil)
	}

	// 2. No credential, no identity call
	if !credential.Present() {
		return gate.finish(ctx, area, navigation, outcome, Unauthenticated, nil)
	}

	// 3. Ask the backend
	if err := navigation.Transition(StateChecking); err != nil {
		return outcome, err
	}
	outcome.Verified = true

	identity, verifyErr := gate.verify(ctx, area, credential)

	// 4. The caller left while we were waiting
	if ctx.Err() != nil {
		outcome.State = navigation.State()
		outcome.Discarded = true
		ctxutil.GetLogger(ctx).DebugContext(ctx, "gate_navigation_abandoned",
			slog.String("area", area.Name),
			slog.String("path", path),
		)
		return outcome, fmt.Errorf("%w: %v", ErrNavigationAbandoned, context.Cause(ctx))
	}

	if verifyErr != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "identity_check_failed",
			slog.String("area", area.Name),
			slog.String("credential", sec.Fingerprint(credential.Value)),
			slog.Any("error", verifyErr),
		)
	}

	// 5. Authorize
	return gate.finish(ctx, area, navigation, outcome, Resolve(identity, verifyErr, area.Roles), identity)
}

type verification struct {
	identity *Identity
	err      error
}

// verify bounds the identity call even when the verifier ignores ctx.
func (gate *Gate) verify(ctx context.Context, area *Area, credential Credential) (*Identity, error) {
	callCtx, cancel := context.WithTimeout(ctx, gate.timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		gate.observer.ObserveIdentityCheck(area.Name, time.Since(started))
	}()

	done := make(chan verification, 1)
	go func() {
		identity, err := gate.verifier.WhoAmI(callCtx, credential)
		done <- verification{identity: identity, err: err}
	}()

	select {
	case result := <-done:
		if result.err == nil && result.identity == nil {
			return nil, ErrMalformedIdentity
		}
		return result.identity, result.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrIdentityTimeout, gate.timeout)
		}
		return nil, callCtx.Err()
	}
}

func (gate *Gate) finish(ctx context.Context, area *Area, navigation *Navigation, outcome Outcome, decision Decision, identity *Identity) (Outcome, error) {
	next := settle(decision)
	if err := navigation.Transition(next); err != nil {
		return outcome, err
	}

	outcome.State = next
	outcome.Decision = decision
	outcome.Identity = identity

	switch next {
	case StateRedirectedUnauth:
		outcome.Location = area.LoginPath
	case StateRedirectedForbidden:
		outcome.Location = area.ForbiddenPath
	}

	gate.observer.ObserveDecision(area.Name, next)

	if outcome.Redirected() {
		ctxutil.GetLogger(ctx).InfoContext(ctx, "gate_redirect",
			slog.String("area", area.Name),
			slog.String("path", outcome.Path),
			slog.String("decision", decision.String()),
			slog.String("location", outcome.Location),
		)
		gate.audit.Record(ctx, outcome)
	}

	return outcome, nil
}
