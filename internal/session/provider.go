// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/ctxkey"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
	"github.com/psu-triup/portal/internal/platform/sec"
)

// Reason explains why a session ended.
type Reason string

const (
	ReasonLogout             Reason = "logout"
	ReasonVerificationFailed Reason = "verification_failed"
	ReasonExpired            Reason = "expired"
)

// InvalidateHook is called after a session has been removed.
type InvalidateHook func(ctx context.Context, session *Session, reason Reason)

// sessionIDBytes is the entropy of a session id.
const sessionIDBytes = 32

// # Provider

// Provider owns the lifecycle of portal sessions.
//
// It implements [access.Source] and [access.IdentityCache], so the render
// adapter reads its credential from the session and keeps the cached
// identity fresh.
type Provider struct {
	store  Store
	codec  *Codec
	secure bool
	now    func() time.Time

	mu    sync.RWMutex
	hooks []InvalidateHook
}

// NewProvider constructs a [Provider]. A nil clock uses [time.Now].
func NewProvider(store Store, secret string, secure bool, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{
		store:  store,
		codec:  NewCodec(secret, now),
		secure: secure,
		now:    now,
	}
}

// OnInvalidate registers a hook run after every invalidation.
func (provider *Provider) OnInvalidate(hook InvalidateHook) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.hooks = append(provider.hooks, hook)
}

// # Request Context

func withSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, session)
}

// From returns the live session of the request, or nil.
func From(ctx context.Context) *Session {
	session, _ := ctx.Value(ctxkey.KeySession).(*Session)
	return session
}

// # Middleware

/*
Middleware loads the portal session referenced by the request cookie.

Description: A cookie that fails verification or points at an unknown
session is cleared. An expired session is invalidated with [ReasonExpired].
Store failures leave the request without a session.
*/
func (provider *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		cookie, err := request.Cookie(constants.PortalSessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(writer, request)
			return
		}

		ctx := request.Context()
		logger := ctxutil.GetLogger(ctx)

		// 1. Verify the signature
		sessionID, err := provider.codec.Decode(cookie.Value)
		if errors.Is(err, ErrCookieExpired) {
			if expired, findErr := provider.store.Find(ctx, sessionID); findErr == nil {
				_ = provider.Invalidate(ctx, expired, ReasonExpired)
			}
			provider.clearCookie(writer)
			next.ServeHTTP(writer, request)
			return
		}
		if err != nil {
			logger.DebugContext(ctx, "session_cookie_rejected", slog.Any("error", err))
			provider.clearCookie(writer)
			next.ServeHTTP(writer, request)
			return
		}

		// 2. Load the session
		session, err := provider.store.Find(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				provider.clearCookie(writer)
			} else {
				logger.WarnContext(ctx, "session_load_failed", slog.Any("error", err))
			}
			next.ServeHTTP(writer, request)
			return
		}

		// 3. Enforce expiry
		if session.Expired(provider.now()) {
			_ = provider.Invalidate(ctx, session, ReasonExpired)
			provider.clearCookie(writer)
			next.ServeHTTP(writer, request)
			return
		}

		next.ServeHTTP(writer, request.WithContext(withSession(ctx, session)))
	})
}

// # Lifecycle

/*
Start opens a session for a backend token and sets the portal cookie.

Parameters:
  - ctx: context.Context
  - writer: http.ResponseWriter
  - token: string (backend session token)
  - expiresAt: time.Time (backend expiry)
  - identity: *access.Identity (optional advisory identity)

Returns:
  - *Session
  - error: Expired token or storage failures
*/
func (provider *Provider) Start(ctx context.Context, writer http.ResponseWriter, token string, expiresAt time.Time, identity *access.Identity) (*Session, error) {
	now := provider.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil, fmt.Errorf("session: token already expired at %s", expiresAt.Format(time.RFC3339))
	}

	id, err := sec.GenerateSecureToken(sessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("session: failed to generate id: %w", err)
	}

	session := &Session{ID: id, Token: token, ExpiresAt: expiresAt, CreatedAt: now}
	if identity != nil {
		session.remember(identity)
	}

	if err := provider.store.Save(ctx, session, ttl); err != nil {
		return nil, err
	}

	value, err := provider.codec.Encode(id, expiresAt)
	if err != nil {
		_ = provider.store.Delete(ctx, id)
		return nil, err
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.PortalSessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   provider.secure,
		SameSite: http.SameSiteLaxMode,
	})

	ctxutil.GetLogger(ctx).InfoContext(ctx, "session_started",
		slog.String("session", sec.Fingerprint(id)),
		slog.Time("expires_at", expiresAt),
	)

	return session, nil
}

// Invalidate removes the session and runs the registered hooks.
func (provider *Provider) Invalidate(ctx context.Context, session *Session, reason Reason) error {
	if session == nil {
		return nil
	}

	err := provider.store.Delete(ctx, session.ID)

	ctxutil.GetLogger(ctx).InfoContext(ctx, "session_invalidated",
		slog.String("session", sec.Fingerprint(session.ID)),
		slog.String("reason", string(reason)),
	)

	provider.mu.RLock()
	hooks := append([]InvalidateHook(nil), provider.hooks...)
	provider.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, session, reason)
	}

	return err
}

// End invalidates the request's session, if any, and clears the cookie.
func (provider *Provider) End(ctx context.Context, writer http.ResponseWriter, reason Reason) error {
	provider.clearCookie(writer)
	return provider.Invalidate(ctx, From(ctx), reason)
}

// # Access Integration

// Credential implements [access.Source].
//
// A live session supplies its backend token; otherwise the area cookie is read.
func (provider *Provider) Credential(request *http.Request, area *access.Area) access.Credential {
	if session := From(request.Context()); session != nil && area.Scheme == access.SchemeBearer {
		return area.Credential(session.Token)
	}
	return access.CookieSource{}.Credential(request, area)
}

// Remember implements [access.IdentityCache] by refreshing the cached identity.
func (provider *Provider) Remember(ctx context.Context, identity *access.Identity) {
	session := From(ctx)
	if session == nil || identity == nil {
		return
	}

	session.remember(identity)

	ttl := session.ExpiresAt.Sub(provider.now())
	if err := provider.store.Save(ctx, session, ttl); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_remember_failed", slog.Any("error", err))
	}
}

// Forget implements [access.IdentityCache]; a rejected credential ends the session.
func (provider *Provider) Forget(ctx context.Context) {
	_ = provider.Invalidate(ctx, From(ctx), ReasonVerificationFailed)
}

func (provider *Provider) clearCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.PortalSessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   provider.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
