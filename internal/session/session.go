// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package session is the root-level session provider of the portal.

A portal session remembers the backend token issued at admin login together
with an advisory copy of the identity that was last verified for it. The
browser only holds a signed reference (the portal_session cookie); the
session itself lives in Redis.

# Invalidation

Sessions end in exactly three ways, each reported to the hooks registered
with [Provider.OnInvalidate]:

  - [ReasonLogout]: the user signed out.
  - [ReasonVerificationFailed]: the backend rejected the token.
  - [ReasonExpired]: the backend expiry passed.

The cached identity is never used to make a gating decision.
*/
package session

import (
	"context"
	"errors"
	"time"

	"github.com/psu-triup/portal/internal/access"
)

// ErrNotFound is returned by a [Store] for unknown or evicted sessions.
var ErrNotFound = errors.New("session: not found")

// Session is one signed-in admin browser.
type Session struct {
	ID        string           `json:"id"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      access.User      `json:"user"`
	Profile   access.Profile   `json:"profile"`
	Role      access.RoleBlock `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// Expired reports whether the session is past its expiry at now.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// Identity returns the cached identity. It is advisory only.
func (session *Session) Identity() *access.Identity {
	return &access.Identity{User: session.User, Profile: session.Profile, Role: session.Role}
}

// remember replaces the cached identity.
func (session *Session) remember(identity *access.Identity) {
	session.User = identity.User
	session.Profile = identity.Profile
	session.Role = identity.Role
}

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
