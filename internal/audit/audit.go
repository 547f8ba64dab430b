// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package audit keeps a trail of the access gate's redirect decisions.

Entries are queued by a [Recorder] during the request and written to
PostgreSQL in batches by its [Recorder.Run] loop, so a slow database never
delays navigation. When the queue is full the entry is dropped and counted.
*/
package audit

import (
	"context"
	"time"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
	"github.com/psu-triup/portal/pkg/uuidv7"
)

// Entry is one audited gate decision.
type Entry struct {
	ID        string        `json:"id"`
	Area      string        `json:"area"`
	Path      string        `json:"path"`
	Outcome   string        `json:"outcome"`
	Location  string        `json:"location,omitempty"`
	Username  string        `json:"username,omitempty"`
	RoleID    access.RoleID `json:"role_id,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewEntry builds an entry from a gate outcome and the request context.
//
// Username and role are filled only when the backend vouched for an identity,
// which is the case for forbidden redirects.
func NewEntry(ctx context.Context, outcome access.Outcome, now time.Time) Entry {
	entry := Entry{
		ID:        uuidv7.New(),
		Area:      outcome.Area,
		Path:      outcome.Path,
		Outcome:   outcome.State.String(),
		Location:  outcome.Location,
		RequestID: ctxutil.GetRequestID(ctx),
		IPAddress: ctxutil.GetClientIP(ctx),
		CreatedAt: now.UTC(),
	}

	if outcome.Identity != nil {
		entry.Username = outcome.Identity.Username()
		entry.RoleID = outcome.Identity.RoleID()
	}

	return entry
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entries []Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)
}
