// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// It is used to store and retrieve per-request values (verified identity, portal
// session, request ID, logger). Using a private, unexported type for keys prevents
// collisions with third-party packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyUsername is the context key for the verified username used in request logs.
	KeyUsername key = "username"

	// KeyClientIP is the context key for the resolved client address.
	KeyClientIP key = "client_ip"

	// KeyGateOutcome is the context key for the access decision made at the edge.
	KeyGateOutcome key = "gate_outcome"

	// KeySession is the context key for the loaded portal session.
	KeySession key = "session"
)
