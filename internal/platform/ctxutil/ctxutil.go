// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/psu-triup/portal/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// WithClientIP returns a new context carrying the client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClientIP, ip)
}

// GetClientIP retrieves the client address, or an empty string.
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxkey.KeyClientIP).(string)
	return ip
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity

// WithUsernameSlot attaches an empty, writable username slot to the context.
//
// The request logger installs the slot before the gate runs so that the
// username verified further down the chain shows up in the final log line.
func WithUsernameSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUsername, new(atomic.Value))
}

// SetUsername records the verified username in the slot, if one exists.
func SetUsername(ctx context.Context, username string) {
	if slot, ok := ctx.Value(ctxkey.KeyUsername).(*atomic.Value); ok {
		slot.Store(username)
	}
}

// GetUsername returns the verified username, or an empty string.
func GetUsername(ctx context.Context) string {
	slot, ok := ctx.Value(ctxkey.KeyUsername).(*atomic.Value)
	if !ok {
		return ""
	}
	username, _ := slot.Load().(string)
	return username
}
