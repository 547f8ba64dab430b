// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/psu-triup/portal/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Cancelled requests are not server faults
	if errors.Is(err, context.Canceled) {
		return err
	}

	// 3. The audit table is missing until migrations have run
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == "42P01" {
		return apperr.ServiceUnavailable("Access audit is not initialised")
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
