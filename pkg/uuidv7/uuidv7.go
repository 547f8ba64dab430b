// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// Request ids and access audit rows use it, so ids sort in the order the
// navigations happened and the audit table index stays append-only.
package uuidv7

import (
	"time"

	"github.com/google/uuid"
)

// New generates a new UUIDv7 string.
//
// It panics only if the OS random source is unavailable.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// Time returns the creation time embedded in a UUIDv7 string.
func Time(id string) (time.Time, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.Version() != 7 {
		return time.Time{}, false
	}

	sec, nsec := parsed.Time().UnixTime()
	return time.Unix(sec, nsec), true
}
