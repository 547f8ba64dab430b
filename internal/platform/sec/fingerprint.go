// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package sec provides cryptographic helpers shared by the gate and the audit trail.
//
// # Architecture
//
// Credentials handled by the portal belong to the backend. The portal never
// logs or stores them; when a log line or an audit row needs to refer to a
// credential it uses a [Fingerprint] instead.
package sec

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// fingerprintBytes keeps fingerprints short enough to read in logs.
const fingerprintBytes = 8

// Fingerprint returns a stable, non-reversible identifier for a credential.
// The empty credential has the empty fingerprint.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// GenerateSecureToken returns a URL-safe random token of n bytes of entropy.
func GenerateSecureToken(n int) (string, error) {
	buffer := make([]byte, n)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
