// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/psu-triup/portal/internal/platform/constants"
)

// ErrCookieExpired is returned for a genuine cookie past its expiry.
var ErrCookieExpired = errors.New("session: cookie expired")

// Claims is the payload of the portal_session cookie.
//
// Only the session id travels to the browser; the backend token stays in Redis.
type Claims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sid"`
}

// Codec signs and verifies session cookies with HS256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec for the given secret.
func NewCodec(secret string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), now: now}
}

// Encode produces the signed cookie value for a session.
func (codec *Codec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.AppName,
			IssuedAt:  jwt.NewNumericDate(codec.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("session: failed to sign cookie: %w", err)
	}

	return signed, nil
}

// Decode verifies the cookie value and returns the session id.
//
// A correctly signed cookie past its expiry still yields the session id,
// together with [ErrCookieExpired], so the session can be invalidated.
func (codec *Codec) Decode(value string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		return codec.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", fmt.Errorf("session: invalid cookie: %w", err)
	}

	if !token.Valid || claims.Issuer != constants.AppName || claims.SessionID == "" || claims.ExpiresAt == nil {
		return "", fmt.Errorf("session: invalid cookie claims")
	}

	if !codec.now().Before(claims.ExpiresAt.Time) {
		return claims.SessionID, ErrCookieExpired
	}

	return claims.SessionID, nil
}
