// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/session"
)

/*
TestCodec_RoundTrip verifies a signed cookie decodes to its session id.
*/
func TestCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	codec := session.NewCodec(testSecret, func() time.Time { return now })

	value, err := codec.Encode("sid-1", now.Add(time.Hour))
	require.NoError(t, err)

	id, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", id)
}

/*
TestCodec_Expired verifies an expired but genuine cookie still names its session.
*/
func TestCodec_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	codec := session.NewCodec(testSecret, clock)

	value, err := codec.Encode("sid-2", now.Add(time.Minute))
	require.NoError(t, err)

	now = now.Add(time.Minute)
	id, err := codec.Decode(value)
	assert.ErrorIs(t, err, session.ErrCookieExpired)
	assert.Equal(t, "sid-2", id)
}

/*
TestCodec_Rejects verifies forged, unsigned and foreign tokens.
*/
func TestCodec_Rejects(t *testing.T) {
	codec := session.NewCodec(testSecret, nil)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "triup-portal", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		SessionID:        "sid",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		SessionID:        "sid",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "triup-portal"},
		SessionID:        "sid",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for _, value := range []string{"", "garbage", unsigned, foreign, noExpiry} {
		id, err := codec.Decode(value)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, session.ErrCookieExpired)
		assert.Empty(t, id)
	}
}
