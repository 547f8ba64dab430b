// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/platform/sec"
)

func TestFingerprint(t *testing.T) {
	a := sec.Fingerprint("token-a")

	assert.Len(t, a, 16)
	assert.Equal(t, a, sec.Fingerprint("token-a"))
	assert.NotEqual(t, a, sec.Fingerprint("token-b"))
	assert.NotContains(t, a, "token")
	assert.Empty(t, sec.Fingerprint(""))
}

func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
}
