package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(secret string, ttl time.Duration, now time.Time) *Signer {
	s := NewSigner(secret, ttl)
	s.now = func() time.Time { return now }
	return s
}

func TestSignerRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Hour, now)

	token, grant, err := signer.Sign("job.with.dots", "exports/complaints-20240501.csv")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), grant.ExpiresAt)

	got, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job.with.dots", got.Subject)
	assert.Equal(t, "exports/complaints-20240501.csv", got.Path)
	assert.True(t, got.ExpiresAt.Equal(grant.ExpiresAt))
}

func TestSignerExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Minute, now)
	token, _, err := signer.Sign("job-1", "exports/a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(time.Minute) }
	_, err = signer.Verify(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	grant, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "exports/a.csv", grant.Path)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "exports/a.csv")
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).Verify(token, false)
	assert.ErrorIs(t, err, ErrBadSignature)

	forged := strings.Replace(token, encodeSegment("exports/a.csv"), encodeSegment("exports/b.csv"), 1)
	_, err = signer.Verify(forged, false)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = signer.Verify("garbage", false)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSigner("", time.Hour).Sign("job-1", "exports/a.csv")
	assert.ErrorIs(t, err, ErrSignerUnconfigured)

	_, _, err = NewSigner("secret", time.Hour).Sign("", "exports/a.csv")
	assert.Error(t, err)
}
