package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Active(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)

	assert.True(t, (&Session{ExpiresAt: now.Add(time.Hour)}).Active(now))
	assert.False(t, (&Session{ExpiresAt: now}).Active(now), "expiry is exclusive")
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).Active(now))
	var nilSession *Session
	assert.False(t, nilSession.Active(now))
}
