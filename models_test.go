package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/stretchr/testify/assert"
)

func TestAuthSessionHasLapsed(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &auth.AuthSession{Status: auth.SessionPending, ExpiresAt: now}

	assert.False(t, session.HasLapsed(now.Add(-time.Second)))
	assert.False(t, session.HasLapsed(now), "the deadline itself is still valid")
	assert.True(t, session.HasLapsed(now.Add(time.Second)))

	session.Status = auth.SessionApproved
	assert.False(t, session.HasLapsed(now.Add(time.Hour)), "only pending sessions lapse")
}

func TestAuthSessionExpiresIn(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &auth.AuthSession{Status: auth.SessionPending, ExpiresAt: now.Add(300 * time.Second)}

	assert.Equal(t, 300, session.ExpiresIn(now))
	assert.Equal(t, 1, session.ExpiresIn(now.Add(299*time.Second)))
	assert.Zero(t, session.ExpiresIn(now.Add(300*time.Second)))
	assert.Zero(t, session.ExpiresIn(now.Add(time.Hour)), "never negative")

	var missing *auth.AuthSession
	assert.Zero(t, missing.ExpiresIn(now))
}

func TestAuthSessionStates(t *testing.T) {
	tests := []struct {
		status   auth.SessionStatus
		pending  bool
		approved bool
		terminal bool
	}{
		{status: auth.SessionPending, pending: true},
		{status: auth.SessionApproved, approved: true, terminal: true},
		{status: auth.SessionRejected, terminal: true},
		{status: auth.SessionExpired, terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			session := &auth.AuthSession{Status: tt.status}
			assert.Equal(t, tt.pending, session.IsPending())
			assert.Equal(t, tt.approved, session.IsApproved())
			assert.Equal(t, tt.terminal, session.IsTerminal())
		})
	}

	var missing *auth.AuthSession
	assert.False(t, missing.IsPending())
	assert.False(t, missing.IsTerminal())
}

func TestUserHasIdentity(t *testing.T) {
	zero := int64(0)
	linked := int64(42)

	assert.False(t, (&auth.User{}).HasIdentity())
	assert.False(t, (&auth.User{IdentityID: &zero}).HasIdentity())
	assert.True(t, (&auth.User{IdentityID: &linked}).HasIdentity())

	var missing *auth.User
	assert.False(t, missing.HasIdentity())
}
