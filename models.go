package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionStatus is the lifecycle state of an auth session
type SessionStatus = string

const (
	// SessionPending waits for the linked identity to decide
	SessionPending SessionStatus = "pending"
	// SessionApproved allows token issuance
	SessionApproved SessionStatus = "approved"
	// SessionRejected was declined by the linked identity
	SessionRejected SessionStatus = "rejected"
	// SessionExpired aged out before a decision
	SessionExpired SessionStatus = "expired"
)

// User is the user model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Phone           string     `bun:"phone_number,notnull,unique" json:"phone_number"`
	IdentityID      *int64     `bun:"telegram_id,nullzero" json:"telegram_id,omitempty"`
	IdentityHandle  string     `bun:"telegram_username" json:"telegram_username,omitempty"`
	CompletedQuests []string   `bun:"completed_quests,type:jsonb" json:"completed_quests"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasIdentity reports whether a chat identity has been linked to the user
func (u *User) HasIdentity() bool {
	return u != nil && u.IdentityID != nil && *u.IdentityID != 0
}

// AuthSession is a phone number's pending, approved, rejected or expired
// request for tokens. IdentityID records who approved it and is set
// independently of the user's linked identity.
type AuthSession struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:ases"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Phone         string        `bun:"phone_number,notnull" json:"phone_number"`
	IdentityID    *int64        `bun:"telegram_id,nullzero" json:"telegram_id,omitempty"`
	Status        SessionStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt     time.Time     `bun:"expires_at,notnull" json:"expires_at"`
	ApprovedAt    *time.Time    `bun:"approved_at,nullzero" json:"approved_at,omitempty"`
}

// IsPending reports whether the session still awaits a decision
func (s *AuthSession) IsPending() bool {
	return s != nil && s.Status == SessionPending
}

// IsApproved reports whether tokens may be issued for the session
func (s *AuthSession) IsApproved() bool {
	return s != nil && s.Status == SessionApproved
}

// IsTerminal reports whether the session reached a final state
func (s *AuthSession) IsTerminal() bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SessionApproved, SessionRejected, SessionExpired:
		return true
	}
	return false
}

// HasLapsed reports whether a pending session is past its expiry at now
func (s *AuthSession) HasLapsed(now time.Time) bool {
	return s.IsPending() && now.After(s.ExpiresAt)
}

// ExpiresIn returns the whole seconds left before expiry, never negative
func (s *AuthSession) ExpiresIn(now time.Time) int {
	if s == nil {
		return 0
	}
	left := s.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left.Round(time.Second) / time.Second)
}

// TokenPair is the credential pair handed to a client after approval
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresIn  int    `json:"access_expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}
