package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetDefaultRegion() string
}

// TokenService signs and verifies the access/refresh bearer tokens
type TokenService interface {
	IssuePair(subjectID, phone string) (*TokenPair, error)
	Verify(token string, expected TokenType) (*TokenClaims, error)
	Refresh(refreshToken string) (*TokenPair, error)
}

// SessionStore persists auth sessions. UpdateStatus is a per-row
// conditional write: it only applies when the stored status equals from.
type SessionStore interface {
	Create(ctx context.Context, session *AuthSession) (*AuthSession, error)
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	LatestPendingByPhone(ctx context.Context, phone string) (*AuthSession, error)
	ExpirePendingByPhone(ctx context.Context, phone string) (int, error)
	UpdateStatus(ctx context.Context, id string, from SessionStatus, record *AuthSession) (*AuthSession, error)
}

// OpenedSession is the outcome of SessionOpener.OpenSession
type OpenedSession struct {
	User    *User
	Session *AuthSession
	// Expired counts the older pending sessions closed for the phone
	Expired int
}

// SessionOpener stores a new pending session for phone. The user is
// resolved, older pending sessions are expired and session is inserted
// as one unit: when any step fails none of them is kept.
type SessionOpener interface {
	OpenSession(ctx context.Context, phone string, session *AuthSession) (*OpenedSession, error)
}

// UserDirectory resolves users by phone number or linked chat identity
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetByIdentityID(ctx context.Context, identityID int64) (*User, error)
	GetOrCreate(ctx context.Context, phone string) (*User, error)
	UpdateIdentityLink(ctx context.Context, phone string, identityID int64, handle string) (*User, error)
}

// Notifier tells a linked chat identity that a session awaits its decision.
// Delivery is best-effort.
type Notifier interface {
	NotifyApprovalRequested(ctx context.Context, identityID int64, sessionID string) (bool, error)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, identityID int64, sessionID string) (bool, error)

// NotifyApprovalRequested implements Notifier.
func (f NotifierFunc) NotifyApprovalRequested(ctx context.Context, identityID int64, sessionID string) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, identityID, sessionID)
}

type noopNotifier struct{}

func (noopNotifier) NotifyApprovalRequested(context.Context, int64, string) (bool, error) {
	return false, nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// DefaultLogger returns the stdout logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
