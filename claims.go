package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType tags a JWT as an access or a refresh credential
type TokenType = string

const (
	// TokenAccess authorizes API calls
	TokenAccess TokenType = "access"
	// TokenRefresh can only be exchanged for a new pair
	TokenRefresh TokenType = "refresh"
)

// TokenClaims is the payload of every token we sign. On the wire it is
// {sub, phone, type, iat, exp} plus a random jti.
type TokenClaims struct {
	jwt.RegisteredClaims
	Phone string    `json:"phone"`
	Type  TokenType `json:"type"`
}

// Subject returns the subject claim, the user id
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// IsType reports whether the token carries the given type tag
func (c *TokenClaims) IsType(t TokenType) bool {
	return c != nil && c.Type == t
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
