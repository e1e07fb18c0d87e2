package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// LocalsClaimsKey is the router Locals key holding verified access claims
const LocalsClaimsKey = "auth_claims"

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the TokenClaims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the TokenClaims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok && raw != nil
}

// GetRouterClaims extracts the TokenClaims stored by BearerGuard, falling
// back to the request context.
func GetRouterClaims(ctx router.Context) (*TokenClaims, bool) {
	if claims, ok := ctx.Locals(LocalsClaimsKey).(*TokenClaims); ok && claims != nil {
		return claims, true
	}
	return GetClaims(ctx.Context())
}
