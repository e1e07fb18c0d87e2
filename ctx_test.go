package auth_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-phone-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClaims(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantSub  string
		wantOK   bool
	}{
		{
			name: "should return claims when present in context",
			setupCtx: func() context.Context {
				claims := &auth.TokenClaims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
					Phone:            "+79991234567",
					Type:             auth.TokenAccess,
				}
				return auth.WithClaimsContext(context.Background(), claims)
			},
			wantSub: "user123",
			wantOK:  true,
		},
		{
			name: "should return false when no claims in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
		},
		{
			name: "should return false for nil claims",
			setupCtx: func() context.Context {
				return auth.WithClaimsContext(context.Background(), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := auth.GetClaims(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSub, claims.Subject())
			}
		})
	}
}

func TestGetRouterClaims(t *testing.T) {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})
	r := srv.Router()

	r.Get("/with", func(ctx router.Context) error {
		ctx.Locals(auth.LocalsClaimsKey, &auth.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
		})
		claims, ok := auth.GetRouterClaims(ctx)
		if !ok {
			return ctx.SendString("missing")
		}
		return ctx.SendString(claims.Subject())
	})

	r.Get("/from-context", func(ctx router.Context) error {
		ctx.SetContext(auth.WithClaimsContext(ctx.Context(), &auth.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user456"},
		}))
		claims, ok := auth.GetRouterClaims(ctx)
		if !ok {
			return ctx.SendString("missing")
		}
		return ctx.SendString(claims.Subject())
	})

	r.Get("/without", func(ctx router.Context) error {
		if _, ok := auth.GetRouterClaims(ctx); ok {
			return ctx.SendString("found")
		}
		return ctx.SendString("missing")
	})

	r.Get("/wrong-type", func(ctx router.Context) error {
		ctx.Locals(auth.LocalsClaimsKey, "user123")
		if _, ok := auth.GetRouterClaims(ctx); ok {
			return ctx.SendString("found")
		}
		return ctx.SendString("missing")
	})

	require.NotNil(t, app)

	tests := map[string]string{
		"/with":         "user123",
		"/from-context": "user456",
		"/without":      "missing",
		"/wrong-type":   "missing",
	}

	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, want, string(raw))
		})
	}
}
