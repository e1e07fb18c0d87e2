package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-phone-auth"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "session not found", err: auth.ErrSessionNotFound, want: http.StatusNotFound},
		{name: "user not found", err: auth.ErrUserNotFound, want: http.StatusNotFound},
		{name: "not approved", err: auth.ErrSessionNotApproved, want: http.StatusForbidden},
		{name: "not actionable", err: auth.ErrSessionNotActionable, want: http.StatusForbidden},
		{name: "expired", err: auth.ErrSessionExpired, want: http.StatusForbidden},
		{name: "invalid credential", err: auth.ErrInvalidCredential, want: http.StatusUnauthorized},
		{name: "invalid phone", err: auth.ErrInvalidPhone, want: http.StatusBadRequest},
		{name: "token issuance", err: auth.ErrTokenIssuance, want: http.StatusInternalServerError},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", auth.ErrSessionNotFound), want: http.StatusNotFound},
		{name: "bad input category", err: goerrors.New("bad body", goerrors.CategoryBadInput), want: http.StatusBadRequest},
		{name: "validation category", err: goerrors.New("bad field", goerrors.CategoryValidation), want: http.StatusBadRequest},
		{name: "internal category", err: goerrors.New("db down", goerrors.CategoryInternal), want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.HTTPStatus(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, auth.IsNotFound(auth.ErrSessionNotFound))
	assert.True(t, auth.IsNotFound(auth.ErrUserNotFound))
	assert.False(t, auth.IsNotFound(auth.ErrSessionExpired))

	assert.True(t, auth.IsInvalidState(auth.ErrSessionNotApproved))
	assert.True(t, auth.IsInvalidState(auth.ErrSessionNotActionable))
	assert.True(t, auth.IsInvalidState(auth.ErrSessionExpired))
	assert.False(t, auth.IsInvalidState(auth.ErrSessionNotFound))

	assert.True(t, auth.IsInvalidCredential(auth.ErrInvalidCredential))
	assert.False(t, auth.IsInvalidCredential(errors.New("invalid credential")))
}

func TestSentinelErrorsCarryCodes(t *testing.T) {
	assert.Equal(t, goerrors.CategoryNotFound, auth.ErrSessionNotFound.Category)
	assert.Equal(t, goerrors.CodeNotFound, auth.ErrSessionNotFound.Code)
	assert.Equal(t, "AUTH_SESSION_NOT_FOUND", auth.ErrSessionNotFound.TextCode)

	assert.Equal(t, goerrors.CategoryConflict, auth.ErrSessionNotApproved.Category)
	assert.Equal(t, goerrors.CodeForbidden, auth.ErrSessionNotApproved.Code)

	assert.Equal(t, goerrors.CategoryAuth, auth.ErrInvalidCredential.Category)
	assert.Equal(t, goerrors.CodeUnauthorized, auth.ErrInvalidCredential.Code)

	assert.Equal(t, goerrors.CategoryBadInput, auth.ErrInvalidPhone.Category)
	assert.Equal(t, goerrors.CodeBadRequest, auth.ErrInvalidPhone.Code)
}
