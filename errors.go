package auth

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeSessionNotFound      = "AUTH_SESSION_NOT_FOUND"
	textCodeUserNotFound         = "USER_NOT_FOUND"
	textCodeSessionNotApproved   = "AUTH_SESSION_NOT_APPROVED"
	textCodeSessionNotActionable = "AUTH_SESSION_NOT_ACTIONABLE"
	textCodeSessionExpired       = "AUTH_SESSION_EXPIRED"
	textCodeInvalidCredential    = "INVALID_CREDENTIAL"
	textCodeInvalidPhone         = "INVALID_PHONE_NUMBER"
	textCodeTokenIssuance        = "TOKEN_ISSUANCE_FAILED"
	textCodeIdentityMismatch     = "IDENTITY_MISMATCH"
)

// ErrSessionNotFound is returned when no auth session matches the id
var ErrSessionNotFound = goerrors.New("auth session not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFound is returned when no user matches the lookup
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSessionNotApproved is returned when tokens are requested for a session
// that has not reached the approved state.
var ErrSessionNotApproved = goerrors.New("auth session not approved", goerrors.CategoryConflict).
	WithTextCode(textCodeSessionNotApproved).
	WithCode(goerrors.CodeForbidden)

// ErrSessionNotActionable is returned when approve/reject targets a session
// that already left the pending state.
var ErrSessionNotActionable = goerrors.New("auth session is not pending", goerrors.CategoryConflict).
	WithTextCode(textCodeSessionNotActionable).
	WithCode(goerrors.CodeForbidden)

// ErrSessionExpired is returned when approval arrives after expires_at
var ErrSessionExpired = goerrors.New("auth session expired", goerrors.CategoryConflict).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidCredential is the only error surfaced for bad bearer tokens.
// Signature, expiry and type failures all collapse into it.
var ErrInvalidCredential = goerrors.New("invalid credential", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidPhone is returned when a phone number can not be normalized
var ErrInvalidPhone = goerrors.New("invalid phone number", goerrors.CategoryBadInput).
	WithTextCode(textCodeInvalidPhone).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenIssuance is returned when an approved session can not be turned
// into a token pair, e.g. because its user row is gone.
var ErrTokenIssuance = goerrors.New("failed to generate tokens", goerrors.CategoryInternal).
	WithTextCode(textCodeTokenIssuance).
	WithCode(goerrors.CodeInternal)

// ErrIdentityMismatch is returned when a chat identity acts on a session
// for a phone number it is not linked to.
var ErrIdentityMismatch = goerrors.New("identity is not linked to this phone number", goerrors.CategoryAuth).
	WithTextCode(textCodeIdentityMismatch).
	WithCode(goerrors.CodeForbidden)

// IsNotFound reports whether err is a missing session or user
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrUserNotFound)
}

// IsInvalidState reports whether err means the session is in the wrong state
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrSessionNotApproved) ||
		errors.Is(err, ErrSessionNotActionable) ||
		errors.Is(err, ErrSessionExpired)
}

// IsInvalidCredential reports whether err is a rejected bearer token
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}

// HTTPStatus maps an error returned by this package to a status code
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidState(err):
		return http.StatusForbidden
	case IsInvalidCredential(err):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidPhone):
		return http.StatusBadRequest
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return http.StatusBadRequest
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		case goerrors.CategoryAuth:
			return http.StatusUnauthorized
		}
	}

	return http.StatusInternalServerError
}

func upstreamError(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category != goerrors.CategoryInternal {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
