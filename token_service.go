package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL is used when the config leaves it unset
	DefaultAccessTokenTTL = 30 * time.Minute
	// DefaultRefreshTokenTTL is used when the config leaves it unset
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption customizes the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the logger used to trace rejected tokens.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. Zero TTLs fall back
// to the package defaults.
func NewTokenService(signingKey []byte, accessTTL, refreshTTL time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	ts := &TokenServiceImpl{
		signingKey: signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// NewTokenServiceFromConfig builds the token service from Config getters
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetAccessTokenTTL(),
		cfg.GetRefreshTokenTTL(),
		opts...,
	)
}

// IssuePair signs a fresh access and refresh token for the subject
func (ts *TokenServiceImpl) IssuePair(subjectID, phone string) (*TokenPair, error) {
	if subjectID == "" {
		return nil, goerrors.New("token subject is required", goerrors.CategoryBadInput)
	}

	now := ts.now()

	access, err := ts.sign(subjectID, phone, TokenAccess, now, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.sign(subjectID, phone, TokenRefresh, now, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int(ts.accessTTL / time.Second),
		RefreshExpiresIn: int(ts.refreshTTL / time.Second),
	}, nil
}

// Verify checks signature, expiry and type tag. Any failure yields
// ErrInvalidCredential.
func (ts *TokenServiceImpl) Verify(tokenString string, expected TokenType) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, signingKeyFunc(signingMethod.Alg(), ts.signingKey),
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		ts.logger.Debug("token rejected: %v", err)
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Debug("token rejected: could not decode claims")
		return nil, ErrInvalidCredential
	}

	if !claims.IsType(expected) {
		ts.logger.Debug("token rejected: type %q, expected %q", claims.Type, expected)
		return nil, ErrInvalidCredential
	}

	return claims, nil
}

// Refresh exchanges a valid refresh token for a new pair with the same subject
func (ts *TokenServiceImpl) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := ts.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	if claims.Subject() == "" || claims.Phone == "" {
		ts.logger.Debug("refresh rejected: incomplete payload")
		return nil, ErrInvalidCredential
	}

	return ts.IssuePair(claims.Subject(), claims.Phone)
}

// AccessTTL returns the configured access token lifetime
func (ts *TokenServiceImpl) AccessTTL() time.Duration {
	return ts.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime
func (ts *TokenServiceImpl) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenServiceImpl) sign(subjectID, phone string, typ TokenType, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Phone: phone,
		Type:  typ,
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// signingKeyFunc refuses tokens whose alg header differs from alg
func signingKeyFunc(alg string, key []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		got, ok := token.Header["alg"].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing alg", alg)
		}
		if got != alg {
			return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: %q", alg, got)
		}
		return key, nil
	}
}
