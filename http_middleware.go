package auth

import (
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

const (
	// DefaultTokenLookup reads bearer credentials from the Authorization header
	DefaultTokenLookup = "header:" + router.HeaderAuthorization
	// DefaultAuthScheme is the scheme expected in the Authorization header
	DefaultAuthScheme = "Bearer"

	headerWWWAuthenticate = "WWW-Authenticate"
)

// ErrTokenMissingOrMalformed is returned by extractors that find no token
var ErrTokenMissingOrMalformed = errors.New("missing or malformed token")

// TokenExtractor pulls a raw token out of a request
type TokenExtractor func(ctx router.Context) (string, error)

// BearerConfig configures BearerGuard
type BearerConfig struct {
	// TokenLookup is a comma separated list of source:name pairs,
	// e.g. "header:Authorization,query:access_token".
	TokenLookup  string
	AuthScheme   string
	ContextKey   string
	ErrorHandler router.ErrorHandler
}

func getBearerConfig(config ...BearerConfig) (cfg BearerConfig) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = DefaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = LocalsClaimsKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			return writeError(ctx, ErrInvalidCredential)
		}
	}

	return cfg
}

// BearerGuard rejects requests without a valid access token. Verified
// claims are stored under the configured Locals key and in the request
// context.
func BearerGuard(tokens TokenService, config ...BearerConfig) router.MiddlewareFunc {
	if tokens == nil {
		panic("AUTH: bearer guard configuration: TokenService is required.")
	}

	cfg := getBearerConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := ExtractToken(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := tokens.Verify(raw, TokenAccess)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

// ExtractToken returns the first token any extractor finds
func ExtractToken(ctx router.Context, extractors []TokenExtractor) (string, error) {
	err := ErrTokenMissingOrMalformed
	for _, extractor := range extractors {
		var raw string
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", err
}

// GetExtractors parses a lookup such as "header:Authorization,query:token".
// Unknown sources are ignored.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := DefaultAuthScheme
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, tokenFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(name))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(name))
		}
	}

	return extractors
}

// tokenFromHeader matches the scheme case-insensitively
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		a := ctx.Header(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrTokenMissingOrMalformed
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
