package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrJWTMissing is returned by extractors when the request carries no
	// usable bearer token.
	ErrJWTMissing = errors.New("missing or malformed JWT")
	// ErrIdentityUnavailable is returned by loaders when the token subject no
	// longer maps to an active account.
	ErrIdentityUnavailable = errors.New("identity unavailable")
)

// TokenValidator interface for validating tokens without import cycles
// This mirrors the TokenService.Validate method from the auth package
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// AuthClaims interface for structured claims without import cycles
// This mirrors the AuthClaims interface from the auth package
type AuthClaims interface {
	Subject() string
}

// IdentityLoader resolves the principal named by validated claims. It runs on
// every authenticated request so role and status are always current.
type IdentityLoader func(ctx context.Context, claims AuthClaims) (any, error)

// ValidationListener is invoked after a request was authenticated, or with a
// non nil error when a presented token was rejected.
type ValidationListener func(c *fiber.Ctx, claims AuthClaims, err error)

// Logger is the subset of the auth logger the middleware writes to
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool

	// PublicPaths are ant style patterns (/api/v1/auth/**) that bypass the
	// middleware before any token extraction
	PublicPaths []string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// IdentityLoader is required, it reloads the principal by subject
	IdentityLoader IdentityLoader

	// ContextKey is the fiber Locals key the identity is stored under
	ContextKey string

	// AuthScheme is matched exactly, including case, followed by a space
	AuthScheme string

	// ContextEnricher is an optional function to propagate the identity to
	// the request user context.
	ContextEnricher func(c context.Context, identity any) context.Context

	// ValidationListeners observe validation outcomes, e.g. for metrics
	ValidationListeners []ValidationListener

	// ErrorKind labels validation failures in log entries
	ErrorKind func(error) string

	Logger Logger

	matcher *PathMatcher
}

// New returns a fiber handler that authenticates requests carrying a bearer
// token. It never rejects a request itself: unauthenticated requests
// continue anonymous and authorization decides later.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		if cfg.matcher.Match(c.Path()) {
			return c.Next()
		}

		raw, err := jwtFromHeader(fiber.HeaderAuthorization, cfg.AuthScheme)(c)
		if err != nil {
			return c.Next()
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			cfg.Logger.Warn("bearer token rejected",
				"kind", cfg.ErrorKind(err),
				"path", c.Path(),
				"error", err,
			)
			cfg.notify(c, nil, err)
			return c.Next()
		}

		identity, err := cfg.IdentityLoader(c.UserContext(), claims)
		if err != nil || identity == nil {
			if err == nil {
				err = ErrIdentityUnavailable
			}
			cfg.Logger.Warn("bearer token subject could not be loaded",
				"subject", claims.Subject(),
				"path", c.Path(),
				"error", err,
			)
			cfg.notify(c, claims, err)
			return c.Next()
		}

		c.Locals(cfg.ContextKey, identity)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), identity))
		}

		cfg.notify(c, claims, nil)
		return c.Next()
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.IdentityLoader == nil {
		panic("AUTH: JWT middleware configuration: IdentityLoader is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "identity"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorKind == nil {
		cfg.ErrorKind = func(err error) string { return err.Error() }
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	matcher, err := NewPathMatcher(cfg.PublicPaths...)
	if err != nil {
		panic("AUTH: JWT middleware configuration: invalid public path: " + err.Error())
	}
	cfg.matcher = matcher

	return cfg
}

func (cfg *Config) notify(c *fiber.Ctx, claims AuthClaims, err error) {
	for _, listener := range cfg.ValidationListeners {
		if listener != nil {
			listener(c, claims, err)
		}
	}
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request
// header. The value must start with the scheme and a single space.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	prefix := authScheme + " "
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		if !strings.HasPrefix(a, prefix) {
			return "", ErrJWTMissing
		}
		token := strings.TrimSpace(a[len(prefix):])
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
