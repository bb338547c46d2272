package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrial/go-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// DefaultPublicPaths are reachable without authentication. The auth
// endpoints are listed one by one so logout keeps requiring a token.
var DefaultPublicPaths = []string{
	"/api/v1/auth/register",
	"/api/v1/auth/verify-otp",
	"/api/v1/auth/resend-otp",
	"/api/v1/auth/login",
	"/v3/api-docs/**",
	"/swagger-ui/**",
	"/swagger-resources/**",
	"/webjars/**",
	"/api/v1/universities/public/**",
	"/api/v1/trial-programs/public/**",
	"/api/v1/university-events/public/**",
	"/api/v1/university-student-life-images/public/**",
	"/api/v1/documents/public/**",
	"/api/v1/admission-scores/public/**",
	"/api/v1/chapters/public/**",
	"/api/v1/lessons/public/**",
	"/api/v1/consultations/**",
	"/api/v1/faculties/**",
	"/healthz",
	"/metrics",
}

// ContextEnricherAdapter stores the identity in the standard context for
// downstream guard usage.
func ContextEnricherAdapter(c context.Context, identity any) context.Context {
	id, ok := identity.(*IdentityContext)
	if !ok {
		return c
	}
	return WithIdentity(c, id)
}

// NewIdentityLoader reloads the account named by the token subject. Missing
// and disabled accounts yield no identity.
func NewIdentityLoader(store AccountFinder) jwtware.IdentityLoader {
	return func(ctx context.Context, claims jwtware.AuthClaims) (any, error) {
		account, err := store.FindByEmail(ctx, claims.Subject())
		if err != nil {
			return nil, err
		}
		if !account.Enabled {
			return nil, newError(CodeAccountDisabled, "email", account.Email)
		}
		return NewIdentityContext(account), nil
	}
}

// TokenValidatorAdapter exposes an auth TokenValidator to jwtware
func TokenValidatorAdapter(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(raw)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// MetricsValidationListener counts validation outcomes
func MetricsValidationListener(m *Metrics) ValidationListener {
	return func(_ *fiber.Ctx, _ jwtware.AuthClaims, err error) {
		m.ObserveTokenValidation(err)
	}
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// RequestAuthenticationConfig wires the token validator and identity loader
// into a middleware configuration.
func RequestAuthenticationConfig(cfg Config, validator TokenValidator, store AccountFinder, logger Logger) jwtware.Config {
	publicPaths := cfg.GetPublicPaths()
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = DefaultContextKey
	}

	return jwtware.Config{
		PublicPaths:     publicPaths,
		TokenValidator:  TokenValidatorAdapter(validator),
		IdentityLoader:  NewIdentityLoader(store),
		ContextKey:      contextKey,
		AuthScheme:      cfg.GetAuthScheme(),
		ContextEnricher: ContextEnricherAdapter,
		ErrorKind:       func(err error) string { return string(CodeOf(err)) },
		Logger:          resolveLogger(logger),
	}
}
