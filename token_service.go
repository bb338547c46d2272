package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// DefaultTokenTTL is used when the configuration leaves the TTL unset
const DefaultTokenTTL = 24 * time.Hour

var errUnsupportedSigningMethod = errors.New("unsupported signing method")

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	ttl        time.Duration
	issuer     string
	logger     Logger
	now        func() time.Time
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, logger Logger) *TokenServiceImpl {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		method:     jwt.SigningMethodHS256,
		ttl:        ttl,
		issuer:     issuer,
		logger:     resolveLogger(logger),
		now:        time.Now,
	}
}

// NewTokenServiceFromConfig builds the service from auth options
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	ts := NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), cfg.GetIssuer(), logger)
	if m := cfg.GetSigningMethod(); m != "" {
		method, ok := jwt.GetSigningMethod(m).(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, internalError(errUnsupportedSigningMethod, "configured signing method is not HMAC", "alg", m)
		}
		ts.method = method
	}
	return ts, nil
}

// WithClock replaces the time source used to stamp and check tokens
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// TTL returns the lifetime of issued tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token naming the identity email as subject. It returns the
// token and its expiration time.
func (ts *TokenServiceImpl) Issue(identity Identity) (string, time.Time, error) {
	if identity == nil || identity.Email() == "" {
		return "", time.Time{}, internalError(errors.New("identity without email"), "cannot issue token")
	}

	now := ts.now().UTC()
	exp := now.Add(ts.ttl)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    ts.issuer,
			Subject:   identity.Email(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", internalError(errors.New("claims must not be nil"), "cannot sign token")
	}

	token := jwt.NewWithClaims(ts.method, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", internalError(err, "failed to sign JWT")
	}
	return signed, nil
}

// Validate parses and validates a token string, returning structured claims.
// Failures carry one of the token error codes.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if m, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || m.Alg() != ts.method.Alg() {
			return nil, fmt.Errorf("%w: %v", errUnsupportedSigningMethod, t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, tokenError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, newError(CodeTokenInvalid, "reason", "unable to decode claims")
	}

	if claims.Subject() == "" {
		return nil, newError(CodeTokenInvalid, "reason", "missing subject")
	}

	return claims, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return wrapError(err, CodeTokenMalformed, "token is malformed")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return wrapError(err, CodeTokenUnsupported, "token signing method is not supported")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return wrapError(err, CodeTokenSignatureInvalid, "token signature is invalid")
	case errors.Is(err, jwt.ErrTokenExpired):
		return wrapError(err, CodeTokenExpired, "token is expired")
	default:
		return wrapError(err, CodeTokenInvalid, "token is invalid")
	}
}
