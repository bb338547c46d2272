package auth

import (
	"context"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Email() string
	Role() string
	Enabled() bool
	Profile() AccountProfile
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetTokenTTL() time.Duration
	GetAuthScheme() string
	GetContextKey() string
	GetPublicPaths() []string
}

// OTPConfig holds the one time password options
type OTPConfig interface {
	GetOTPLength() int
	GetOTPTTL() time.Duration
	GetResendInterval() time.Duration
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates access tokens
type TokenService interface {
	Issue(identity Identity) (string, time.Time, error)
	Validate(tokenString string) (AuthClaims, error)
}

// MailDispatcher accepts mail for asynchronous delivery. Implementations
// must never block the caller on delivery.
type MailDispatcher interface {
	SendAsync(to, subject, htmlBody string)
}

// MessageRenderer renders a named template into an HTML body
type MessageRenderer interface {
	Render(name string, data map[string]any) (string, error)
}

// ResendThrottle decides whether an OTP resend for key may proceed now.
type ResendThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type noopMailDispatcher struct{}

func (noopMailDispatcher) SendAsync(string, string, string) {}
