package auth

import (
	"context"
	"time"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Profile     AccountProfile
}

// TokenTypeBearer is the only token type issued
const TokenTypeBearer = "Bearer"

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Logout(ctx context.Context, identity *IdentityContext)
}

type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokens,
		logger:       defLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = resolveLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock sets the time source used to stamp activity events
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues an access token
func (s *Auther) Login(ctx context.Context, email, password string) (LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login verify identity error", "email", email, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, err)
		return LoginResult{}, err
	}

	if identity == nil {
		s.logger.Error("Login identity is nil", "email", email)
		err := newError(CodeInvalidCredentials)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, err)
		return LoginResult{}, err
	}

	// checked again regardless of the provider in use
	if !identity.Enabled() {
		err := newError(CodeAccountDisabled, "email", email)
		s.logger.Warn("Login blocked for disabled account", "email", email)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID(), email, err)
		return LoginResult{}, err
	}

	token, expiresAt, err := s.tokenService.Issue(identity)
	if err != nil {
		s.logger.Error("Login failed to issue token", "email", email, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID(), email, err)
		return LoginResult{}, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity.ID(), email, nil)

	return LoginResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		Profile:     identity.Profile(),
	}, nil
}

// Logout is advisory: tokens are stateless and stay valid until expiry.
// It only records the event.
func (s *Auther) Logout(ctx context.Context, identity *IdentityContext) {
	if identity == nil {
		return
	}
	s.logger.Info("Logout", "email", identity.Email)
	s.emitAuthEvent(ctx, ActivityEventLogout, identity.AccountID, identity.Email, nil)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID, email string, err error) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: s.now(),
	}
	if err != nil {
		event.Code = CodeOf(err)
	}
	if recErr := s.activitySink.Record(ctx, event); recErr != nil {
		s.logger.Error("failed to record activity", "event", eventType, "error", recErr)
	}
}
