package auth

import (
	"context"
	"time"
)

// AccountService serves the current account endpoints
type AccountService struct {
	repo         RepositoryManager
	hasher       PasswordAuthenticator
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time
}

func NewAccountService(repo RepositoryManager, hasher PasswordAuthenticator) *AccountService {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &AccountService{
		repo:         repo,
		hasher:       hasher,
		activitySink: noopActivitySink{},
		logger:       defLogger(),
		now:          time.Now,
	}
}

func (s *AccountService) WithLogger(l Logger) *AccountService {
	s.logger = resolveLogger(l)
	return s
}

func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Profile returns the redacted view of the account behind identity
func (s *AccountService) Profile(ctx context.Context, identity *IdentityContext) (AccountProfile, error) {
	if identity == nil {
		return AccountProfile{}, newError(CodeUnauthenticated)
	}
	account, err := s.repo.Accounts().FindByEmail(ctx, identity.Email)
	if err != nil {
		return AccountProfile{}, err
	}
	return account.Profile(), nil
}

// ChangePassword replaces the password after checking the current one
func (s *AccountService) ChangePassword(ctx context.Context, identity *IdentityContext, msg ChangePasswordMessage) error {
	if identity == nil {
		return newError(CodeUnauthenticated)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	accounts := s.repo.Accounts()
	account, err := accounts.FindByEmail(ctx, identity.Email)
	if err != nil {
		return err
	}

	if err := s.hasher.ComparePasswordAndHash(msg.CurrentPassword, account.PasswordHash); err != nil {
		if IsCode(err, CodeInvalidCredentials) {
			return newError(CodeInvalidOldPassword, "email", identity.Email)
		}
		return err
	}

	if msg.NewPassword != msg.ConfirmNewPassword {
		return newError(CodeNewPasswordMismatch, "email", identity.Email)
	}

	if msg.NewPassword == msg.CurrentPassword {
		return newError(CodePasswordUnchanged, "email", identity.Email)
	}

	hash, err := s.hasher.HashPassword(msg.NewPassword)
	if err != nil {
		return err
	}

	if err := accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}

	event := ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		UserID:     account.ID.String(),
		Email:      account.Email,
		OccurredAt: s.now(),
	}
	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Error("failed to record activity", "event", event.EventType, "error", err)
	}
	return nil
}
