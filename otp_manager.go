package auth

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// DefaultOTPTTL is how long a verification code stays valid
const DefaultOTPTTL = time.Minute

// TemplateOTPEmail names the verification mail template
const TemplateOTPEmail = "otp_email"

// Client facing results of the OTP lifecycle
const (
	MsgRegistered = "Registration successful! Please check your email for the OTP code to activate your account."
	MsgVerified   = "Account verified successfully! You can now log in."
	MsgResent     = "A new OTP code has been sent to your email."
)

const (
	subjectRegistered = "EDU TRIAL registration verification code"
	subjectResent     = "EDU TRIAL new verification code"
)

// OTPManager drives registration, verification and code resend
type OTPManager struct {
	repo             RepositoryManager
	hasher           PasswordAuthenticator
	mailer           MailDispatcher
	renderer         MessageRenderer
	throttle         ResendThrottle
	activitySink     ActivitySink
	logger           Logger
	now              func() time.Time
	otpLength        int
	otpTTL           time.Duration
	defaultRole      string
	phoneRegion      string
	deterministicIDs bool
}

// NewOTPManager returns a manager with default settings: six digit codes
// valid for one minute, no throttle and mail discarded.
func NewOTPManager(repo RepositoryManager) *OTPManager {
	return &OTPManager{
		repo:         repo,
		hasher:       NewBcryptHasher(0),
		mailer:       noopMailDispatcher{},
		renderer:     plainRenderer{},
		throttle:     NoopThrottle{},
		activitySink: noopActivitySink{},
		logger:       defLogger(),
		now:          time.Now,
		otpLength:    DefaultOTPLength,
		otpTTL:       DefaultOTPTTL,
		defaultRole:  DefaultRole,
		phoneRegion:  DefaultPhoneRegion,
	}
}

func (m *OTPManager) WithLogger(l Logger) *OTPManager {
	m.logger = resolveLogger(l)
	return m
}

func (m *OTPManager) WithHasher(h PasswordAuthenticator) *OTPManager {
	if h != nil {
		m.hasher = h
	}
	return m
}

func (m *OTPManager) WithMailDispatcher(d MailDispatcher) *OTPManager {
	if d != nil {
		m.mailer = d
	}
	return m
}

func (m *OTPManager) WithRenderer(r MessageRenderer) *OTPManager {
	if r != nil {
		m.renderer = r
	}
	return m
}

func (m *OTPManager) WithThrottle(t ResendThrottle) *OTPManager {
	if t == nil {
		t = NoopThrottle{}
	}
	m.throttle = t
	return m
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func (m *OTPManager) WithActivitySink(sink ActivitySink) *OTPManager {
	m.activitySink = normalizeActivitySink(sink)
	return m
}

func (m *OTPManager) WithClock(now func() time.Time) *OTPManager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithOTPConfig applies code length and validity
func (m *OTPManager) WithOTPConfig(cfg OTPConfig) *OTPManager {
	if n := cfg.GetOTPLength(); n > 0 {
		m.otpLength = n
	}
	if ttl := cfg.GetOTPTTL(); ttl > 0 {
		m.otpTTL = ttl
	}
	return m
}

func (m *OTPManager) WithDefaultRole(role string) *OTPManager {
	if role != "" {
		m.defaultRole = strings.ToUpper(role)
	}
	return m
}

func (m *OTPManager) WithPhoneRegion(region string) *OTPManager {
	if region != "" {
		m.phoneRegion = region
	}
	return m
}

// WithDeterministicIDs derives account ids from the email
func (m *OTPManager) WithDeterministicIDs(enabled bool) *OTPManager {
	m.deterministicIDs = enabled
	return m
}

// Register creates a disabled account holding a fresh code and mails the
// code. The code itself is never returned.
func (m *OTPManager) Register(ctx context.Context, msg RegisterAccountMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", internalError(ctx.Err(), "context cancelled during registration")
	default:
		return m.register(ctx, msg.normalized())
	}
}

func (m *OTPManager) register(ctx context.Context, msg RegisterAccountMessage) (string, error) {
	if err := msg.Validate(m.phoneRegion); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	accounts := m.repo.Accounts()

	enabled, err := accounts.ExistsEnabledByEmail(ctx, msg.Email)
	if err != nil {
		return "", err
	}
	if enabled {
		return "", newError(CodeAccountAlreadyExists, "email", msg.Email)
	}

	pending, err := accounts.ExistsDisabledByEmail(ctx, msg.Email)
	if err != nil {
		return "", err
	}
	if pending {
		return "", newError(CodeAccountPendingVerification, "email", msg.Email)
	}

	hash, err := m.hasher.HashPassword(msg.Password)
	if err != nil {
		return "", err
	}

	code, err := GenerateOTP(m.otpLength)
	if err != nil {
		return "", err
	}

	account := &Account{
		Email:        msg.Email,
		PasswordHash: hash,
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
		Name:         FullName(msg.FirstName, msg.LastName),
	}
	account.SetOTP(code, m.now().UTC().Add(m.otpTTL))

	if msg.Phone != "" {
		if account.Phone, err = NormalizePhone(msg.Phone, m.phoneRegion); err != nil {
			return "", validationError(map[string]string{"phone": "must be a valid phone number"})
		}
	}

	if m.deterministicIDs {
		if id, err := hashid.NewUUID(msg.Email); err == nil {
			account.ID = id
		}
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		role, err := m.repo.Roles().FindByNameTx(ctx, tx, m.defaultRole)
		if err != nil {
			return err
		}
		account.RoleID = role.ID
		account.Role = role

		_, err = accounts.CreateTx(ctx, tx, account)
		return err
	})
	if err != nil {
		m.logger.Error("Register failed to persist account", "email", msg.Email, "error", err)
		return "", err
	}

	if _, err := m.throttle.Allow(ctx, account.Email); err != nil {
		m.logger.Warn("Register could not record resend mark", "email", account.Email, "error", err)
	}

	m.dispatchOTP(account, code, subjectRegistered)
	m.emit(ctx, ActivityEventAccountRegistered, account, nil)

	return MsgRegistered, nil
}

// Verify checks the submitted code and enables the account. Expired codes
// are cleared so they cannot be retried.
func (m *OTPManager) Verify(ctx context.Context, msg VerifyOTPMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", internalError(ctx.Err(), "context cancelled during verification")
	default:
	}

	msg.Email = strings.TrimSpace(msg.Email)
	if err := msg.Validate(); err != nil {
		return "", err
	}

	accounts := m.repo.Accounts()
	account, err := accounts.FindByEmail(ctx, msg.Email)
	if err != nil {
		return "", err
	}

	if !otpEqual(account.OTP, msg.OTP) {
		err := newError(CodeOTPInvalid, "email", msg.Email)
		m.emit(ctx, ActivityEventOTPRejected, account, err)
		return "", err
	}

	if account.OTPExpired(m.now()) {
		if clearErr := accounts.ClearOTP(ctx, account.ID, msg.OTP); clearErr != nil {
			m.logger.Error("Verify failed to clear expired otp", "email", msg.Email, "error", clearErr)
		}
		err := newError(CodeOTPExpired, "email", msg.Email)
		m.emit(ctx, ActivityEventOTPRejected, account, err)
		return "", err
	}

	consumed, err := accounts.ConsumeOTP(ctx, account.ID, msg.OTP)
	if err != nil {
		return "", err
	}
	if !consumed {
		err := newError(CodeOTPInvalid, "email", msg.Email, "reason", "already consumed")
		m.emit(ctx, ActivityEventOTPRejected, account, err)
		return "", err
	}

	account.Enable()
	m.emit(ctx, ActivityEventOTPVerified, account, nil)
	return MsgVerified, nil
}

// Resend replaces the code of a disabled account and mails it again
func (m *OTPManager) Resend(ctx context.Context, email string) (string, error) {
	select {
	case <-ctx.Done():
		return "", internalError(ctx.Err(), "context cancelled during otp resend")
	default:
	}

	msg := ResendOTPMessage{Email: strings.TrimSpace(email)}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	accounts := m.repo.Accounts()
	account, err := accounts.FindByEmail(ctx, msg.Email)
	if err != nil {
		return "", err
	}

	if account.Enabled {
		return "", newError(CodeAlreadyVerified, "email", msg.Email)
	}

	allowed, err := m.throttle.Allow(ctx, account.Email)
	if err != nil {
		m.logger.Warn("Resend throttle check failed", "email", account.Email, "error", err)
	}
	if !allowed {
		err := newError(CodeOTPRateLimited, "email", msg.Email)
		m.emit(ctx, ActivityEventOTPResent, account, err)
		return "", err
	}

	code, err := GenerateOTP(m.otpLength)
	if err != nil {
		return "", err
	}
	expiry := m.now().UTC().Add(m.otpTTL)

	replaced, err := accounts.ReplaceOTP(ctx, account.ID, code, expiry)
	if err != nil {
		return "", err
	}
	if !replaced {
		return "", newError(CodeAlreadyVerified, "email", msg.Email)
	}
	account.SetOTP(code, expiry)

	m.dispatchOTP(account, code, subjectResent)
	m.emit(ctx, ActivityEventOTPResent, account, nil)
	return MsgResent, nil
}

func (m *OTPManager) dispatchOTP(account *Account, code, subject string) {
	body, err := m.renderer.Render(TemplateOTPEmail, map[string]any{
		"name":    account.Name,
		"email":   account.Email,
		"code":    code,
		"minutes": int(math.Ceil(m.otpTTL.Minutes())),
	})
	if err != nil {
		m.logger.Error("failed to render otp email", "email", account.Email, "error", err)
		return
	}
	m.mailer.SendAsync(account.Email, subject, body)
}

func (m *OTPManager) emit(ctx context.Context, eventType ActivityEventType, account *Account, err error) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     account.ID.String(),
		Email:      account.Email,
		OccurredAt: m.now(),
	}
	if err != nil {
		event.Code = CodeOf(err)
	}
	if recErr := m.activitySink.Record(ctx, event); recErr != nil {
		m.logger.Error("failed to record activity", "event", eventType, "error", recErr)
	}
}
