package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/edutrial/go-auth"
)

type otpFixture struct {
	repo    auth.RepositoryManager
	manager *auth.OTPManager
	mail    *fakeMailer
	sink    *capturingSink
	clock   *clock
}

func newOTPFixture(t *testing.T, throttle auth.ResendThrottle) *otpFixture {
	t.Helper()
	f := &otpFixture{
		mail:  &fakeMailer{},
		sink:  &capturingSink{},
		clock: newClock(),
	}
	f.repo = auth.NewRepositoryManager(newTestDB(t), auth.WithAccountsClock(f.clock.Now))
	f.manager = auth.NewOTPManager(f.repo).
		WithHasher(testHasher).
		WithMailDispatcher(f.mail).
		WithRenderer(codeRenderer{}).
		WithThrottle(throttle).
		WithActivitySink(f.sink).
		WithClock(f.clock.Now)
	return f
}

func registration() auth.RegisterAccountMessage {
	return auth.RegisterAccountMessage{
		Email:     testEmail,
		Password:  testPassword,
		FirstName: "Alice",
		LastName:  "Nguyen",
	}
}

func (f *otpFixture) lastCode(t *testing.T) string {
	t.Helper()
	sent := f.mail.Sent()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1].Body
}

func TestOTPManager_RegisterCreatesPendingAccount(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)

	msg, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, auth.MsgRegistered, msg)

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, account.Enabled)
	assert.Equal(t, "Alice Nguyen", account.Name)
	assert.Equal(t, auth.RoleUser, account.RoleName())
	require.NoError(t, testHasher.ComparePasswordAndHash(testPassword, account.PasswordHash))

	require.True(t, account.HasPendingOTP())
	assert.Len(t, *account.OTP, auth.DefaultOTPLength)
	assert.True(t, f.clock.Now().Add(auth.DefaultOTPTTL).Equal(*account.OTPExpiry))

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testEmail, sent[0].To)
	assert.Equal(t, *account.OTP, sent[0].Body)
	assert.NotContains(t, msg, *account.OTP)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventAccountRegistered}, f.sink.Types())
}

func TestOTPManager_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)

	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)

	_, err = f.manager.Register(ctx, registration())
	assert.Equal(t, auth.CodeAccountPendingVerification, auth.CodeOf(err))

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: f.lastCode(t)})
	require.NoError(t, err)

	_, err = f.manager.Register(ctx, registration())
	assert.Equal(t, auth.CodeAccountAlreadyExists, auth.CodeOf(err))
	assert.Len(t, f.mail.Sent(), 1)
}

func TestOTPManager_RegisterValidation(t *testing.T) {
	f := newOTPFixture(t, nil)

	msg := registration()
	msg.Password = "short"
	msg.Email = "not-an-email"
	_, err := f.manager.Register(context.Background(), msg)
	assert.Equal(t, auth.CodeValidationFailed, auth.CodeOf(err))
	assert.Contains(t, auth.ValidationErrors(err), "password")
	assert.Empty(t, f.mail.Sent())

	msg = registration()
	msg.Phone = "12"
	_, err = f.manager.Register(context.Background(), msg)
	assert.Equal(t, auth.CodeValidationFailed, auth.CodeOf(err))
	assert.Contains(t, auth.ValidationErrors(err), "phone")
}

func TestOTPManager_RegisterNormalizesPhoneAndIDs(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	f.manager.WithDeterministicIDs(true)

	msg := registration()
	msg.Email = "  " + testEmail + " "
	msg.Phone = "0912 345 678"
	_, err := f.manager.Register(ctx, msg)
	require.NoError(t, err)

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, "+84912345678", account.Phone)

	expected, err := hashid.NewUUID(testEmail)
	require.NoError(t, err)
	assert.Equal(t, expected, account.ID)
}

func TestOTPManager_RegisterCancelledContext(t *testing.T) {
	f := newOTPFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.manager.Register(ctx, registration())
	assert.Equal(t, auth.CodeInternal, auth.CodeOf(err))
	assert.Empty(t, f.mail.Sent())
}

func TestOTPManager_VerifyEnablesAccount(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)

	msg, err := f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: f.lastCode(t)})
	require.NoError(t, err)
	assert.Equal(t, auth.MsgVerified, msg)

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, account.Enabled)
	assert.Nil(t, account.OTP)
	assert.Nil(t, account.OTPExpiry)

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: f.lastCode(t)})
	assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err), "a code works once")
}

func TestOTPManager_VerifyFailures(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	code := f.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: "bob@x.com", OTP: code})
	assert.Equal(t, auth.CodeAccountNotFound, auth.CodeOf(err))

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: wrong})
	assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err))

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: "12ab56"})
	assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err))

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail})
	assert.Equal(t, auth.CodeValidationFailed, auth.CodeOf(err))

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, account.Enabled, "failed attempts leave the account pending")
	require.NotNil(t, account.OTP)
	assert.Equal(t, code, *account.OTP)
}

func TestOTPManager_VerifyRequiresExactCode(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	code := f.lastCode(t)

	for _, padded := range []string{" " + code, code + " ", " " + code + " ", "\t" + code} {
		_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: padded})
		assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err), "%q", padded)
	}

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, account.Enabled)
	require.NotNil(t, account.OTP)
	assert.Equal(t, code, *account.OTP)

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: code})
	assert.NoError(t, err)
}

func TestOTPManager_VerifyExpiredClearsCode(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	code := f.lastCode(t)

	f.clock.Advance(auth.DefaultOTPTTL + time.Second)

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: code})
	assert.Equal(t, auth.CodeOTPExpired, auth.CodeOf(err))

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, account.Enabled)
	assert.Nil(t, account.OTP)

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: code})
	assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err))

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventAccountRegistered,
		auth.ActivityEventOTPRejected,
		auth.ActivityEventOTPRejected,
	}, f.sink.Types())
}

func TestOTPManager_VerifyConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	code := f.lastCode(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: code})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err))
	}
	assert.Equal(t, 1, succeeded)
}

func TestOTPManager_ResendReplacesCode(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	first := f.lastCode(t)

	f.clock.Advance(45 * time.Second)
	msg, err := f.manager.Resend(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, auth.MsgResent, msg)
	require.Len(t, f.mail.Sent(), 2)
	second := f.lastCode(t)

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	require.NotNil(t, account.OTP)
	assert.Equal(t, second, *account.OTP)
	assert.True(t, f.clock.Now().Add(auth.DefaultOTPTTL).Equal(*account.OTPExpiry))

	if first != second {
		_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: first})
		assert.Equal(t, auth.CodeOTPInvalid, auth.CodeOf(err), "the replaced code is dead")
	}

	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: second})
	require.NoError(t, err)
}

func TestOTPManager_ResendFailures(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)

	_, err := f.manager.Resend(ctx, "bob@x.com")
	assert.Equal(t, auth.CodeAccountNotFound, auth.CodeOf(err))

	_, err = f.manager.Resend(ctx, "bob")
	assert.Equal(t, auth.CodeValidationFailed, auth.CodeOf(err))

	createAccount(t, f.repo, testEmail, testPassword, auth.RoleUser)
	_, err = f.manager.Resend(ctx, testEmail)
	assert.Equal(t, auth.CodeAlreadyVerified, auth.CodeOf(err))
	assert.Empty(t, f.mail.Sent())
}

func TestOTPManager_ResendThrottled(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, auth.NewMemoryThrottle(time.Hour, 0))
	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	code := f.lastCode(t)

	_, err = f.manager.Resend(ctx, testEmail)
	assert.Equal(t, auth.CodeOTPRateLimited, auth.CodeOf(err))
	assert.Len(t, f.mail.Sent(), 1)

	account, err := f.repo.Accounts().FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, code, *account.OTP, "a throttled resend keeps the current code")
}

func TestOTPManager_CustomLengthAndTTL(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, nil)
	f.manager.WithOTPConfig(testOTPConfig{length: 8, ttl: 5 * time.Minute})

	_, err := f.manager.Register(ctx, registration())
	require.NoError(t, err)
	assert.Len(t, f.lastCode(t), 8)

	f.clock.Advance(4 * time.Minute)
	_, err = f.manager.Verify(ctx, auth.VerifyOTPMessage{Email: testEmail, OTP: f.lastCode(t)})
	require.NoError(t, err)
}
