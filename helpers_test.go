package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/edutrial/go-auth"
)

const (
	testSigningKey = "test-signing-key-0123456789abcdef"
	testEmail      = "alice@x.com"
	testPassword   = "Passw0rd!"
)

// testHasher keeps bcrypt fast in tests
var testHasher = auth.NewBcryptHasher(4)

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sentMail is one message handed to fakeMailer
type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendAsync(to, subject, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// codeRenderer renders the code alone so tests can read it back
type codeRenderer struct{}

func (codeRenderer) Render(_ string, data map[string]any) (string, error) {
	return data["code"].(string), nil
}

type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Types() []auth.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

// newTestDB opens a private in-memory sqlite database with the schema and
// predefined roles in place.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := auth.OpenDB(ctx, auth.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, auth.Migrate(ctx, db, auth.DriverSQLite, nil))
	require.NoError(t, auth.NewRepositoryManager(db).Roles().Seed(ctx, auth.PredefinedRoles()...))
	return db
}

// createAccount stores an enabled account with the given role
func createAccount(t *testing.T, repo auth.RepositoryManager, email, password, role string) *auth.Account {
	t.Helper()
	seeder := auth.NewSeeder(repo, testHasher)
	require.NoError(t, seeder.EnsureAccounts(context.Background(), auth.SeedAccount{
		Email:     email,
		Password:  password,
		FirstName: "Alice",
		LastName:  "Nguyen",
		Role:      role,
	}))
	account, err := repo.Accounts().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return account
}

type testOTPConfig struct {
	length int
	ttl    time.Duration
}

func (c testOTPConfig) GetOTPLength() int                { return c.length }
func (c testOTPConfig) GetOTPTTL() time.Duration         { return c.ttl }
func (c testOTPConfig) GetResendInterval() time.Duration { return 0 }
