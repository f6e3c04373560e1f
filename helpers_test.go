package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/store/memory"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "longenough1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Address     string
	Token       string
	DisplayName string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	ok   bool
	err  error
}

func (m *fakeMailer) SendResetEmail(ctx context.Context, address, token, displayName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Address: address, Token: token, DisplayName: displayName})
	return m.ok && m.err == nil, m.err
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type failingAuditLog struct {
	calls int
	mu    sync.Mutex
}

func (l *failingAuditLog) Append(context.Context, *account.AuditEvent) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return errors.New("audit table unavailable")
}

func (l *failingAuditLog) ListByAccount(context.Context, int64, int) ([]account.AuditEvent, error) {
	return nil, errors.New("audit table unavailable")
}

type testEnv struct {
	engine *Engine
	store  *memory.Store
	clock  *fakeClock
	mailer *fakeMailer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("test-secret-0123456789abcdef0123")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.EnumerationDelayMin = 0
	cfg.PasswordReset.EnumerationDelayMax = 0
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	env := &testEnv{
		store:  memory.New(),
		clock:  newFakeClock(),
		mailer: &fakeMailer{ok: true},
	}

	engine, err := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithMailer(env.mailer).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	env.engine = engine
	t.Cleanup(engine.Close)
	return env
}

func (env *testEnv) register(t testing.TB) *account.Account {
	t.Helper()
	acc, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:    testEmail,
		FullName: "Alice Liddell",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return acc
}

func (env *testEnv) account(t *testing.T, id int64) *account.Account {
	t.Helper()
	acc, err := env.store.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return acc
}

func (env *testEnv) eventsOfType(eventType string) []account.AuditEvent {
	var out []account.AuditEvent
	for _, ev := range env.store.Events() {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// waitForMail polls until n emails were handed to the mailer.
func (env *testEnv) waitForMail(t *testing.T, n int) []sentMail {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := env.mailer.Sent(); len(sent) >= n {
			return sent
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d emails, got %d", n, len(env.mailer.Sent()))
	return nil
}
