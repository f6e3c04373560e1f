package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)

	pair, err := env.engine.Login(context.Background(), LoginRequest{Email: " ALICE@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "bearer" {
		t.Fatalf("unexpected pair %+v", pair)
	}

	p, err := env.engine.ValidateAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if p.AccountID != acc.ID || p.Role != "researcher" {
		t.Fatalf("unexpected principal %+v", p)
	}

	stored := env.account(t, acc.ID)
	if stored.LastLogin == nil || !stored.LastLogin.Equal(env.clock.Now()) {
		t.Fatalf("last login not stamped: %v", stored.LastLogin)
	}
	if got := env.eventsOfType(EventLogin); len(got) != 1 || !got[0].Success {
		t.Fatalf("unexpected login audit %+v", got)
	}
}

func TestLoginUnknownEmailRevealsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: testPassword})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	failed := env.eventsOfType(EventLoginFailed)
	if len(failed) != 1 || failed[0].Details != "User not found" || failed[0].AccountID != nil {
		t.Fatalf("unexpected audit %+v", failed)
	}
}

func TestLoginWrongPasswordReportsRemainingAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: "wrong-password"})
	var bad *InvalidCredentialsError
	if !errors.As(err, &bad) || !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected *InvalidCredentialsError, got %v", err)
	}
	if bad.RemainingAttempts != 4 {
		t.Fatalf("remaining = %d, want 4", bad.RemainingAttempts)
	}
	if want := "Invalid password. You have 4 attempts remaining before your account is locked."; bad.Error() != want {
		t.Fatalf("message = %q", bad.Error())
	}
	if env.account(t, acc.ID).FailedAttempts != 1 {
		t.Fatal("failure not counted")
	}
}

// Register alice, fail five times, stay locked on the sixth attempt, then
// log in once the window has passed.
func TestLoginLockoutScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.register(t)
	if !acc.IsActive {
		t.Fatal("registered account must be active")
	}

	for i := 1; i <= 4; i++ {
		_, err := env.engine.Login(ctx, LoginRequest{Email: testEmail, Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := env.engine.Login(ctx, LoginRequest{Email: testEmail, Password: "wrong"})
	var locked *LockedError
	if !errors.As(err, &locked) || !locked.JustLocked {
		t.Fatalf("5th attempt: expected fresh *LockedError, got %v", err)
	}
	if locked.MinutesRemaining != 15 {
		t.Fatalf("minutes remaining = %d", locked.MinutesRemaining)
	}

	env.clock.Advance(5 * time.Minute)
	_, err = env.engine.Login(ctx, LoginRequest{Email: testEmail, Password: testPassword})
	if !errors.As(err, &locked) || locked.JustLocked {
		t.Fatalf("6th attempt: expected *LockedError, got %v", err)
	}
	if locked.MinutesRemaining != 10 {
		t.Fatalf("minutes remaining = %d, want 10", locked.MinutesRemaining)
	}
	if got := env.account(t, acc.ID).FailedAttempts; got != 5 {
		t.Fatalf("locked attempt changed the counter to %d", got)
	}
	if Category(err) != CategoryAuthorizationState {
		t.Fatalf("category = %v", Category(err))
	}

	env.clock.Advance(10 * time.Minute)
	pair, err := env.engine.Login(ctx, LoginRequest{Email: testEmail, Password: testPassword})
	if err != nil {
		t.Fatalf("login after lock window: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("missing access token")
	}
	stored := env.account(t, acc.ID)
	if stored.FailedAttempts != 0 || stored.IsLocked || stored.LockedUntil != nil {
		t.Fatalf("lockout not reset: %+v", stored)
	}

	// Four invalid-password events, the locking one, and the locked rejection.
	if got := len(env.eventsOfType(EventLoginFailed)); got != 6 {
		t.Fatalf("expected 6 login_failed events, got %d", got)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	acc.IsActive = false
	if err := env.store.Save(context.Background(), acc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword})
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
	failed := env.eventsOfType(EventLoginFailed)
	if len(failed) != 1 || failed[0].Details != "Account is inactive" {
		t.Fatalf("unexpected audit %+v", failed)
	}
}

func TestLoginLockCheckedBeforeInactive(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	until := env.clock.Now().Add(time.Hour)
	acc.IsActive = false
	acc.IsLocked = true
	acc.LockedUntil = &until
	_ = env.store.Save(context.Background(), acc)

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestLoginConcurrentFailuresAllCounted(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Lockout.MaxAttempts = 100 })
	acc := env.register(t)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: "wrong"})
		}()
	}
	wg.Wait()

	if got := env.account(t, acc.ID).FailedAttempts; got != n {
		t.Fatalf("expected %d counted failures, got %d", n, got)
	}
}

func TestLoginLockoutDisabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Lockout.MaxAttempts = 0 })
	acc := env.register(t)

	for i := 0; i < 10; i++ {
		_, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: "wrong"})
		var bad *InvalidCredentialsError
		if !errors.As(err, &bad) || bad.RemainingAttempts >= 0 {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	stored := env.account(t, acc.ID)
	if stored.IsLocked || stored.FailedAttempts != 0 {
		t.Fatalf("disabled lockout mutated account: %+v", stored)
	}
	if _, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginRehashesStaleDigest(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)

	weak, _ := password.New(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	stale, _ := weak.Hash(testPassword)
	acc.PasswordHash = stale
	_ = env.store.Save(context.Background(), acc)

	if _, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	upgraded := env.account(t, acc.ID).PasswordHash
	if upgraded == stale || env.engine.hasher.NeedsRehash(upgraded) {
		t.Fatal("digest not upgraded on login")
	}
	if env.engine.MetricsSnapshot().Counters[MetricPasswordRehash] != 1 {
		t.Fatal("rehash not counted")
	}
}

func TestLoginTokensCarryKinds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t)
	pair, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := env.engine.codec.VerifyKind(pair.AccessToken, jwt.KindAccess); err != nil {
		t.Fatalf("access kind: %v", err)
	}
	if _, err := env.engine.codec.VerifyKind(pair.RefreshToken, jwt.KindRefresh); err != nil {
		t.Fatalf("refresh kind: %v", err)
	}
	if pair.AccessTTL != 30*time.Minute || pair.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected ttls %v %v", pair.AccessTTL, pair.RefreshTTL)
	}
}
