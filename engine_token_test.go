package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func loginPair(t *testing.T, env *testEnv) *TokenPair {
	t.Helper()
	pair, err := env.engine.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return pair
}

func TestRefreshIssuesNewPair(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	pair := loginPair(t, env)

	env.clock.Advance(time.Minute)
	next, err := env.engine.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh must mint new tokens")
	}
	p, err := env.engine.ValidateAccess(context.Background(), next.AccessToken)
	if err != nil || p.AccountID != acc.ID {
		t.Fatalf("new access token invalid: %v %+v", err, p)
	}
	if got := env.eventsOfType(EventTokenRefresh); len(got) != 1 || !got[0].Success {
		t.Fatalf("unexpected refresh audit %+v", got)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t)
	pair := loginPair(t, env)

	_, err := env.engine.Refresh(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}
	if _, err := env.engine.ValidateAccess(context.Background(), pair.RefreshToken); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t)
	pair := loginPair(t, env)

	env.clock.Advance(7*24*time.Hour + time.Second)
	_, err := env.engine.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if Category(err) != CategoryAuthentication {
		t.Fatalf("category = %v", Category(err))
	}
}

func TestRefreshGarbage(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := env.engine.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestRefreshInactiveAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	pair := loginPair(t, env)

	acc = env.account(t, acc.ID)
	acc.IsActive = false
	_ = env.store.Save(context.Background(), acc)

	if _, err := env.engine.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestRefreshFailuresAuditedOnlyWhenEnabled(t *testing.T) {
	env := newTestEnv(t, nil)
	_, _ = env.engine.Refresh(context.Background(), "garbage")
	if got := env.eventsOfType(EventTokenRefresh); len(got) != 0 {
		t.Fatalf("refresh failures are not audited by default, got %+v", got)
	}
	if env.engine.MetricsSnapshot().Counters[MetricRefreshFailure] != 1 {
		t.Fatal("refresh failure not counted")
	}

	env = newTestEnv(t, func(cfg *Config) { cfg.Audit.RecordRefreshFailures = true })
	_, _ = env.engine.Refresh(context.Background(), "garbage")
	got := env.eventsOfType(EventTokenRefresh)
	if len(got) != 1 || got[0].Success {
		t.Fatalf("expected one failed refresh event, got %+v", got)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	pair := loginPair(t, env)

	for _, token := range []string{"", "garbage", pair.AccessToken} {
		if res := env.engine.Logout(context.Background(), token); res.Detail != LogoutMessage {
			t.Fatalf("unexpected logout result %+v", res)
		}
	}
	events := env.eventsOfType(EventLogout)
	if len(events) != 1 || events[0].AccountID == nil || *events[0].AccountID != acc.ID {
		t.Fatalf("expected one logout event for the account, got %+v", events)
	}

	// Stateless: the token stays valid until it expires.
	if _, err := env.engine.ValidateAccess(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("ValidateAccess after logout: %v", err)
	}
}

func TestValidateAccessExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t)
	pair := loginPair(t, env)

	p, err := env.engine.ValidateAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if !p.ExpiresAt.Equal(env.clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("expires at %v", p.ExpiresAt)
	}
	if p.TokenID == "" {
		t.Fatal("missing token id")
	}

	env.clock.Advance(31 * time.Minute)
	if _, err := env.engine.ValidateAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCurrentAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.register(t)
	pair := loginPair(t, env)

	got, err := env.engine.CurrentAccount(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	if got.ID != acc.ID || got.Email != testEmail {
		t.Fatalf("unexpected account %+v", got)
	}

	if _, err := env.engine.AccountFor(context.Background(), &Principal{AccountID: 999}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown principal, got %v", err)
	}
	if _, err := env.engine.AccountFor(context.Background(), nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for nil principal, got %v", err)
	}
}
