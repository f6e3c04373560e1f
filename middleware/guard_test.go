package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/store/memory"
)

func newEngine(t *testing.T) (*authcore.Engine, *memory.Store, *authcore.TokenPair) {
	t.Helper()

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = []byte("middleware-test-secret")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	store := memory.New()
	engine, err := authcore.New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	if _, err := engine.Register(ctx, authcore.RegisterRequest{
		Email: "alice@example.com", FullName: "Alice Liddell", Password: "longenough1",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := engine.Login(ctx, authcore.LoginRequest{Email: "alice@example.com", Password: "longenough1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return engine, store, pair
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authcore.PrincipalFromContext(r.Context()); !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard(t *testing.T) {
	engine, _, pair := newEngine(t)
	h := Guard(engine)(principalEcho())

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer header", "Bearer " + pair.AccessToken, "", http.StatusOK},
		{"lowercase scheme", "bearer " + pair.AccessToken, "", http.StatusOK},
		{"cookie fallback", "", pair.AccessToken, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + pair.RefreshToken, "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"header wins over cookie", "Bearer nope", pair.AccessToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatal("missing WWW-Authenticate header")
			}
		})
	}
}

func TestGuardNilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(nil)(principalEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireActive(t *testing.T) {
	engine, store, pair := newEngine(t)

	var seen *account.Account
	h := RequireActive(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccountFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen == nil || seen.Email != "alice@example.com" {
		t.Fatalf("status=%d account=%+v", rec.Code, seen)
	}

	acc, _ := store.FindByEmail(context.Background(), "alice@example.com")
	acc.IsActive = false
	_ = store.Save(context.Background(), acc)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"forwarded garbage skipped", map[string]string{"X-Forwarded-For": strings.Repeat("a", 60) + ", 10.0.0.1", "X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"all headers garbage", map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "<script>"}, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 forwarded", map[string]string{"X-Forwarded-For": " 2001:db8::1 "}, "10.0.0.2:1234", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientInfoFeedsAudit(t *testing.T) {
	engine, store, _ := newEngine(t)

	h := ClientInfo(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = engine.Login(r.Context(), authcore.LoginRequest{Email: "alice@example.com", Password: "longenough1"})
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Real-IP", "198.51.100.4")
	req.Header.Set("User-Agent", "integration-test")
	h.ServeHTTP(httptest.NewRecorder(), req)

	events := store.Events()
	last := events[len(events)-1]
	if last.IPAddress != "198.51.100.4" || last.UserAgent != "integration-test" {
		t.Fatalf("unexpected audit event %+v", last)
	}
}
