package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// RequireActive runs Guard, then loads the account behind the token. Unknown
// accounts get 401 and deactivated ones 403.
func RequireActive(engine *authcore.Engine) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := authcore.PrincipalFromContext(r.Context())
			acc, err := engine.AccountFor(r.Context(), p)
			switch {
			case errors.Is(err, authcore.ErrInactive):
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"detail":"Account is inactive"}`))
				return
			case err != nil:
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}
