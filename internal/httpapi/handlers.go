package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/rs/zerolog/hlog"
)

const (
	refreshCookie = "refresh_token"
	maxBodyBytes  = 1 << 20
)

type handler struct {
	engine       *authcore.Engine
	secureCookie bool
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in authcore.RegisterRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	acc, err := h.engine.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(acc))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in authcore.LoginRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	pair, err := h.engine.Login(r.Context(), in)
	switch {
	case errors.Is(err, authcore.ErrNotFound):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: detailUserNotFound})
		return
	case errors.Is(err, authcore.ErrInactive):
		writeJSON(w, http.StatusForbidden, detailResponse{Detail: detailDeactivated})
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &in) {
			return
		}
	}
	token := in.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: detailRefreshMissing})
		return
	}

	pair, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.AccessToken(r)
	res := h.engine.Logout(r.Context(), token)

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, detailResponse{Detail: res.Detail})
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotPasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	res := h.engine.ForgotPassword(r.Context(), in.Email)
	writeJSON(w, http.StatusOK, detailResponse{Detail: res.Detail})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in authcore.ResetPasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.engine.ResetPassword(r.Context(), in)
	switch {
	case errors.Is(err, authcore.ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: detailResetInvalid})
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: authcore.ResetPasswordMessage})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	acc, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: detailInvalidToken})
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(acc))
}

func (h *handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := authcore.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: detailInvalidToken})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: []authcore.FieldError{
				{Field: "limit", Message: "limit must be a positive integer"},
			}})
			return
		}
		limit = n
	}

	logs, err := h.engine.AuditLog(r.Context(), p.AccountID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auditLogsResponse{Logs: logs, Count: len(logs)})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *authcore.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: verr.Fields})
		return
	}

	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("category", authcore.Category(err).String()).Msg("request failed")
	} else {
		hlog.FromRequest(r).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, detailResponse{Detail: detail})
}

func (h *handler) setTokenCookies(w http.ResponseWriter, pair *authcore.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, pair.AccessToken, pair.AccessTTL))
	http.SetCookie(w, h.cookie(refreshCookie, pair.RefreshToken, pair.RefreshTTL))
}

func (h *handler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessCookie, refreshCookie} {
		c := h.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: detailInvalidJSON})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
