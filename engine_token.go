package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/jwt"
)

// Refresh verifies a refresh token, re-resolves its account and returns a
// new access and refresh pair. Failures map to ErrInvalidToken,
// ErrTokenExpired, ErrWrongTokenKind or ErrInactive.
//
// Only successful refreshes are audited unless Audit.RecordRefreshFailures
// is set.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.VerifyKind(refreshToken, jwt.KindRefresh)
	if err != nil {
		return nil, e.refreshFailed(ctx, nil, tokenError(err))
	}
	id, err := subjectID(claims)
	if err != nil {
		return nil, e.refreshFailed(ctx, nil, err)
	}

	acc, err := e.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, e.refreshFailed(ctx, nil, ErrInvalidToken)
		}
		e.metricInc(MetricRefreshFailure)
		e.logger.Error().Err(err).Int64("account_id", id).Msg("refresh lookup failed")
		return nil, storeError(err)
	}
	if !acc.IsActive {
		return nil, e.refreshFailed(ctx, acc, ErrInactive)
	}

	pair, err := e.issuePair(acc)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.logger.Error().Err(err).Int64("account_id", acc.ID).Msg("token issuance failed")
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.record(ctx, EventTokenRefresh, true, acc, acc.Email, "Token refreshed successfully")
	return pair, nil
}

func (e *Engine) refreshFailed(ctx context.Context, acc *account.Account, err error) error {
	e.metricInc(MetricRefreshFailure)
	if e.config.Audit.RecordRefreshFailures {
		e.record(ctx, EventTokenRefresh, false, acc, "", "Token refresh failed: "+err.Error())
	}
	return err
}

// Logout is stateless: no token is revoked and the caller is expected to
// discard its credentials. When accessToken is a valid access token the
// logout is audited against its account. The result never varies.
func (e *Engine) Logout(ctx context.Context, accessToken string) LogoutResult {
	result := LogoutResult{Detail: LogoutMessage}
	if !e.ready() {
		return result
	}

	e.metricInc(MetricLogout)
	if accessToken == "" {
		return result
	}
	p, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return result
	}
	acc, err := e.store.FindByID(ctx, p.AccountID)
	if err != nil {
		acc = &account.Account{ID: p.AccountID}
	}
	e.record(ctx, EventLogout, true, acc, acc.Email, "User logged out")
	return result
}

// ValidateAccess verifies an access token and returns its principal. It does
// not touch the store.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Principal, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.VerifyKind(accessToken, jwt.KindAccess)
	if err != nil {
		return nil, tokenError(err)
	}
	id, err := subjectID(claims)
	if err != nil {
		return nil, err
	}

	p := &Principal{
		AccountID: id,
		Role:      claims.Role,
		TokenID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// CurrentAccount validates accessToken and loads its account. Unknown
// accounts yield ErrInvalidToken; deactivated ones ErrInactive.
func (e *Engine) CurrentAccount(ctx context.Context, accessToken string) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	p, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return e.accountFor(ctx, p)
}

// AccountFor loads the account behind an already validated principal.
func (e *Engine) AccountFor(ctx context.Context, p *Principal) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.accountFor(ctx, p)
}

func (e *Engine) accountFor(ctx context.Context, p *Principal) (*account.Account, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	acc, err := e.store.FindByID(ctx, p.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeError(err)
	}
	if !acc.IsActive {
		return nil, ErrInactive
	}
	return acc, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrWrongKind):
		return ErrWrongTokenKind
	default:
		return ErrInvalidToken
	}
}

func subjectID(claims *jwt.Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
