package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/lockout"
)

// Login resolves the account by email (ErrNotFound when absent), rejects a
// locked account with *LockedError and an inactive one with ErrInactive,
// then verifies the password. A wrong password is counted by the lockout
// tracker and returns *InvalidCredentialsError, or *LockedError when the
// threshold is reached. Success clears the counter and returns a fresh
// token pair. Every branch is audited.
//
// The lock check, password verification and counter update run inside one
// Store.Update so concurrent failures on the same account are all counted.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()

	email := account.NormalizeEmail(req.Email)
	found, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.metricInc(MetricLoginNotFound)
			e.record(ctx, EventLoginFailed, false, nil, email, "User not found")
			return nil, ErrNotFound
		}
		e.logger.Error().Err(err).Str("email", email).Msg("login lookup failed")
		return nil, storeError(err)
	}

	now := e.now()
	var (
		outcome  error
		decision lockout.Decision
		rehashed bool
	)
	acc, err := e.store.Update(ctx, found.ID, func(a *account.Account) error {
		outcome, rehashed = nil, false

		decision = e.lockout.Check(a, now)
		unlocked := decision.State == lockout.Unlocked
		if decision.Blocked() {
			outcome = &LockedError{Until: decision.Until, MinutesRemaining: decision.MinutesRemaining}
			return errSkipWrite
		}
		if !a.IsActive {
			outcome = ErrInactive
			// An expired lock lifted by Check is still persisted.
			if unlocked {
				return nil
			}
			return errSkipWrite
		}

		if !e.hasher.Verify(a.PasswordHash, req.Password) {
			decision = e.lockout.RecordFailure(a, now)
			if decision.State == lockout.LockedOut {
				outcome = &LockedError{Until: decision.Until, MinutesRemaining: decision.MinutesRemaining, JustLocked: true}
			} else {
				outcome = &InvalidCredentialsError{RemainingAttempts: decision.RemainingAttempts}
			}
			if !e.lockout.Enabled() && !unlocked {
				return errSkipWrite
			}
			return nil
		}

		e.lockout.RecordSuccess(a, now)
		a.UpdatedAt = now
		if e.config.Password.UpgradeOnLogin && e.hasher.NeedsRehash(a.PasswordHash) {
			if h, herr := e.hasher.Hash(req.Password); herr == nil {
				a.PasswordHash = h
				rehashed = true
			} else {
				e.logger.Warn().Err(herr).Int64("account_id", a.ID).Msg("password rehash failed")
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errSkipWrite) {
		if errors.Is(err, account.ErrNotFound) {
			e.metricInc(MetricLoginNotFound)
			e.record(ctx, EventLoginFailed, false, nil, email, "User not found")
			return nil, ErrNotFound
		}
		e.logger.Error().Err(err).Int64("account_id", found.ID).Msg("login update failed")
		return nil, storeError(err)
	}
	if acc == nil {
		acc = found
	}

	if outcome != nil {
		e.loginRejected(ctx, acc, outcome)
		return nil, outcome
	}

	if rehashed {
		e.metricInc(MetricPasswordRehash)
	}
	pair, err := e.issuePair(acc)
	if err != nil {
		e.logger.Error().Err(err).Int64("account_id", acc.ID).Msg("token issuance failed")
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.record(ctx, EventLogin, true, acc, acc.Email, "Successful login")
	return pair, nil
}

func (e *Engine) loginRejected(ctx context.Context, acc *account.Account, outcome error) {
	var (
		locked *LockedError
		bad    *InvalidCredentialsError
	)
	switch {
	case errors.As(outcome, &locked) && locked.JustLocked:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricAccountLocked)
		e.record(ctx, EventLoginFailed, false, acc, acc.Email,
			fmt.Sprintf("Invalid password. Account locked for %d minutes", locked.MinutesRemaining))
		e.logger.Warn().Int64("account_id", acc.ID).Time("locked_until", locked.Until).Msg("account locked after repeated failures")
	case errors.As(outcome, &locked):
		e.metricInc(MetricLoginLocked)
		e.record(ctx, EventLoginFailed, false, acc, acc.Email,
			fmt.Sprintf("Account locked. %d minutes remaining", locked.MinutesRemaining))
	case errors.As(outcome, &bad):
		e.metricInc(MetricLoginFailure)
		e.record(ctx, EventLoginFailed, false, acc, acc.Email, "Invalid password")
	case errors.Is(outcome, ErrInactive):
		e.metricInc(MetricLoginInactive)
		e.record(ctx, EventLoginFailed, false, acc, acc.Email, "Account is inactive")
	}
}
