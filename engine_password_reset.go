package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/reset"
)

// ForgotPassword issues a reset token for an active account and hands it to
// the Mailer in the background. The result is identical for known, unknown
// and inactive emails, and for store or mail failures; every path also
// sleeps a random enumeration delay.
func (e *Engine) ForgotPassword(ctx context.Context, email string) ForgotPasswordResult {
	result := ForgotPasswordResult{Detail: ForgotPasswordMessage}
	if !e.ready() {
		return result
	}
	defer e.sleep(ctx, randomDelay(e.config.PasswordReset.EnumerationDelayMin, e.config.PasswordReset.EnumerationDelayMax))

	e.metricInc(MetricPasswordResetRequest)
	email = account.NormalizeEmail(email)

	acc, err := e.store.FindByEmail(ctx, email)
	switch {
	case err == nil && acc.IsActive:
		e.issueReset(ctx, acc)
	case err == nil:
		e.record(ctx, EventPasswordResetRequested, false, acc, acc.Email, "Account is inactive")
	case errors.Is(err, account.ErrNotFound):
		e.record(ctx, EventPasswordResetRequested, false, nil, email, "Email not registered")
	default:
		e.logger.Error().Err(err).Str("email", email).Msg("password reset lookup failed")
	}

	return result
}

func (e *Engine) issueReset(ctx context.Context, found *account.Account) {
	now := e.now()
	var token string
	acc, err := e.store.Update(ctx, found.ID, func(a *account.Account) error {
		if !a.IsActive {
			return errSkipWrite
		}
		t, err := e.resets.Issue(a, now)
		if err != nil {
			return err
		}
		a.UpdatedAt = now
		token = t
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkipWrite) {
			e.logger.Error().Err(err).Int64("account_id", found.ID).Msg("password reset issue failed")
		}
		return
	}

	e.record(ctx, EventPasswordResetRequested, true, acc, acc.Email, "Password reset token issued")
	displayName := acc.FullName
	if displayName == "" {
		displayName = acc.Email
	}
	e.sendResetEmail(ctx, acc.ID, acc.Email, token, displayName)
}

// sendResetEmail delivers in the background. The request context only
// contributes its values; delivery is bounded by Mail.Timeout.
func (e *Engine) sendResetEmail(ctx context.Context, accountID int64, address, token, displayName string) {
	if e.mailer == nil {
		e.metricInc(MetricPasswordResetEmailFailure)
		e.logger.Warn().Int64("account_id", accountID).Msg("password reset email skipped: no mailer configured")
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.metricInc(MetricPasswordResetEmailFailure)
		e.logger.Warn().Int64("account_id", accountID).Msg("password reset email skipped: engine closed")
		return
	}
	e.mailWG.Add(1)
	e.mu.Unlock()

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Mail.Timeout)
	go func() {
		defer e.mailWG.Done()
		defer cancel()

		ok, err := e.mailer.SendResetEmail(mailCtx, address, token, displayName)
		if err != nil || !ok {
			e.metricInc(MetricPasswordResetEmailFailure)
			e.logger.Warn().Err(err).Int64("account_id", accountID).Msg("password reset email failed to send")
			return
		}
		e.logger.Info().Int64("account_id", accountID).Msg("password reset email sent")
	}()
}

// ResetPassword consumes a reset token and installs the new password. It
// returns a *ValidationError for an out-of-bounds password, ErrInvalidToken
// when no account holds the token, ErrResetTokenExpired (after clearing the
// stale grant) and ErrInactive. Success also clears any lockout state.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if verr := e.validatePassword("new_password", req.NewPassword); verr != nil {
		return verr
	}
	if req.Token == "" {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return ErrInvalidToken
	}

	found, err := e.store.FindByResetToken(ctx, reset.Digest(req.Token))
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidToken
		}
		e.logger.Error().Err(err).Msg("password reset lookup failed")
		return storeError(err)
	}

	newHash, err := e.hasher.Hash(req.NewPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.logger.Error().Err(err).Int64("account_id", found.ID).Msg("password hashing failed")
		return storeError(err)
	}

	now := e.now()
	var outcome error
	acc, err := e.store.Update(ctx, found.ID, func(a *account.Account) error {
		outcome = nil
		if cerr := e.resets.Check(a, req.Token, now); cerr != nil {
			if errors.Is(cerr, reset.ErrExpired) {
				outcome = ErrResetTokenExpired
				a.UpdatedAt = now
				return nil
			}
			outcome = ErrInvalidToken
			return errSkipWrite
		}
		if !a.IsActive {
			outcome = ErrInactive
			return errSkipWrite
		}
		if cerr := e.resets.Consume(a, req.Token, newHash, now); cerr != nil {
			return cerr
		}
		a.UpdatedAt = now
		return nil
	})
	if err != nil && !errors.Is(err, errSkipWrite) {
		e.metricInc(MetricPasswordResetConfirmFailure)
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidToken
		}
		e.logger.Error().Err(err).Int64("account_id", found.ID).Msg("password reset update failed")
		return storeError(err)
	}
	if acc == nil {
		acc = found
	}

	if outcome != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		switch {
		case errors.Is(outcome, ErrResetTokenExpired):
			e.record(ctx, EventPasswordResetFailed, false, acc, acc.Email, "Reset token has expired")
		case errors.Is(outcome, ErrInactive):
			e.record(ctx, EventPasswordResetFailed, false, acc, acc.Email, "Account is inactive")
		}
		return outcome
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.record(ctx, EventPasswordChanged, true, acc, acc.Email, "Password changed via reset link")
	return nil
}
