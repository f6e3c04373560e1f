package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/account"
)

// Audit event types.
const (
	EventRegister               = "register"
	EventRegisterFailed         = "register_failed"
	EventLogin                  = "login"
	EventLoginFailed            = "login_failed"
	EventTokenRefresh           = "token_refresh"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordResetFailed    = "password_reset_failed"
	EventPasswordChanged        = "password_changed"
	EventLogout                 = "logout"
)

// record stamps and emits one audit event. It never fails; delivery errors
// are logged by auditFailed.
func (e *Engine) record(
	ctx context.Context,
	eventType string,
	success bool,
	acc *account.Account,
	email string,
	details string,
) {
	if e == nil || e.sink == nil {
		return
	}

	event := account.AuditEvent{
		EventType: eventType,
		Email:     truncateRunes(email, maxAuditEmailLength),
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Details:   details,
		Success:   success,
		CreatedAt: e.now(),
	}
	if acc != nil {
		event.AccountID = account.AccountIDPtr(acc.ID)
		if event.Email == "" {
			event.Email = truncateRunes(acc.Email, maxAuditEmailLength)
		}
	}

	// A cancelled request must not lose its audit trail.
	e.sink.Emit(context.WithoutCancel(ctx), event)
}

func (e *Engine) auditFailed(event account.AuditEvent, err error) {
	e.metricInc(MetricAuditFailure)
	e.logger.Error().
		Err(err).
		Str("event_type", event.EventType).
		Str("email", event.Email).
		Msg("failed to record audit event")
}

func (e *Engine) auditDropped(event account.AuditEvent) {
	e.logger.Warn().
		Str("event_type", event.EventType).
		Str("email", event.Email).
		Bool("success", event.Success).
		Msg("audit buffer full; event dropped")
}

// AuditLog returns the most recent events recorded for accountID, newest
// first. A limit <= 0 selects Audit.DefaultReadLimit; larger limits are
// capped at Audit.MaxReadLimit.
func (e *Engine) AuditLog(ctx context.Context, accountID int64, limit int) ([]account.AuditEvent, error) {
	if e == nil || e.auditLog == nil {
		return nil, ErrEngineNotReady
	}
	if limit <= 0 {
		limit = e.config.Audit.DefaultReadLimit
	}
	if limit > e.config.Audit.MaxReadLimit {
		limit = e.config.Audit.MaxReadLimit
	}

	events, err := e.auditLog.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}
