package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
)

// Register validates req, rejects an already registered email with
// ErrEmailTaken and persists a new active account. Every outcome is audited.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if err := e.validateRegister(&req); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.record(ctx, EventRegisterFailed, false, nil, account.NormalizeEmail(req.Email), "Validation error: "+err.Error())
		return nil, err
	}
	email := account.NormalizeEmail(req.Email)

	if _, err := e.store.FindByEmail(ctx, email); err == nil {
		return nil, e.registerTaken(ctx, email)
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, e.registerError(ctx, email, err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.registerError(ctx, email, err)
	}

	now := e.now()
	acc := &account.Account{
		Email:        email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, e.registerTaken(ctx, email)
		}
		return nil, e.registerError(ctx, email, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.record(ctx, EventRegister, true, acc, acc.Email, "New user registered: "+acc.FullName)
	e.logger.Info().Int64("account_id", acc.ID).Str("role", acc.Role).Msg("account registered")

	return acc.Clone(), nil
}

func (e *Engine) registerTaken(ctx context.Context, email string) error {
	e.metricInc(MetricRegisterFailure)
	e.record(ctx, EventRegisterFailed, false, nil, email, "Email already registered")
	return ErrEmailTaken
}

func (e *Engine) registerError(ctx context.Context, email string, err error) error {
	e.metricInc(MetricRegisterFailure)
	e.logger.Error().Err(err).Str("email", email).Msg("registration failed")
	e.record(ctx, EventRegisterFailed, false, nil, email, "Registration error")
	return storeError(err)
}
