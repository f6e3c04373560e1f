package account

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no account matches a lookup.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned by Create when the normalized email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrConflict is returned by Update when a concurrent writer kept winning.
	ErrConflict = errors.New("account update conflict")
)

// UpdateFunc mutates the freshest copy of an account. Returning an error
// aborts the update and nothing is written.
type UpdateFunc func(acc *Account) error

// Store is the persistence collaborator for accounts.
//
// Every method is atomic per call. Update is the read-modify-write primitive:
// implementations run fn against the current row inside their transaction
// mechanism so that concurrent updates of one account are serialized.
type Store interface {
	Create(ctx context.Context, acc *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*Account, error)
	Save(ctx context.Context, acc *Account) error
	Update(ctx context.Context, id int64, fn UpdateFunc) (*Account, error)
}

// AuditLog is the append-only audit collaborator.
type AuditLog interface {
	Append(ctx context.Context, event *AuditEvent) error
	// ListByAccount returns events newest first, at most limit of them.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]AuditEvent, error)
}
