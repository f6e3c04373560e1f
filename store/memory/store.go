// Package memory is an in-process account.Store and account.AuditLog.
//
// Updates to one account are serialized by a per-account mutex; the update
// function runs on a private copy so a failed update leaves nothing behind.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/authcore/account"
)

// Store keeps accounts and audit events in maps. The zero value is not
// usable; call New.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*account.Account
	byEmail map[string]int64
	byReset map[string]int64
	locks   map[int64]*sync.Mutex

	auditMu     sync.RWMutex
	nextEventID int64
	events      []account.AuditEvent

	now func() time.Time
}

var (
	_ account.Store    = (*Store)(nil)
	_ account.AuditLog = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[int64]*account.Account),
		byEmail: make(map[string]int64),
		byReset: make(map[string]int64),
		locks:   make(map[int64]*sync.Mutex),
		now:     time.Now,
	}
}

func (s *Store) Create(ctx context.Context, acc *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := account.NormalizeEmail(acc.Email)
	if _, ok := s.byEmail[email]; ok {
		return account.ErrEmailTaken
	}

	s.nextID++
	acc.ID = s.nextID
	acc.Email = email
	now := s.now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	if acc.UpdatedAt.IsZero() {
		acc.UpdatedAt = now
	}

	stored := acc.Clone()
	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID
	if stored.Reset != nil {
		s.byReset[stored.Reset.TokenHash] = stored.ID
	}
	s.locks[stored.ID] = &sync.Mutex{}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[account.NormalizeEmail(email)]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byReset[tokenHash]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) Save(ctx context.Context, acc *account.Account) error {
	lock, err := s.lockFor(acc.ID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	return s.put(acc.Clone())
}

func (s *Store) Update(ctx context.Context, id int64, fn account.UpdateFunc) (*account.Account, error) {
	lock, err := s.lockFor(id)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	current.ID = id
	if err := s.put(current.Clone()); err != nil {
		return nil, err
	}
	return current, nil
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) lockFor(id int64) (*sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, ok := s.locks[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return lock, nil
}

// put replaces the stored row and keeps the secondary indexes in step.
func (s *Store) put(acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[acc.ID]
	if !ok {
		return account.ErrNotFound
	}
	acc.Email = account.NormalizeEmail(acc.Email)
	if acc.Email != prev.Email {
		if other, taken := s.byEmail[acc.Email]; taken && other != acc.ID {
			return account.ErrEmailTaken
		}
		delete(s.byEmail, prev.Email)
		s.byEmail[acc.Email] = acc.ID
	}
	if prev.Reset != nil {
		delete(s.byReset, prev.Reset.TokenHash)
	}
	if acc.Reset != nil {
		s.byReset[acc.Reset.TokenHash] = acc.ID
	}

	s.byID[acc.ID] = acc
	return nil
}

func (s *Store) Append(ctx context.Context, event *account.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	s.nextEventID++
	event.ID = s.nextEventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	stored := *event
	if event.AccountID != nil {
		stored.AccountID = account.AccountIDPtr(*event.AccountID)
	}
	s.events = append(s.events, stored)
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit int) ([]account.AuditEvent, error) {
	s.auditMu.RLock()
	defer s.auditMu.RUnlock()

	out := make([]account.AuditEvent, 0)
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		ev := s.events[i]
		if ev.AccountID == nil || *ev.AccountID != accountID {
			continue
		}
		ev.AccountID = account.AccountIDPtr(*ev.AccountID)
		out = append(out, ev)
	}
	return out, nil
}

// Events returns every recorded event in insertion order, including those
// not tied to an account.
func (s *Store) Events() []account.AuditEvent {
	s.auditMu.RLock()
	defer s.auditMu.RUnlock()
	return append([]account.AuditEvent(nil), s.events...)
}
