package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix    = "authcore"
	maxUpdateRetries = 8
)

// ErrRedisUnavailable wraps transport and server errors.
var ErrRedisUnavailable = errors.New("account redis unavailable")

// Options configures a Store.
type Options struct {
	// Prefix namespaces every key. Defaults to "authcore".
	Prefix string
}

// Store implements account.Store and account.AuditLog on Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

var (
	_ account.Store    = (*Store)(nil)
	_ account.AuditLog = (*Store)(nil)
)

// New returns a Store using redisClient.
func New(redisClient redis.UniversalClient, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	return &Store{
		redis:  redisClient,
		prefix: opts.Prefix,
		now:    time.Now,
	}
}

func (s *Store) accountKey(id int64) string {
	return s.prefix + ":acct:" + strconv.FormatInt(id, 10)
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

func (s *Store) resetKey(tokenHash string) string {
	return s.prefix + ":reset:" + tokenHash
}

func (s *Store) auditKey(accountID *int64) string {
	if accountID == nil {
		return s.prefix + ":audit:anon"
	}
	return s.prefix + ":audit:" + strconv.FormatInt(*accountID, 10)
}

func (s *Store) seqKey(name string) string {
	return s.prefix + ":seq:" + name
}

func (s *Store) Create(ctx context.Context, acc *account.Account) error {
	email := account.NormalizeEmail(acc.Email)
	emailKey := s.emailKey(email)

	id, err := s.redis.Incr(ctx, s.seqKey("acct")).Result()
	if err != nil {
		return unavailable(err)
	}

	stored := acc.Clone()
	stored.ID = id
	stored.Email = email
	now := s.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	encoded, err := encodeAccount(stored)
	if err != nil {
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return account.ErrEmailTaken
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.accountKey(id), encoded, 0)
				pipe.Set(ctx, emailKey, id, 0)
				if stored.Reset != nil {
					pipe.Set(ctx, s.resetKey(stored.Reset.TokenHash), id, 0)
				}
				return nil
			})
			return err
		}, emailKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, account.ErrEmailTaken) {
				return err
			}
			return unavailable(err)
		}

		acc.ID = stored.ID
		acc.Email = stored.Email
		acc.CreatedAt = stored.CreatedAt
		acc.UpdatedAt = stored.UpdatedAt
		return nil
	}
	return account.ErrConflict
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	id, err := s.lookupIndex(ctx, s.emailKey(account.NormalizeEmail(email)))
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *Store) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	data, err := s.redis.Get(ctx, s.accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return decodeAccount(data)
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*account.Account, error) {
	id, err := s.lookupIndex(ctx, s.resetKey(tokenHash))
	if err != nil {
		return nil, err
	}
	acc, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// The index may lag a concurrent update; the record is authoritative.
	if acc.Reset == nil || acc.Reset.TokenHash != tokenHash {
		return nil, account.ErrNotFound
	}
	return acc, nil
}

func (s *Store) Save(ctx context.Context, acc *account.Account) error {
	replacement := acc.Clone()
	_, err := s.Update(ctx, acc.ID, func(current *account.Account) error {
		*current = *replacement
		return nil
	})
	return err
}

// Update runs fn on the freshest copy of the account inside a WATCH/MULTI
// transaction, retrying when another writer touched the record first.
func (s *Store) Update(ctx context.Context, id int64, fn account.UpdateFunc) (*account.Account, error) {
	key := s.accountKey(id)

	for i := 0; i < maxUpdateRetries; i++ {
		var updated *account.Account

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return account.ErrNotFound
				}
				return err
			}
			prev, err := decodeAccount(data)
			if err != nil {
				return err
			}

			current := prev.Clone()
			if err := fn(current); err != nil {
				return err
			}
			current.ID = id
			current.Email = account.NormalizeEmail(current.Email)

			if current.Email != prev.Email {
				owner, err := tx.Get(ctx, s.emailKey(current.Email)).Int64()
				switch {
				case err == nil && owner != id:
					return account.ErrEmailTaken
				case err != nil && !errors.Is(err, redis.Nil):
					return err
				}
			}

			encoded, err := encodeAccount(current)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				if current.Email != prev.Email {
					pipe.Del(ctx, s.emailKey(prev.Email))
					pipe.Set(ctx, s.emailKey(current.Email), id, 0)
				}
				if prev.Reset != nil && (current.Reset == nil || current.Reset.TokenHash != prev.Reset.TokenHash) {
					pipe.Del(ctx, s.resetKey(prev.Reset.TokenHash))
				}
				if current.Reset != nil {
					pipe.Set(ctx, s.resetKey(current.Reset.TokenHash), id, 0)
				}
				return nil
			})
			if err != nil {
				return err
			}

			updated = current
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, passThrough(err)
		}
		return updated, nil
	}

	return nil, account.ErrConflict
}

func (s *Store) Append(ctx context.Context, event *account.AuditEvent) error {
	id, err := s.redis.Incr(ctx, s.seqKey("audit")).Result()
	if err != nil {
		return unavailable(err)
	}
	event.ID = id
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Audit lists are append-only; readers bound the range instead.
	if err := s.redis.LPush(ctx, s.auditKey(event.AccountID), encoded).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit int) ([]account.AuditEvent, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := s.redis.LRange(ctx, s.auditKey(&accountID), 0, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]account.AuditEvent, 0, len(raw))
	for _, item := range raw {
		var ev account.AuditEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) lookupIndex(ctx context.Context, key string) (int64, error) {
	id, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, account.ErrNotFound
		}
		return 0, unavailable(err)
	}
	return id, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

// passThrough keeps domain errors and caller errors from fn intact.
func passThrough(err error) error {
	var redisErr redis.Error
	switch {
	case errors.Is(err, errRecordVersion):
		return err
	case errors.As(err, &redisErr), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return unavailable(err)
	default:
		return err
	}
}
