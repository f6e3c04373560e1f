// Package postgres is a PostgreSQL account.Store and account.AuditLog on
// database/sql with the pgx driver.
//
// Update locks the row with SELECT ... FOR UPDATE inside a transaction, so
// concurrent read-modify-write cycles on one account are serialized by the
// database. Schema migrations are embedded and applied with goose.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/dbx"
	"github.com/MrEthical07/authcore/store/postgres/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	uniqueViolation = "23505"
	emailConstraint = "users_email_key"
)

const accountColumns = `id, email, full_name, password, role, is_active, is_locked,
		failed_login_attempts, locked_until, last_login,
		password_reset_token, password_reset_expires, created_at, updated_at`

// Store implements account.Store and account.AuditLog.
type Store struct {
	db *sql.DB
}

var (
	_ account.Store    = (*Store)(nil)
	_ account.AuditLog = (*Store)(nil)
)

// New wraps db. Call Migrate before first use against an empty database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx stdlib driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, acc *account.Account) error {
	acc.Email = account.NormalizeEmail(acc.Email)
	resetToken, resetExpires := resetColumns(acc)

	query :=
		`INSERT INTO users (email, full_name, password, role, is_active, is_locked,
			failed_login_attempts, locked_until, last_login,
			password_reset_token, password_reset_expires, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()), COALESCE($13, now()))
		 RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		acc.Email, acc.FullName, acc.PasswordHash, acc.Role, acc.IsActive, acc.IsLocked,
		acc.FailedAttempts, nullTime(acc.LockedUntil), nullTime(acc.LastLogin),
		resetToken, resetExpires, nonZeroTime(acc.CreatedAt), nonZeroTime(acc.UpdatedAt),
	).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return findOne(ctx, s.db, `SELECT `+accountColumns+` FROM users WHERE email = $1`, account.NormalizeEmail(email))
}

func (s *Store) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	return findOne(ctx, s.db, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*account.Account, error) {
	return findOne(ctx, s.db, `SELECT `+accountColumns+` FROM users WHERE password_reset_token = $1`, tokenHash)
}

func (s *Store) Save(ctx context.Context, acc *account.Account) error {
	return save(ctx, s.db, acc)
}

func (s *Store) Update(ctx context.Context, id int64, fn account.UpdateFunc) (*account.Account, error) {
	var updated *account.Account

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := findOne(ctx, tx, `SELECT `+accountColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		current.ID = id
		if err := save(ctx, tx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Append(ctx context.Context, event *account.AuditEvent) error {
	query :=
		`INSERT INTO audit_logs (user_id, event_type, ip_address, user_agent, email, details, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	var userID sql.NullInt64
	if event.AccountID != nil {
		userID = sql.NullInt64{Int64: *event.AccountID, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query,
		userID, event.EventType, nullString(event.IPAddress), nullString(event.UserAgent),
		nullString(event.Email), nullString(event.Details), event.Success, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit int) ([]account.AuditEvent, error) {
	query :=
		`SELECT id, user_id, event_type, ip_address, user_agent, email, details, success, created_at
		 FROM audit_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]account.AuditEvent, 0)
	for rows.Next() {
		var (
			ev                            account.AuditEvent
			userID                        sql.NullInt64
			ip, userAgent, email, details sql.NullString
		)
		if err := rows.Scan(&ev.ID, &userID, &ev.EventType, &ip, &userAgent, &email, &details, &ev.Success, &ev.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		if userID.Valid {
			ev.AccountID = account.AccountIDPtr(userID.Int64)
		}
		ev.IPAddress, ev.UserAgent, ev.Email, ev.Details = ip.String, userAgent.String, email.String, details.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func findOne(ctx context.Context, db dbx.DBTX, query string, arg any) (*account.Account, error) {
	var (
		acc                    account.Account
		lockedUntil, lastLogin sql.NullTime
		resetToken             sql.NullString
		resetExpires           sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&acc.ID, &acc.Email, &acc.FullName, &acc.PasswordHash, &acc.Role, &acc.IsActive, &acc.IsLocked,
		&acc.FailedAttempts, &lockedUntil, &lastLogin,
		&resetToken, &resetExpires, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if lockedUntil.Valid {
		t := lockedUntil.Time
		acc.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acc.LastLogin = &t
	}
	if resetToken.Valid && resetToken.String != "" && resetExpires.Valid {
		acc.Reset = &account.ResetGrant{TokenHash: resetToken.String, ExpiresAt: resetExpires.Time}
	}
	return &acc, nil
}

func save(ctx context.Context, db dbx.DBTX, acc *account.Account) error {
	resetToken, resetExpires := resetColumns(acc)

	query :=
		`UPDATE users SET email = $2, full_name = $3, password = $4, role = $5,
			is_active = $6, is_locked = $7, failed_login_attempts = $8,
			locked_until = $9, last_login = $10,
			password_reset_token = $11, password_reset_expires = $12, updated_at = $13
		 WHERE id = $1`

	res, err := db.ExecContext(ctx, query,
		acc.ID, account.NormalizeEmail(acc.Email), acc.FullName, acc.PasswordHash, acc.Role,
		acc.IsActive, acc.IsLocked, acc.FailedAttempts,
		nullTime(acc.LockedUntil), nullTime(acc.LastLogin),
		resetToken, resetExpires, acc.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func resetColumns(acc *account.Account) (sql.NullString, sql.NullTime) {
	if acc.Reset == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: acc.Reset.TokenHash, Valid: true},
		sql.NullTime{Time: acc.Reset.ExpiresAt, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonZeroTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return account.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailConstraint:
		return account.ErrEmailTaken
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
