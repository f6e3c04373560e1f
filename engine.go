package authcore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/lockout"
	"github.com/MrEthical07/authcore/internal/reset"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// errSkipWrite aborts a Store.Update without writing. The caller reads the
// outcome captured by the update function instead.
var errSkipWrite = errors.New("authcore: skip write")

// Engine is the auth orchestrator. It is safe for concurrent use; the only
// shared mutable state is the account row held by the Store.
type Engine struct {
	config     Config
	store      account.Store
	auditLog   account.AuditLog
	sink       audit.Sink
	dispatcher *audit.Dispatcher
	mailer     Mailer
	logger     zerolog.Logger
	clock      func() time.Time
	hasher     *password.Hasher
	codec      *jwt.Codec
	lockout    lockout.Policy
	resets     *reset.Manager
	validate   *validator.Validate
	metrics    *Metrics
	sleep      func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	closed bool
	mailWG sync.WaitGroup
}

// Close waits for in-flight reset emails and flushes queued audit events.
// Operations remain usable afterwards: no further emails are sent and audit
// events are recorded synchronously.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.mailWG.Wait()
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// AuditDropped reports events the async audit buffer could not deliver.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.dispatcher == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.hasher != nil && e.codec != nil
}

func (e *Engine) issuePair(acc *account.Account) (*TokenPair, error) {
	subject := strconv.FormatInt(acc.ID, 10)
	access, err := e.codec.IssueAccess(subject, acc.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := e.codec.IssueRefresh(subject)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		AccessTTL:    e.codec.AccessTTL(),
		RefreshTTL:   e.codec.RefreshTTL(),
	}, nil
}

// randomDelay picks a uniform duration in [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)+1))
	if err != nil {
		return max
	}
	return min + time.Duration(n.Int64())
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
