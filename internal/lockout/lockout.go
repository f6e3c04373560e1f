// Package lockout implements the per-account failed-login state machine.
//
// The tracker is pure: it mutates the *account.Account it is handed and
// returns a Decision describing the transition. Persisting the account is the
// caller's job, normally inside a single store transaction.
package lockout

import (
	"time"

	"github.com/MrEthical07/authcore/account"
)

// State tags the outcome of a tracker transition.
type State int

const (
	// Open means the account may attempt to log in.
	Open State = iota
	// Unlocked means an expired lock was lifted during this check.
	Unlocked
	// Locked means an unexpired lock rejects the attempt.
	Locked
	// Failed means a failure was counted and attempts remain.
	Failed
	// LockedOut means the failure just counted reached the threshold.
	LockedOut
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	case Failed:
		return "failed"
	case LockedOut:
		return "locked_out"
	default:
		return "unknown"
	}
}

// Decision is the tagged result of Check and RecordFailure.
type Decision struct {
	State State

	// Until and MinutesRemaining are set for Locked and LockedOut.
	Until            time.Time
	MinutesRemaining int

	// RemainingAttempts is set for Failed; it is negative when the policy
	// is disabled and attempts are unlimited.
	RemainingAttempts int
}

// Blocked reports whether the login attempt must be rejected as locked.
func (d Decision) Blocked() bool {
	return d.State == Locked || d.State == LockedOut
}

// Policy configures the tracker. A Threshold or Duration of zero or less
// disables it.
type Policy struct {
	Threshold int
	Duration  time.Duration
}

// Enabled reports whether failures are counted at all.
func (p Policy) Enabled() bool {
	return p.Threshold > 0 && p.Duration > 0
}

// Check evaluates the lock state before a login attempt. An expired lock is
// lifted in place and its attempt counter cleared.
//
// Locks are honored even when the policy is disabled so that a lock written
// under a previous configuration still runs its course.
func (p Policy) Check(acc *account.Account, now time.Time) Decision {
	if !acc.IsLocked {
		return Decision{State: Open}
	}
	if acc.LockedUntil != nil && acc.LockedUntil.After(now) {
		until := *acc.LockedUntil
		return Decision{State: Locked, Until: until, MinutesRemaining: minutesUntil(until, now)}
	}

	acc.ClearLockout()
	return Decision{State: Unlocked}
}

// RecordFailure counts a failed password attempt. Reaching the threshold
// locks the account until now+Duration.
func (p Policy) RecordFailure(acc *account.Account, now time.Time) Decision {
	if !p.Enabled() {
		return Decision{State: Failed, RemainingAttempts: -1}
	}

	acc.FailedAttempts++
	if acc.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		acc.IsLocked = true
		acc.LockedUntil = &until
		return Decision{State: LockedOut, Until: until, MinutesRemaining: minutesUntil(until, now)}
	}
	return Decision{State: Failed, RemainingAttempts: p.Threshold - acc.FailedAttempts}
}

// RecordSuccess resets the counter and stamps the login time.
func (p Policy) RecordSuccess(acc *account.Account, now time.Time) {
	acc.ClearLockout()
	t := now
	acc.LastLogin = &t
}

// Clear forgives prior failures and any active lock.
func (p Policy) Clear(acc *account.Account) {
	acc.ClearLockout()
}

// minutesUntil rounds up so a locked account never reports zero minutes.
func minutesUntil(until, now time.Time) int {
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
