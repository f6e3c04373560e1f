// Package authcore is an authentication and session-security engine: Argon2id
// credential hashing, HMAC-signed access and refresh tokens, a per-account
// lockout state machine, a single-use password-reset lifecycle, and an audit
// trail of every security-relevant transition.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config] and
// the request/result types. Persistence is the [account.Store] and
// [account.AuditLog] collaborators; email delivery is the [Mailer]. Lockout,
// reset-token and audit dispatch mechanics live under internal/.
//
// # Error contract
//
// Login deliberately reports [ErrNotFound] for unknown emails while
// [Engine.ForgotPassword] returns the same result for every input. Locked and
// wrong-password outcomes carry actionable detail through [*LockedError] and
// [*InvalidCredentialsError]. Persistence failures wrap [ErrUnavailable].
// [Category] maps any returned error to its class.
//
// # Concurrency
//
// Every read-modify-write of an account runs inside [account.Store.Update].
// Reset emails are sent from background goroutines; [Engine.Close] waits for
// them.
package authcore
