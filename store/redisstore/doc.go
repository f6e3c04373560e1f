// Package redisstore provides a Redis-backed account.Store and
// account.AuditLog.
//
// # Design
//
// Each account is persisted as a versioned record under its own key, with
// secondary index keys for the normalized email and the pending reset token
// digest. Update uses WATCH/MULTI optimistic transactions with automatic
// retry on contention, so concurrent read-modify-write cycles on one account
// are serialized. Audit events are kept in a per-account list, newest first,
// and are never trimmed; ListByAccount bounds what is read.
//
// # What this package must NOT do
//
//   - Import authcore or make authentication decisions.
//   - Store plaintext reset tokens; only digests reach Redis.
package redisstore
