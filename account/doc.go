// Package account defines the persisted records of the authentication core
// (Account and AuditEvent) and the collaborator interfaces that storage
// backends implement.
//
// # Architecture boundaries
//
// account is a leaf package. The engine (package authcore) and every store
// implementation under store/ import it; it imports neither.
//
// # Invariants
//
//   - Email is stored trimmed and lower-cased; stores enforce uniqueness on it.
//   - IsLocked implies LockedUntil is non-nil.
//   - The reset token digest and its expiry live in a single [ResetGrant]
//     value, so they are set and cleared together.
//   - AuditEvent rows are append-only.
package account
