// Package middleware exposes HTTP middleware adapters over authcore.Engine.
//
// # Guards
//
//   - [Guard] verifies the access token only; no store call.
//   - [RequireActive] also loads the account and rejects deactivated ones.
//   - [ClientInfo] records the caller's IP and user agent for auditing.
//
// Guards read the token from the Authorization header, falling back to the
// access_token cookie, and inject the validated principal into the request
// context with authcore.WithPrincipal.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.ValidateAccess and Engine.AccountFor.
package middleware
