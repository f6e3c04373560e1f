// Package jwt is the token codec: it issues and verifies the HMAC-signed
// access and refresh tokens handed out by the engine.
//
// Tokens carry the subject (account id), a kind claim ("type": "access" or
// "refresh"), issued-at, expiry and a random token id. Nothing is stored
// server-side; a token is valid exactly when its signature verifies and its
// expiry has not passed.
//
// # Error contract
//
//   - [ErrInvalidToken]: the token was never valid (bad signature, malformed,
//     wrong algorithm, unknown kind, missing subject, issuer mismatch).
//   - [ErrExpired]: the token verified but is past its expiry.
//   - [ErrWrongKind]: returned by [Codec.VerifyKind] when a valid token of the
//     other kind is presented.
package jwt
