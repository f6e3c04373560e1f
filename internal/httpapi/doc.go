// Package httpapi mounts the authcore engine on a chi router under /auth.
//
// Tokens are returned in the JSON body and mirrored into httpOnly cookies
// (access_token, refresh_token). Engine errors are mapped to HTTP status
// codes in errors.go; backend failures never leak their cause.
package httpapi
