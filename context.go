package authcore

import (
	"context"
	"net"
	"strings"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type principalContextKey struct{}

// Bounds applied to request data copied into audit events.
const (
	maxUserAgentLength  = 500
	maxAuditEmailLength = 255
	unknownClientIP     = "unknown"
)

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into every audit event recorded for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithPrincipal stores a validated principal on ctx. The middleware package
// uses it after a successful ValidateAccess.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return normalizeClientIP(ip)
}

// normalizeClientIP returns ip in canonical form, "" when unset, and
// "unknown" for anything that is not an IP address.
func normalizeClientIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || ip == unknownClientIP {
		return ip
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return unknownClientIP
	}
	return parsed.String()
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return truncateRunes(userAgent, maxUserAgentLength)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
