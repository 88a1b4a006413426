// Package request carries per-request values through the handler chain.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/benvon/todoms/internal/models"
)

type (
	userKey      struct{}
	requestIDKey struct{}
)

// ClientIP returns the address a request originated from.
// The first valid X-Forwarded-For entry wins, then X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithUser attaches the authenticated user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, or nil on public routes
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey{}).(*models.User)
	return u
}

// UserID returns the authenticated user's id or ""
func UserID(ctx context.Context) string {
	if u, _ := ctx.Value(userKey{}).(*models.User); u != nil {
		return u.ID
	}
	return ""
}

// WithRequestID attaches the correlation id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation id, or "" when none was attached
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
