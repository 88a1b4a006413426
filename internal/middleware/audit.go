package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/request"
)

// auditEvent names the security event a response represents, or "" when there is none
func auditEvent(path string, status int) string {
	switch status {
	case http.StatusUnauthorized:
		switch {
		case strings.HasSuffix(path, "/auth/login"):
			return "login_rejected"
		case strings.HasSuffix(path, "/auth/refresh"):
			return "refresh_rejected"
		}
		return "token_rejected"
	case http.StatusForbidden:
		return "access_denied"
	case http.StatusTooManyRequests:
		return "rate_limit_violation"
	case http.StatusConflict:
		if strings.HasSuffix(path, "/auth/signup") {
			return "signup_email_taken"
		}
	}
	return ""
}

// Audit logs rejected logins, rejected tokens and rate limit hits
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			event := auditEvent(r.URL.Path, wrapped.statusCode)
			if event == "" {
				return
			}
			logger.Warn(event,
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				zap.String("request_id", request.RequestIDFromContext(r.Context())),
			)
		})
	}
}
