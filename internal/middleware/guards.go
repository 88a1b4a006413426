package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
)

const (
	// DefaultMaxBodyBytes bounds request bodies
	DefaultMaxBodyBytes int64 = 256 << 10
	// DefaultRequestTimeout bounds handler execution
	DefaultRequestTimeout = 30 * time.Second
)

// JSONBody rejects request bodies that are not JSON or exceed maxBytes.
// Requests without a body pass through; the handler's decoder reports them.
func JSONBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				respondError(w, http.StatusRequestEntityTooLarge, models.ErrCodeValidation, "Request body too large")
				return
			}
			if r.ContentLength != 0 {
				contentType := r.Header.Get("Content-Type")
				if contentType == "" {
					respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Content-Type header is required")
					return
				}
				if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
					respondError(w, http.StatusUnsupportedMediaType, models.ErrCodeValidation, "Content-Type must be application/json")
					return
				}
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Deadline cancels handlers that run longer than timeout and answers 503
func Deadline(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	body, _ := json.Marshal(models.ErrorResponse{Code: models.ErrCodeInternal, Message: "Request timed out"})

	return func(next http.Handler) http.Handler {
		guarded := http.TimeoutHandler(next, timeout, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			guarded.ServeHTTP(wrapped, r)
			if wrapped.statusCode == http.StatusServiceUnavailable && r.Context().Err() == nil {
				logger.Warn("request_timed_out",
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.Duration("timeout", timeout),
				)
			}
		})
	}
}
