package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/validation"
)

const (
	// DefaultTimeout bounds a single request when no http.Client is supplied
	DefaultTimeout = 10 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read
	DefaultMaxResponseBytes int64 = 64 << 20
	// RequestIDHeader carries a per-request correlation id
	RequestIDHeader = "X-Request-ID"
)

// Client is the gateway to the todoms REST API.
// Every operation returns an Envelope and never a Go error.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	logger           *zap.Logger
	maxResponseBytes int64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMaxResponseBytes sets the largest response body the client accepts
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		logger:           zap.NewNop(),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request and normalizes the outcome into an Envelope.
// An empty token sends no Authorization header.
func do[T any](ctx context.Context, c *Client, method, path, token string, body any) Envelope[T] {
	requestID := uuid.NewString()
	start := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return clientError[T](fmt.Sprintf("failed to encode request: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return clientError[T](fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api_request_failed",
			zap.String("method", method),
			zap.String("path", logger.SanitizePath(path)),
			zap.String("request_id", requestID),
			zap.String("error", logger.SanitizeError(err)),
		)
		return clientError[T](err.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed_to_close_response_body", zap.Error(closeErr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return clientError[T](fmt.Sprintf("failed to read response: %v", err))
	}
	if int64(len(raw)) > c.maxResponseBytes {
		c.logger.Warn("api_response_too_large",
			zap.String("method", method),
			zap.String("path", logger.SanitizePath(path)),
			zap.Int("status", resp.StatusCode),
			zap.Int64("limit", c.maxResponseBytes),
			zap.String("request_id", requestID),
		)
		return clientError[T](fmt.Sprintf("response exceeds %d bytes", c.maxResponseBytes))
	}

	c.logger.Debug("api_request",
		zap.String("method", method),
		zap.String("path", logger.SanitizePath(path)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
		zap.String("token", logger.RedactToken(token)),
	)

	return decode[T](resp.StatusCode, raw, c.logger)
}

func decode[T any](status int, raw []byte, log *zap.Logger) Envelope[T] {
	if status == http.StatusNoContent {
		return Envelope[T]{StatusCode: status}
	}

	if status < 200 || status >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		env := httpError[T](status)
		if err := json.Unmarshal(raw, &apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
			log.Debug("unreadable_error_body",
				zap.Int("status", status),
				zap.String("body_preview", logger.SanitizeBodyPreview(raw)),
			)
			return env
		}
		if apiErr.Code != "" {
			env.Error.Code = apiErr.Code
		}
		if apiErr.Message != "" {
			env.Error.Message = apiErr.Message
		}
		return env
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return clientError[T](fmt.Sprintf("empty response body with status %d", status))
	}

	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return clientError[T](fmt.Sprintf("malformed response: %v", err))
	}
	if err := validation.Struct(&data); err != nil {
		log.Debug("response_schema_mismatch",
			zap.Int("status", status),
			zap.String("error", err.Error()),
		)
		return clientError[T](fmt.Sprintf("unexpected response shape: %v", err))
	}

	return Envelope[T]{Data: &data, StatusCode: status}
}
