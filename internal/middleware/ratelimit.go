package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/request"
)

// DefaultRateLimit is used when no rate is configured
const DefaultRateLimit = "20-S"

// RateLimitStore is a limiter store plus whatever connection backs it
type RateLimitStore struct {
	limiter.Store
	redis *redis.Client
}

// NewRateLimitStore returns a Redis-backed store when redisURL is set, otherwise an in-memory one
func NewRateLimitStore(ctx context.Context, redisURL string) (*RateLimitStore, error) {
	if redisURL == "" {
		return &RateLimitStore{Store: memorystore.NewStore()}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "todoms_ratelimit"})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create Redis rate limit store: %w", err)
	}
	return &RateLimitStore{Store: store, redis: client}, nil
}

// Ping checks the backing Redis connection; memory stores are always healthy
func (s *RateLimitStore) Ping(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Ping(ctx).Err()
}

// Close closes the Redis connection if there is one
func (s *RateLimitStore) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

// RateLimit returns middleware limiting each client IP to rate (ulule format, e.g. "20-S")
func RateLimit(store limiter.Store, rate string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	instance := limiter.New(store, parsed)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, models.ErrCodeRateLimited, "Too many requests")
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("rate_limit_store_error", zap.String("error", logpkg.SanitizeError(err)))
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Rate limiter unavailable")
		}),
	)
	return mw.Handler, nil
}
