package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Connection retry defaults for RabbitMQ, which often starts after the services that need it
const (
	DefaultConnectAttempts = 10
	initialConnectDelay    = 2 * time.Second
	maxConnectDelay        = 30 * time.Second
)

// dialFunc opens a queue connection
type dialFunc func(url string, logger *zap.Logger) (*RabbitMQQueue, error)

// ConnectRabbitMQ dials RabbitMQ, retrying with exponential backoff up to attempts times
func ConnectRabbitMQ(ctx context.Context, url string, attempts int, logger *zap.Logger) (*RabbitMQQueue, error) {
	return connectWithRetry(ctx, url, attempts, initialConnectDelay, NewRabbitMQQueue, logger)
}

func connectWithRetry(ctx context.Context, url string, attempts int, initialDelay time.Duration, dial dialFunc, logger *zap.Logger) (*RabbitMQQueue, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := dial(url, logger)
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return q, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), maxConnectDelay)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", attempts),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}
