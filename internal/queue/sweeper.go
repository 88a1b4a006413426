package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// DeadLetterSweeper drops activity events that have sat in the dead letter queue longer than retention
type DeadLetterSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	swept     atomic.Int64
}

// NewDeadLetterSweeper creates a sweeper. A nil purger makes every sweep a no-op.
func NewDeadLetterSweeper(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *DeadLetterSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps once immediately and then every interval until ctx is cancelled
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("dlq_sweep_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep purges expired dead letters once
func (s *DeadLetterSweeper) Sweep(ctx context.Context) error {
	if s.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	s.swept.Add(int64(n))
	if err != nil {
		return fmt.Errorf("failed to purge dead letters: %w", err)
	}
	if n > 0 {
		s.logger.Info("dlq_swept",
			zap.Int("count", n),
			zap.Duration("retention", s.retention),
			zap.Int64("total", s.swept.Load()),
		)
	}
	return nil
}

// Swept returns how many dead letters this sweeper has removed
func (s *DeadLetterSweeper) Swept() int64 {
	return s.swept.Load()
}
