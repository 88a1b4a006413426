package workers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/queue"
)

// ErrUnknownEvent is returned for event types the recorder does not handle
var ErrUnknownEvent = errors.New("unknown event type")

// ActivitySink stores activity events
type ActivitySink interface {
	Record(ctx context.Context, event *queue.Event) error
}

// LogSink writes each event as a structured audit log entry
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record logs the event
func (s *LogSink) Record(_ context.Context, event *queue.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", logger.SanitizeID(event.UserID)),
		zap.Time("occurred_at", event.CreatedAt),
	}
	if event.TodoID != "" {
		fields = append(fields, zap.String("todo_id", logger.SanitizeID(event.TodoID)))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", logger.SanitizeString(event.RequestID, 64)))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	s.logger.Info("todo_activity", fields...)
	return nil
}

// ActivityRecorder processes activity events from the queue
type ActivityRecorder struct {
	sink      ActivitySink
	publisher queue.Publisher // for re-publishing failed events with a bumped retry count
	logger    *zap.Logger
}

// NewActivityRecorder creates a new activity recorder
func NewActivityRecorder(sink ActivitySink, publisher queue.Publisher, logger *zap.Logger) *ActivityRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRecorder{
		sink:      sink,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessMessage records one message and acknowledges it.
// Unknown types go to the DLQ; sink failures are retried until MaxRetries.
func (a *ActivityRecorder) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()

	if !event.IsKnown() {
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Warn("failed_to_nack_event", zap.Error(nackErr))
		}
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event.Type)
	}

	if err := a.sink.Record(ctx, event); err != nil {
		return a.handleError(ctx, msg, event, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack event: %w", ackErr)
	}
	return nil
}

// Run processes messages until ctx is cancelled or msgs is closed
func (a *ActivityRecorder) Run(ctx context.Context, msgs <-chan *queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				a.logger.Info("message_channel_closed")
				return
			}
			if err := a.ProcessMessage(ctx, msg); err != nil {
				a.logger.Error("failed_to_process_event",
					zap.Error(err),
					zap.String("event_id", msg.GetEvent().ID.String()),
					zap.String("event_type", string(msg.GetEvent().Type)),
				)
			}
		}
	}
}

func (a *ActivityRecorder) handleError(ctx context.Context, msg queue.MessageInterface, event *queue.Event, err error) error {
	if !event.CanRetry() {
		a.logger.Warn("event_retries_exhausted",
			zap.String("event_id", event.ID.String()),
			zap.Int("max_retries", event.MaxRetries),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Warn("failed_to_nack_event", zap.Error(nackErr))
		}
		return fmt.Errorf("event failed (max retries): %w", err)
	}

	retry := *event
	retry.IncrementRetry()

	if a.publisher != nil {
		pubErr := a.publisher.Publish(ctx, &retry)
		if pubErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				a.logger.Warn("failed_to_ack_event", zap.Error(ackErr))
			}
			return fmt.Errorf("event failed (attempt %d/%d, re-published): %w", retry.RetryCount, retry.MaxRetries, err)
		}
		a.logger.Warn("failed_to_republish_event", zap.Error(pubErr))
	}

	if nackErr := msg.Nack(true); nackErr != nil {
		a.logger.Warn("failed_to_nack_event", zap.Error(nackErr))
	}
	return fmt.Errorf("event failed (will retry): %w", err)
}
