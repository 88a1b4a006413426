package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// Publisher publishes activity events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// EventQueue is the interface for activity event queues
type EventQueue interface {
	Publisher

	// Consume returns a channel of messages from the queue.
	// The caller is responsible for acknowledging each message.
	// The returned channels are closed when ctx is cancelled or the delivery stream ends.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention and reports how many it removed
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

var (
	_ EventQueue       = (*RabbitMQQueue)(nil)
	_ EventQueue       = (*MemoryQueue)(nil)
	_ DLQPurger        = (*RabbitMQQueue)(nil)
	_ DLQPurger        = (*MemoryQueue)(nil)
	_ Publisher        = NoopPublisher{}
	_ MessageInterface = (*Message)(nil)
)
