package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed is returned when publishing to a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// MemoryQueue is an in-process EventQueue. Nacked messages without requeue are kept as dead letters.
type MemoryQueue struct {
	// sendMu guards events against sends after close
	sendMu sync.RWMutex
	closed bool

	mu       sync.Mutex
	events   chan *Event
	inflight map[uint64]*Event
	dead     []*Event
	nextTag  uint64
}

// NewMemoryQueue creates a queue holding up to capacity undelivered events
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		events:   make(chan *Event, capacity),
		inflight: make(map[uint64]*Event),
	}
}

// Publish enqueues event, blocking while the buffer is full
func (q *MemoryQueue) Publish(ctx context.Context, event *Event) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers events until ctx is cancelled or the queue is closed
func (q *MemoryQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error)

	go func() {
		defer close(msgChan)
		defer close(errChan)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.events:
				if !ok {
					return
				}
				q.mu.Lock()
				q.nextTag++
				tag := q.nextTag
				q.inflight[tag] = event
				q.mu.Unlock()

				select {
				case <-ctx.Done():
					return
				case msgChan <- &Message{Event: event, DeliveryTag: tag, Acknowledger: q}:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// Ack implements amqp.Acknowledger
func (q *MemoryQueue) Ack(tag uint64, _ bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[tag]; !ok {
		return errors.New("unknown delivery tag")
	}
	delete(q.inflight, tag)
	return nil
}

// Nack implements amqp.Acknowledger
func (q *MemoryQueue) Nack(tag uint64, _ bool, requeue bool) error {
	q.mu.Lock()
	event, ok := q.inflight[tag]
	if !ok {
		q.mu.Unlock()
		return errors.New("unknown delivery tag")
	}
	delete(q.inflight, tag)
	q.mu.Unlock()

	if requeue && q.requeue(event) {
		return nil
	}
	q.mu.Lock()
	q.dead = append(q.dead, event)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) requeue(event *Event) bool {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.events <- event:
		return true
	default:
		return false
	}
}

// Reject implements amqp.Acknowledger
func (q *MemoryQueue) Reject(tag uint64, requeue bool) error {
	return q.Nack(tag, false, requeue)
}

// DeadLetters returns the events that were nacked without requeue
func (q *MemoryQueue) DeadLetters() []*Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Event(nil), q.dead...)
}

// PurgeOlderThan drops dead letters created more than retention ago
func (q *MemoryQueue) PurgeOlderThan(_ context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.dead[:0]
	for _, event := range q.dead {
		if event.CreatedAt.After(cutoff) {
			kept = append(kept, event)
		}
	}
	purged := len(q.dead) - len(kept)
	clear(q.dead[len(kept):])
	q.dead = kept
	return purged, nil
}

// HealthCheck reports an error once the queue is closed
func (q *MemoryQueue) HealthCheck(context.Context) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close stops further publishing and ends consumers once the buffer drains
func (q *MemoryQueue) Close() error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.events)
	return nil
}
