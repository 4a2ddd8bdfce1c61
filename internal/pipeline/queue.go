// Package pipeline implements the streaming fabric of the normalizer:
// bounded FIFO queues, transformer workers, the per-source-type event
// demuxer, and the parse/translate event processor.
package pipeline

import (
	"context"
	"sync"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// Source is anything events can be taken from in FIFO order.
type Source interface {
	Take(ctx context.Context) (*event.Event, error)
}

// Sink is anything events can be put into.
type Sink interface {
	Put(ctx context.Context, e *event.Event) error
}

// Queue is a thread-safe FIFO of events with an optional capacity bound.
// Put blocks while the queue is full, Take blocks while it is empty; both
// honor context cancellation. Capacity 0 means unbounded, in which case
// Put never blocks.
type Queue struct {
	capacity int

	// bounded mode
	ch chan *event.Event

	// unbounded mode
	mu       sync.Mutex
	items    []*event.Event
	notEmpty chan struct{}
}

// NewQueue creates a queue with the given capacity. Capacity 0 creates an
// unbounded queue.
func NewQueue(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	if capacity > 0 {
		q.ch = make(chan *event.Event, capacity)
	} else {
		q.notEmpty = make(chan struct{})
	}
	return q
}

// Put appends e to the queue, blocking while the queue is at capacity.
func (q *Queue) Put(ctx context.Context, e *event.Event) error {
	if q.ch != nil {
		select {
		case q.ch <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	q.mu.Lock()
	q.items = append(q.items, e)
	wake := q.notEmpty
	q.notEmpty = make(chan struct{})
	q.mu.Unlock()

	// Broadcast to every waiting consumer.
	close(wake)
	return nil
}

// Take removes and returns the oldest event, blocking while the queue is
// empty.
func (q *Queue) Take(ctx context.Context) (*event.Event, error) {
	if q.ch != nil {
		select {
		case e := <-q.ch:
			return e, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, nil
		}
		wait := q.notEmpty
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Available returns a snapshot of the number of queued events.
func (q *Queue) Available() int {
	if q.ch != nil {
		return len(q.ch)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
