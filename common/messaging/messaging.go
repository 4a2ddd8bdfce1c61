// Package messaging abstracts the message bus carrying raw and
// normalized events so the pipeline is not coupled to a specific broker.
package messaging

import (
	"context"
	"time"
)

// Message is one message received from or sent to the bus.
type Message struct {
	// Subject is the topic the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value header pairs.
	Metadata map[string]string

	// Timestamp is when the message was delivered to the subscriber.
	Timestamp time.Time
}

// MessageHandler processes a received message. Returning an error marks
// the message as failed; delivery semantics depend on the broker.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active subscription to a subject.
type Subscription interface {
	// Unsubscribe stops receiving messages on this subscription.
	Unsubscribe() error

	// Subject returns the subject this subscription listens to.
	Subject() string
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message to the subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishJSON marshals data to JSON and publishes it.
	PublishJSON(ctx context.Context, subject string, data any) error
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	// Subscribe creates a fan-out subscription to the subject.
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe creates a load-balanced subscription: workers in
	// the same queue group each see a message once.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)
}

// Client combines publishing and subscribing with lifecycle control.
type Client interface {
	Publisher
	Subscriber

	// Drain stops new deliveries, lets in-flight handlers finish, and
	// closes the connection.
	Drain() error

	// Close releases all resources immediately.
	Close() error
}
