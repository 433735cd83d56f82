// Package pubsub provides a small generic publish/subscribe hub used for
// log following and bridge activity notifications.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	// LoggedEvent carries a formatted log entry.
	LoggedEvent EventType = "logged"
	// PublishedEvent is emitted when the host appends a message to the bridge.
	PublishedEvent EventType = "published"
	// DeliveredEvent is emitted when a submitted payload reached the listeners.
	DeliveredEvent EventType = "delivered"
	// FailedEvent is emitted when a listener failed while handling a payload.
	FailedEvent EventType = "failed"
	// StoppedEvent is emitted once when the bridge shuts down.
	StoppedEvent EventType = "stopped"
	// ConnectedEvent is emitted when a surface reaches its host.
	ConnectedEvent EventType = "connected"
	// HandledEvent is emitted after a surface applied a host message.
	HandledEvent EventType = "handled"
)

// Event wraps a payload with its type and publication time.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out subscription channels.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher accepts events.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) int
}
