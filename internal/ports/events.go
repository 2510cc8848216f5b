package ports

import "context"

const (
	// EventRunStarted is emitted once the execution context for a run exists.
	EventRunStarted = "run.started"
	// EventRunCompleted is emitted after every segment was exported.
	EventRunCompleted = "run.completed"
	// EventRunCanceled is emitted when a run stops because cancellation was requested.
	EventRunCanceled = "run.canceled"
	// EventRunFailed is emitted when a run terminates with an error.
	EventRunFailed = "run.failed"
	// EventSegmentStarted is emitted after a segmenter is attached and before the provider runs.
	EventSegmentStarted = "segment.started"
	// EventSegmentCompleted is emitted when the provider finished a segment.
	EventSegmentCompleted = "segment.completed"
	// EventSegmentTeardownFailed is emitted when releasing the previous segmenter failed.
	EventSegmentTeardownFailed = "segment.teardown_failed"
)

// DomainEvent represents a significant occurrence during an export run.
// Events carry structured payloads that subscribers can use for logging,
// progress reporting, or integrations.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Implementations must be
// thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures are returned
// so publishers can log them and keep delivering to remaining subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler.
type Subscription interface {
	Unsubscribe()
}

// RunEventTypes lists every event a run publishes, in lifecycle order.
func RunEventTypes() []string {
	return []string{
		EventRunStarted,
		EventSegmentStarted,
		EventSegmentCompleted,
		EventSegmentTeardownFailed,
		EventRunCompleted,
		EventRunCanceled,
		EventRunFailed,
	}
}
