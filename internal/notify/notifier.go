package notify

import (
	"context"

	"github.com/google/uuid"
)

// Notifier publishes events. Implementations must not block on slow subscribers.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber opens a stream of encoded events for one owner.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID uuid.UUID) (Subscription, error)
}

// Subscription is an open stream of encoded events.
type Subscription interface {
	// Messages yields encoded events. The channel is closed when the
	// subscription ends.
	Messages() <-chan []byte
	Close() error
}

// Broker is a notifier that clients can also subscribe to.
type Broker interface {
	Notifier
	Subscriber
	Close() error
}
