package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriptionBuffer is the number of undelivered events a subscriber may hold
// before further events to it are dropped.
const subscriptionBuffer = 16

// InMemoryBroker fans events out to subscribers within the current process.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
	logger *slog.Logger
}

var _ Broker = (*InMemoryBroker)(nil)

// NewInMemoryBroker creates a new InMemoryBroker.
func NewInMemoryBroker(logger *slog.Logger) *InMemoryBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		logger: logger.With("component", "in_memory_broker"),
	}
}

// Publish delivers event to every current subscriber of the owner's channel.
// Subscribers whose buffer is full miss the event.
func (b *InMemoryBroker) Publish(ctx context.Context, event Event) error {
	if b == nil {
		return ErrNotInitialized
	}

	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPublishFailed, event.Type, err)
	}

	channel := ChannelName(event.OwnerID)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for sub := range b.subs[channel] {
		select {
		case sub.ch <- payload:
		default:
			b.logger.Debug("dropping event for slow subscriber",
				"channel", channel,
				"event_type", event.Type,
				"entry_id", event.EntityID)
		}
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *InMemoryBroker) Subscribe(ctx context.Context, ownerID uuid.UUID) (Subscription, error) {
	if b == nil {
		return nil, ErrNotInitialized
	}

	channel := ChannelName(ownerID)
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		ch:      make(chan []byte, subscriptionBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}

	b.logger.Debug("subscriber added", "channel", channel, "subscriber_count", len(b.subs[channel]))
	return sub, nil
}

// Close ends every subscription.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subs := range b.subs {
		for sub := range subs {
			sub.closeOnce.Do(func() { close(sub.ch) })
		}
		delete(b.subs, channel)
	}
	return nil
}

func (b *InMemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.channel)
		}
	}
	sub.closeOnce.Do(func() { close(sub.ch) })
}

type memorySubscription struct {
	broker    *InMemoryBroker
	channel   string
	ch        chan []byte
	closeOnce sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	return nil
}
