package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBroker publishes events through Redis Pub/Sub, so that every API
// instance can stream events produced by any worker.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker creates a RedisBroker from a Redis URL.
func NewRedisBroker(redisURL string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	// Publish deadlines come from the caller's context.
	opts.ContextTimeoutEnabled = true
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{
		client: redis.NewClient(opts),
		logger: logger.With("component", "redis_broker"),
	}, nil
}

// Ping checks connectivity to Redis.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish implements Notifier. Events published while no one is subscribed are lost.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	if b == nil || b.client == nil {
		return ErrNotInitialized
	}

	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPublishFailed, event.Type, err)
	}

	channel := ChannelName(event.OwnerID)
	receivers, err := b.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("%w: channel %s: %w", ErrPublishFailed, channel, err)
	}

	b.logger.Debug("event published",
		"channel", channel,
		"event_type", event.Type,
		"entry_id", event.EntityID,
		"receivers", receivers)
	return nil
}

// Subscribe implements Subscriber. It returns once Redis has confirmed the subscription.
func (b *RedisBroker) Subscribe(ctx context.Context, ownerID uuid.UUID) (Subscription, error) {
	if b == nil || b.client == nil {
		return nil, ErrNotInitialized
	}

	channel := ChannelName(ownerID)
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte, subscriptionBuffer),
	}
	go sub.forward()
	return sub, nil
}

// Close closes the underlying Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
}

// forward copies messages until the pubsub channel is closed.
func (s *redisSubscription) forward() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		select {
		case s.out <- []byte(msg.Payload):
		default:
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
