package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
)

// DefaultChannel is the pub/sub channel (and Postgres NOTIFY channel) changes travel on
const DefaultChannel = "learnhub_changes"

// RedisNotifier publishes changes to a Redis channel
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, change Change) error {
	payload, err := encode(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// RedisRelay feeds a Hub from a Redis channel so every instance sees every change
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
	log     *logger.Logger
}

func NewRedisRelay(client redis.UniversalClient, channel string, hub *Hub, log *logger.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, channel: channel, hub: hub, log: log.With("component", "redis_relay")}
}

// Run relays until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.log.Info("relaying changes", "channel", r.channel)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			change, err := decode(msg.Payload)
			if err != nil {
				r.log.Warn("dropping malformed change", "error", err)
				continue
			}
			_ = r.hub.Notify(ctx, change)
		}
	}
}
