package gallery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notifier tells other replicas that enrollment data changed.
type Notifier interface {
	Notify(ctx context.Context) error
}

// Invalidator is satisfied by *Cache.
type Invalidator interface {
	Invalidate()
}

// NopNotifier is used when the service runs as a single replica.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context) error { return nil }

// RedisNotifier broadcasts invalidations over a Redis pub/sub channel. Each
// replica tags its own messages so it does not invalidate twice.
type RedisNotifier struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *slog.Logger
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisNotifier(client *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger.With("component", "gallery_notifier"),
	}
}

func (n *RedisNotifier) Notify(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, n.instanceID).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Listen invalidates target for every message published by another replica
// until ctx is done.
func (n *RedisNotifier) Listen(ctx context.Context, target Invalidator) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	n.logger.Info("listening for gallery invalidations", "channel", n.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("gallery invalidation listener stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.handle(msg.Payload, target)
		}
	}
}

func (n *RedisNotifier) handle(payload string, target Invalidator) {
	if payload == n.instanceID {
		return
	}
	target.Invalidate()
	n.logger.Debug("gallery invalidated by peer", "peer", payload)
}
