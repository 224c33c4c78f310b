package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix prefixes every Redis channel host events go to.
const DefaultChannelPrefix = "snapyr.events"

// RedisPublisher publishes host events with Redis PUBLISH on
// <prefix>.<routingKey>.
type RedisPublisher struct {
	client    *redis.Client
	prefix    string
	ownClient bool
	logger    *slog.Logger
}

// NewRedisPublisher parses url, connects and verifies the connection.
func NewRedisPublisher(ctx context.Context, url, prefix string, logger *slog.Logger) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p := NewRedisPublisherFromClient(client, prefix, logger)
	p.ownClient = true
	p.logger.Info("Redis publisher connected", "prefix", p.prefix)
	return p, nil
}

// NewRedisPublisherFromClient wraps an existing client. Close leaves the
// client open.
func NewRedisPublisherFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// Channel returns the Redis channel for routingKey.
func (p *RedisPublisher) Channel(routingKey string) string {
	return channelName(p.prefix, routingKey)
}

func channelName(prefix, routingKey string) string {
	return strings.TrimSuffix(prefix, ".") + "." + routingKey
}

// Publish sends payload to the channel for routingKey.
func (p *RedisPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	channel := p.Channel(routingKey)
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		p.logger.Error("failed to publish message",
			"channel", channel,
			"error", err,
		)
		return err
	}

	p.logger.Debug("message published",
		"channel", channel,
		"receivers", receivers,
		"size", len(payload),
	)
	return nil
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the client if the publisher created it.
func (p *RedisPublisher) Close() error {
	if !p.ownClient {
		return nil
	}
	return p.client.Close()
}
