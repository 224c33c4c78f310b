package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisSubscriber tails host events from Redis with PSUBSCRIBE.
type RedisSubscriber struct {
	client    *redis.Client
	prefix    string
	registry  *ListenerRegistry
	logger    *slog.Logger
	mu        sync.Mutex
	pubsub    *redis.PubSub
	closeOnce sync.Once
	closeChan chan struct{}
}

// NewRedisSubscriber creates a subscriber over url for channels under prefix.
func NewRedisSubscriber(url, prefix string, logger *slog.Logger) (*RedisSubscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisSubscriber{
		client:    redis.NewClient(opt),
		prefix:    prefix,
		registry:  NewListenerRegistry(logger),
		logger:    logger,
		closeChan: make(chan struct{}),
	}, nil
}

// RegisterListener registers an event listener.
func (s *RedisSubscriber) RegisterListener(listener Listener) {
	s.registry.Register(listener)
}

// patterns derives the PSUBSCRIBE patterns from the registered names.
func (s *RedisSubscriber) patterns() []string {
	names := s.registry.Names()
	if len(names) == 0 {
		return []string{channelName(s.prefix, WildcardName)}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == WildcardName {
			return []string{channelName(s.prefix, WildcardName)}
		}
		out = append(out, channelName(s.prefix, n))
	}
	return out
}

// Start subscribes and dispatches until ctx is cancelled or Close is called.
func (s *RedisSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.pubsub != nil {
		s.mu.Unlock()
		return fmt.Errorf("subscriber already running")
	}
	pubsub := s.client.PSubscribe(ctx, s.patterns()...)
	s.pubsub = pubsub
	s.mu.Unlock()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.logger.Info("Redis subscriber started", "prefix", s.prefix)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closeChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.deliver(ctx, msg)
		}
	}
}

func (s *RedisSubscriber) deliver(ctx context.Context, msg *redis.Message) {
	routingKey := strings.TrimPrefix(msg.Channel, strings.TrimSuffix(s.prefix, ".")+".")
	event, err := DecodeHostEvent([]byte(msg.Payload), routingKey)
	if err != nil {
		s.logger.Warn("discarding undecodable message",
			"channel", msg.Channel,
			"error", err,
		)
		return
	}
	if err := s.registry.Dispatch(ctx, event); err != nil {
		s.logger.Error("event dispatch failed",
			"event", event.Name,
			"error", err,
		)
	}
}

// Close unsubscribes and closes the client.
func (s *RedisSubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.closeChan) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Warn("error closing pubsub", "error", err)
		}
	}
	return s.client.Close()
}
