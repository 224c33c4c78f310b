package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// InProcessEventBus delivers events synchronously to registered listeners.
// It is the host event channel when the bridge runs over stdio.
type InProcessEventBus struct {
	registry *ListenerRegistry
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewInProcessEventBus creates a new in-process event bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		registry: NewListenerRegistry(logger),
		logger:   logger,
	}
}

// RegisterListener registers an event listener.
func (b *InProcessEventBus) RegisterListener(listener Listener) {
	b.registry.Register(listener)
}

// Publish decodes the envelope and dispatches it to all listeners.
// Publications are serialized so listeners observe publish order.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := DecodeHostEvent(payload, routingKey)
	if err != nil {
		b.logger.Error("failed to decode event payload",
			"routing_key", routingKey,
			"error", err,
		)
		return err
	}
	return b.PublishEvent(ctx, event)
}

// PublishEvent dispatches an already decoded event.
func (b *InProcessEventBus) PublishEvent(ctx context.Context, event *HostEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	err := b.registry.Dispatch(ctx, event)
	duration := time.Since(start)

	if err != nil {
		b.logger.Error("event dispatch failed",
			"event", event.Name,
			"event_id", event.ID,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	b.logger.Debug("event dispatched",
		"event", event.Name,
		"event_id", event.ID,
		"sequence", event.Sequence,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Close is a no-op for in-process bus.
func (b *InProcessEventBus) Close() error {
	return nil
}

// Registry returns the underlying listener registry.
func (b *InProcessEventBus) Registry() *ListenerRegistry {
	return b.registry
}
