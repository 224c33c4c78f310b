// Package eventbus carries bridge events to the host event channel and to
// optional external sinks.
package eventbus

import (
	"context"
	"errors"
	"log/slog"
)

// ErrMalformedEvent is returned when a published payload is not a HostEvent.
var ErrMalformedEvent = errors.New("eventbus: malformed host event")

// Publisher defines the interface for publishing events to the host event
// channel or a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// Pinger is implemented by publishers backed by a remote broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FanoutPublisher publishes to a primary publisher and mirrors to any
// number of secondary ones. Only primary failures are returned.
type FanoutPublisher struct {
	primary Publisher
	mirrors []Publisher
	logger  *slog.Logger
}

// NewFanoutPublisher creates a fanout over primary and mirrors.
func NewFanoutPublisher(primary Publisher, logger *slog.Logger, mirrors ...Publisher) *FanoutPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanoutPublisher{primary: primary, mirrors: mirrors, logger: logger}
}

// Publish sends to the primary, then to each mirror.
func (p *FanoutPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	err := p.primary.Publish(ctx, routingKey, payload)
	for _, m := range p.mirrors {
		if mErr := m.Publish(ctx, routingKey, payload); mErr != nil {
			p.logger.Warn("mirror publish failed",
				"routing_key", routingKey,
				"error", mErr,
			)
		}
	}
	return err
}

// Ping checks every mirror that supports it.
func (p *FanoutPublisher) Ping(ctx context.Context) error {
	var errs []error
	for _, pub := range append([]Publisher{p.primary}, p.mirrors...) {
		if pinger, ok := pub.(Pinger); ok {
			if err := pinger.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes the primary and all mirrors.
func (p *FanoutPublisher) Close() error {
	errs := []error{p.primary.Close()}
	for _, m := range p.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
