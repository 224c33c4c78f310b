// Package events forwards in-app messages reported by the SDK to the host
// event channel.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// EventInAppMessage is the host event emitted for every in-app message.
const EventInAppMessage = "inAppMessage"

// Source tags events produced by this bridge.
const Source = "snapyr-sdk"

// DefaultBufferSize is the in-app message channel capacity used when none
// is given. The SDK sends from its own threads and must not block on the
// host.
const DefaultBufferSize = 64

// Bridge owns the receiving end of the in-app message channel. The sending
// end is handed to the SDK at configure time.
type Bridge struct {
	messages  chan sdk.InAppMessage
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger

	sequence  atomic.Uint64
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
}

// New creates a bridge publishing to publisher with a channel buffer of
// bufferSize messages. A non-positive size means DefaultBufferSize.
func New(publisher eventbus.Publisher, bufferSize int, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bridge{
		messages:  make(chan sdk.InAppMessage, bufferSize),
		publisher: publisher,
		metrics:   observability.NoopMetrics{},
		logger:    logger.With("component", "events"),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// WithMetrics sets the metrics sink.
func (b *Bridge) WithMetrics(m observability.Metrics) *Bridge {
	if m != nil {
		b.metrics = m
	}
	return b
}

// Sender returns the endpoint the SDK sends in-app messages on.
func (b *Bridge) Sender() chan<- sdk.InAppMessage {
	return b.messages
}

// Emitted returns the sequence number of the last handled message.
func (b *Bridge) Emitted() uint64 {
	return b.sequence.Load()
}

// Run publishes every received message, in receive order, until Close is
// called or ctx ends. Messages already buffered at that point are still
// published.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event bridge already running")
	}
	defer close(b.stopped)

	b.logger.Info("event bridge started")
	for {
		select {
		case msg := <-b.messages:
			b.emit(ctx, msg)
		case <-b.done:
			b.drain(context.WithoutCancel(ctx))
			b.logger.Info("event bridge stopped", "emitted", b.Emitted())
			return nil
		case <-ctx.Done():
			b.drain(context.WithoutCancel(ctx))
			b.logger.Info("event bridge stopped", "emitted", b.Emitted(), "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (b *Bridge) drain(ctx context.Context) {
	for {
		select {
		case msg := <-b.messages:
			b.emit(ctx, msg)
		default:
			return
		}
	}
}

// emit publishes msg as exactly one host event. Failures are logged and
// counted; the message is not retried.
func (b *Bridge) emit(ctx context.Context, msg sdk.InAppMessage) {
	seq := b.sequence.Add(1)

	event, err := eventbus.NewHostEvent(EventInAppMessage, seq, msg.AsValueMap())
	if err == nil {
		event.Metadata = eventbus.EventMetadata{
			CorrelationID: observability.CorrelationIDFromContext(ctx),
			Source:        Source,
		}
		var data []byte
		data, err = event.Marshal()
		if err == nil {
			err = b.publisher.Publish(ctx, EventInAppMessage, data)
		}
	}

	if err != nil {
		b.logger.ErrorContext(ctx, "failed to emit in-app message",
			"sequence", seq,
			"action_token", msg.ActionToken,
			observability.ErrorKey, err,
		)
		b.metrics.Counter(observability.MetricEventsFailed, 1, observability.T("event", EventInAppMessage))
		return
	}

	b.logger.DebugContext(ctx, "in-app message emitted", "sequence", seq, "action_type", string(msg.ActionType))
	b.metrics.Counter(observability.MetricEventsEmitted, 1, observability.T("event", EventInAppMessage))
}

// Close stops Run after it drains the buffered messages.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Stopped is closed when Run returns.
func (b *Bridge) Stopped() <-chan struct{} {
	return b.stopped
}
