package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []*eventbus.HostEvent
}

func (c *collector) EventNames() []string { return []string{EventInAppMessage} }

func (c *collector) Handle(ctx context.Context, event *eventbus.HostEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *collector) received() []*eventbus.HostEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*eventbus.HostEvent(nil), c.events...)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	return errors.New("host detached")
}

func (failingPublisher) Close() error { return nil }

func message(token string) sdk.InAppMessage {
	return sdk.InAppMessage{
		Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ActionType:  sdk.ActionTypeCustom,
		UserID:      "u1",
		ActionToken: token,
		Content: sdk.InAppContent{
			PayloadType: sdk.PayloadTypeJSON,
			Payload:     `{"title":"hello"}`,
		},
	}
}

func startBridge(t *testing.T, publisher eventbus.Publisher, buffer int) (*Bridge, *observability.InMemoryMetrics) {
	t.Helper()
	metrics := observability.NewInMemoryMetrics()
	b := New(publisher, buffer, nil).WithMetrics(metrics)
	go func() { _ = b.Run(context.Background()) }()
	t.Cleanup(func() {
		b.Close()
		<-b.Stopped()
	})
	return b, metrics
}

func TestBridge_EmitsEachMessageOnceInOrder(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	c := &collector{}
	bus.RegisterListener(c)
	b, metrics := startBridge(t, bus, 4)

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, tok := range tokens {
		b.Sender() <- message(tok)
	}
	b.Close()
	<-b.Stopped()

	got := c.received()
	require.Len(t, got, len(tokens))
	for i, event := range got {
		assert.Equal(t, EventInAppMessage, event.Name)
		assert.Equal(t, uint64(i+1), event.Sequence)
		assert.Equal(t, Source, event.Metadata.Source)

		payload, err := event.PayloadMap()
		require.NoError(t, err)
		assert.Equal(t, tokens[i], payload["actionToken"])
		assert.Equal(t, "u1", payload["userId"])
		content := payload["content"].(map[string]any)
		assert.Equal(t, map[string]any{"title": "hello"}, content["payload"])
	}
	assert.Equal(t, int64(len(tokens)), metrics.GetCounter(observability.MetricEventsEmitted,
		observability.T("event", EventInAppMessage)))
}

func TestBridge_CloseDrainsBuffered(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	c := &collector{}
	bus.RegisterListener(c)

	b := New(bus, 8, nil)
	for _, tok := range []string{"x", "y", "z"} {
		b.Sender() <- message(tok)
	}
	b.Close()
	require.NoError(t, b.Run(context.Background()))

	assert.Len(t, c.received(), 3)
	assert.Equal(t, uint64(3), b.Emitted())
}

func TestBridge_PublishFailureIsNotRetried(t *testing.T) {
	b, metrics := startBridge(t, failingPublisher{}, 2)

	b.Sender() <- message("a")
	b.Sender() <- message("b")
	b.Close()
	<-b.Stopped()

	tag := observability.T("event", EventInAppMessage)
	assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricEventsFailed, tag))
	assert.Zero(t, metrics.GetCounter(observability.MetricEventsEmitted, tag))
}

func TestNew_BufferSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{name: "explicit", size: 4, want: 4},
		{name: "zero", size: 0, want: DefaultBufferSize},
		{name: "negative", size: -1, want: DefaultBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(eventbus.NewInProcessEventBus(nil), tt.size, nil)
			assert.Equal(t, tt.want, cap(b.Sender()))

			// Sends up to capacity complete before the bridge runs.
			for i := 0; i < tt.want; i++ {
				select {
				case b.Sender() <- message("m"):
				default:
					t.Fatalf("send %d blocked", i)
				}
			}
		})
	}
}

func TestBridge_ContextCancel(t *testing.T) {
	b := New(eventbus.NewInProcessEventBus(nil), 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Run(ctx), context.Canceled)
	assert.Error(t, b.Run(context.Background()))
}
