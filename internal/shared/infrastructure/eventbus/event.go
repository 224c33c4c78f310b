package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WildcardName matches every event name when returned by a Listener.
const WildcardName = "*"

// HostEvent is the envelope for an event emitted to the host.
type HostEvent struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Sequence  uint64          `json:"sequence"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	Source        string `json:"source,omitempty"`
}

// NewHostEvent wraps payload in an envelope with a fresh id.
func NewHostEvent(name string, sequence uint64, payload any) (*HostEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return &HostEvent{
		ID:        uuid.New(),
		Name:      name,
		Sequence:  sequence,
		EmittedAt: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Marshal encodes the envelope.
func (e *HostEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// PayloadMap decodes the payload into a generic map.
func (e *HostEvent) PayloadMap() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeHostEvent parses an envelope. routingKey fills in a missing name.
func DecodeHostEvent(data []byte, routingKey string) (*HostEvent, error) {
	event := &HostEvent{}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Name == "" {
		event.Name = routingKey
	}
	if event.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedEvent)
	}
	return event, nil
}

// Listener handles host events by name.
type Listener interface {
	// EventNames returns the names this listener handles. WildcardName
	// subscribes to everything.
	EventNames() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *HostEvent) error
}

type listenerFunc struct {
	names []string
	fn    func(ctx context.Context, event *HostEvent) error
}

func (l *listenerFunc) EventNames() []string { return l.names }

func (l *listenerFunc) Handle(ctx context.Context, event *HostEvent) error {
	return l.fn(ctx, event)
}

// ListenerFunc adapts fn into a Listener for the given names.
func ListenerFunc(fn func(ctx context.Context, event *HostEvent) error, names ...string) Listener {
	if len(names) == 0 {
		names = []string{WildcardName}
	}
	return &listenerFunc{names: names, fn: fn}
}

// Subscriber receives events from a broker and dispatches them to listeners.
type Subscriber interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterListener registers an event listener.
	RegisterListener(listener Listener)

	// Close closes the subscriber connection.
	Close() error
}
