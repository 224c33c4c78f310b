package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ListenerRegistry manages listeners and dispatches events to them.
type ListenerRegistry struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewListenerRegistry creates a new listener registry.
func NewListenerRegistry(logger *slog.Logger) *ListenerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListenerRegistry{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Register adds a listener for its declared event names.
func (r *ListenerRegistry) Register(listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range listener.EventNames() {
		r.listeners[name] = append(r.listeners[name], listener)
		r.logger.Debug("registered listener", "event", name)
	}
}

// Listeners returns the listeners for name followed by wildcard listeners.
func (r *ListenerRegistry) Listeners(name string) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Listener, 0, len(r.listeners[name])+len(r.listeners[WildcardName]))
	out = append(out, r.listeners[name]...)
	if name != WildcardName {
		out = append(out, r.listeners[WildcardName]...)
	}
	return out
}

// Names returns all event names that have listeners registered, sorted.
func (r *ListenerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.listeners))
	for n := range r.listeners {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch delivers event to every matching listener. All listeners run
// even if one fails; the failures are joined.
func (r *ListenerRegistry) Dispatch(ctx context.Context, event *HostEvent) error {
	listeners := r.Listeners(event.Name)
	if len(listeners) == 0 {
		r.logger.Debug("no listeners for event", "event", event.Name)
		return nil
	}

	var errs []error
	for _, l := range listeners {
		if err := l.Handle(ctx, event); err != nil {
			r.logger.Error("listener failed to handle event",
				"event", event.Name,
				"event_id", event.ID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the total number of registered listener instances.
func (r *ListenerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, ls := range r.listeners {
		count += len(ls)
	}
	return count
}
