// Package sdk defines the consumed surface of the Snapyr mobile SDK.
// The bridge never talks to the SDK through anything but these interfaces,
// so the SDK's networking, batching and storage stay out of view.
package sdk

import (
	"context"
)

// UIContext is an opaque handle to the host UI surface the SDK attaches to.
// On Android this is the current Activity.
type UIContext interface {
	// ID identifies the UI surface for logging.
	ID() string
}

// NamedUIContext is a UIContext identified only by name.
type NamedUIContext string

// ID returns the name.
func (n NamedUIContext) ID() string {
	return string(n)
}

// Traits describe a user. Values are forwarded to the SDK uninterpreted.
type Traits map[string]any

// Properties describe an event. Values are forwarded to the SDK uninterpreted.
type Properties map[string]any

// LifecycleObserver receives replayed UI lifecycle transitions.
// The SDK deduplicates these against the transitions it observed itself.
type LifecycleObserver interface {
	ReplayLifecycleOnCreated(ui UIContext)
	ReplayLifecycleOnStarted(ui UIContext)
	ReplayLifecycleOnResumed(ui UIContext)
}

// Client is a configured SDK instance.
type Client interface {
	LifecycleObserver

	// Identify associates the current device with a user.
	Identify(ctx context.Context, userID string, traits Traits) error

	// Track records a named event.
	Track(ctx context.Context, event string, props Properties) error

	// SetPushNotificationToken registers the device push token.
	SetPushNotificationToken(ctx context.Context, token string) error

	// PushNotificationReceived reports a delivered push notification.
	PushNotificationReceived(ctx context.Context, props Properties) error

	// PushNotificationClicked reports a tapped push notification.
	// actionID is empty when the notification body itself was tapped.
	PushNotificationClicked(ctx context.Context, props Properties, actionID string) error

	// Shutdown stops background work and releases SDK resources.
	Shutdown(ctx context.Context) error
}

// Factory builds a Client from validated options.
type Factory interface {
	New(ctx context.Context, opts Options) (Client, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, opts Options) (Client, error)

// New calls f.
func (f FactoryFunc) New(ctx context.Context, opts Options) (Client, error) {
	return f(ctx, opts)
}
