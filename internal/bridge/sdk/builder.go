package sdk

import (
	"context"
	"strings"
)

// Options is the validated configuration handed to a Factory.
type Options struct {
	UIContext   UIContext
	APIKey      string
	Environment Environment

	FlushQueueSize                  int
	TrackApplicationLifecycleEvents bool
	RecordScreenViews               bool
	EnablePushHandling              bool

	// InAppMessages receives every in-app action the SDK reports.
	// The SDK sends on it from its own goroutines.
	InAppMessages chan<- InAppMessage
}

// Builder assembles Options fluently.
type Builder struct {
	opts Options
}

// NewBuilder starts a builder for the given UI context and API key.
// The UI context may be nil; lifecycle replay then waits for the host.
func NewBuilder(ui UIContext, apiKey string) *Builder {
	return &Builder{
		opts: Options{
			UIContext:      ui,
			APIKey:         apiKey,
			Environment:    DefaultEnvironment,
			FlushQueueSize: 20,
		},
	}
}

// FlushQueueSize sets how many events are queued before a flush.
func (b *Builder) FlushQueueSize(n int) *Builder {
	b.opts.FlushQueueSize = n
	return b
}

// TrackApplicationLifecycleEvents records install/open/background events.
func (b *Builder) TrackApplicationLifecycleEvents() *Builder {
	b.opts.TrackApplicationLifecycleEvents = true
	return b
}

// RecordScreenViews records screen views automatically.
func (b *Builder) RecordScreenViews() *Builder {
	b.opts.RecordScreenViews = true
	return b
}

// EnableSnapyrPushHandling lets the SDK handle push notifications.
func (b *Builder) EnableSnapyrPushHandling() *Builder {
	b.opts.EnablePushHandling = true
	return b
}

// InAppMessages registers the sender endpoint for in-app actions.
func (b *Builder) InAppMessages(ch chan<- InAppMessage) *Builder {
	b.opts.InAppMessages = ch
	return b
}

// SnapyrEnvironment selects the backend environment.
func (b *Builder) SnapyrEnvironment(env Environment) *Builder {
	b.opts.Environment = env
	return b
}

// Options returns a copy of the options assembled so far.
func (b *Builder) Options() Options {
	return b.opts
}

// Build validates the options and asks the factory for a Client.
func (b *Builder) Build(ctx context.Context, factory Factory) (Client, error) {
	if factory == nil {
		return nil, &BuildError{Op: "factory", Err: ErrMissingFactory}
	}
	if strings.TrimSpace(b.opts.APIKey) == "" {
		return nil, &BuildError{Op: "api key", Err: ErrMissingAPIKey}
	}
	if b.opts.FlushQueueSize <= 0 {
		return nil, &BuildError{Op: "flush queue size", Err: ErrInvalidFlushQueue}
	}
	if !b.opts.Environment.IsValid() {
		return nil, &BuildError{Op: "environment", Err: ErrInvalidEnvironment}
	}

	client, err := factory.New(ctx, b.opts)
	if err != nil {
		return nil, &BuildError{Op: "new client", Err: err}
	}
	if client == nil {
		return nil, &BuildError{Op: "new client", Err: ErrMissingFactory}
	}
	return client, nil
}
