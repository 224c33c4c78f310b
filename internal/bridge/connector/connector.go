// Package connector owns the single live SDK handle and forwards one call
// per SDK capability to it.
package connector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// flushQueueSize of 1 makes every event flush to the network immediately.
const flushQueueSize = 1

// Connector holds at most one SDK client. Creation, replacement and
// teardown of the client happen under mu.
type Connector struct {
	factory sdk.Factory
	inApp   chan<- sdk.InAppMessage
	logger  *slog.Logger

	mu     sync.Mutex
	client sdk.Client
}

// New creates a connector that builds clients with factory and registers
// inApp as their in-app message endpoint. inApp may be nil.
func New(factory sdk.Factory, inApp chan<- sdk.InAppMessage, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		factory: factory,
		inApp:   inApp,
		logger:  logger.With("component", "connector"),
	}
}

// builder applies the fixed options, then the parts of cfg.
func (c *Connector) builder(cfg domain.Configuration) *sdk.Builder {
	b := sdk.NewBuilder(cfg.UIContext, cfg.APIKey).
		FlushQueueSize(flushQueueSize).
		TrackApplicationLifecycleEvents().
		RecordScreenViews().
		EnableSnapyrPushHandling()
	if c.inApp != nil {
		b.InAppMessages(c.inApp)
	}
	if cfg.EnvironmentSet {
		b.SnapyrEnvironment(cfg.Environment)
	}
	return b
}

// Configure builds a client for cfg and makes it the active one. A
// previously active client is shut down on a best-effort basis.
func (c *Connector) Configure(ctx context.Context, cfg domain.Configuration) (client sdk.Client, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer recoverInto(&err)

	client, err = c.builder(cfg).Build(ctx, c.factory)
	if err != nil {
		return nil, err
	}

	previous := c.client
	c.client = client
	if previous != nil && previous != client {
		c.logger.WarnContext(ctx, "replacing active sdk client")
		c.shutdown(ctx, previous)
	}

	c.logger.InfoContext(ctx, "sdk client built",
		"environment", cfg.Environment.String(),
		"environment_set", cfg.EnvironmentSet,
	)
	return client, nil
}

// Client returns the active client.
func (c *Connector) Client() (sdk.Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client, c.client != nil
}

// Identify forwards to the active client.
func (c *Connector) Identify(ctx context.Context, userID string, traits sdk.Traits) error {
	return c.call(func(cl sdk.Client) error {
		return cl.Identify(ctx, userID, traits)
	})
}

// Track forwards to the active client.
func (c *Connector) Track(ctx context.Context, event string, props sdk.Properties) error {
	return c.call(func(cl sdk.Client) error {
		return cl.Track(ctx, event, props)
	})
}

// SetPushToken forwards to the active client.
func (c *Connector) SetPushToken(ctx context.Context, token string) error {
	return c.call(func(cl sdk.Client) error {
		return cl.SetPushNotificationToken(ctx, token)
	})
}

// PushReceived forwards to the active client.
func (c *Connector) PushReceived(ctx context.Context, props sdk.Properties) error {
	return c.call(func(cl sdk.Client) error {
		return cl.PushNotificationReceived(ctx, props)
	})
}

// PushTapped forwards to the active client. actionID may be empty.
func (c *Connector) PushTapped(ctx context.Context, props sdk.Properties, actionID string) error {
	return c.call(func(cl sdk.Client) error {
		return cl.PushNotificationClicked(ctx, props, actionID)
	})
}

// Reset clears the active client and shuts it down. Shutdown failures are
// logged, not returned. Reset on an empty connector does nothing.
func (c *Connector) Reset(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		c.logger.DebugContext(ctx, "reset without active client")
		return nil
	}
	c.shutdown(ctx, client)
	return nil
}

func (c *Connector) shutdown(ctx context.Context, client sdk.Client) {
	var err error
	func() {
		defer recoverInto(&err)
		err = client.Shutdown(ctx)
	}()
	if err != nil {
		c.logger.WarnContext(ctx, "sdk shutdown failed", "error", err)
		return
	}
	c.logger.InfoContext(ctx, "sdk client shut down")
}

func (c *Connector) call(fn func(sdk.Client) error) (err error) {
	client, ok := c.Client()
	if !ok {
		return domain.ErrNotConfigured
	}
	defer recoverInto(&err)
	return fn(client)
}

// recoverInto converts a panic into a *domain.PanicError stored in err.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &domain.PanicError{Value: r}
	}
}
