// Package simulator provides an in-process stand-in for the Snapyr SDK.
// It is used in local mode, where no device SDK is linked: every call is
// logged and counted, and in-app messages can be injected by the host.
package simulator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// Client is a simulated SDK instance.
type Client struct {
	opts   sdk.Options
	logger *slog.Logger

	mu       sync.Mutex
	counts   map[string]int
	shutdown bool
}

// Factory creates simulated clients and keeps track of the active one.
type Factory struct {
	logger *slog.Logger

	mu     sync.Mutex
	active *Client
}

// NewFactory creates a simulator factory.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// New implements sdk.Factory.
func (f *Factory) New(ctx context.Context, opts sdk.Options) (sdk.Client, error) {
	uiID := ""
	if opts.UIContext != nil {
		uiID = opts.UIContext.ID()
	}

	c := &Client{
		opts: opts,
		logger: f.logger.With(
			"component", "sdk-simulator",
			"environment", opts.Environment.String(),
		),
		counts: make(map[string]int),
	}

	f.mu.Lock()
	f.active = c
	f.mu.Unlock()

	c.logger.Info("simulated sdk built",
		"ui_context", uiID,
		"flush_queue_size", opts.FlushQueueSize,
		"lifecycle_events", opts.TrackApplicationLifecycleEvents,
		"screen_views", opts.RecordScreenViews,
		"push_handling", opts.EnablePushHandling,
	)
	return c, nil
}

// Active returns the most recently built client that has not shut down.
func (f *Factory) Active() (*Client, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil || f.active.isShutdown() {
		return nil, false
	}
	return f.active, true
}

// EmitInAppMessage pushes msg through the active client's in-app endpoint.
// It returns false when no client is active or the endpoint is unset.
func (f *Factory) EmitInAppMessage(ctx context.Context, msg sdk.InAppMessage) bool {
	c, ok := f.Active()
	if !ok {
		return false
	}
	return c.EmitInAppMessage(ctx, msg)
}

// EmitInAppMessage sends msg to the registered endpoint from a separate
// goroutine's point of view, blocking until it is accepted or ctx ends.
func (c *Client) EmitInAppMessage(ctx context.Context, msg sdk.InAppMessage) bool {
	if c.opts.InAppMessages == nil {
		return false
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case c.opts.InAppMessages <- msg:
		c.count("inAppMessage")
		return true
	case <-ctx.Done():
		return false
	}
}

// Count returns how many times method was called.
func (c *Client) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[method]
}

func (c *Client) count(method string) {
	c.mu.Lock()
	c.counts[method]++
	c.mu.Unlock()
}

func (c *Client) isShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

func (c *Client) guard(method string) error {
	if c.isShutdown() {
		return sdk.ErrClientShutdown
	}
	c.count(method)
	return nil
}

func (c *Client) Identify(ctx context.Context, userID string, traits sdk.Traits) error {
	if err := c.guard("identify"); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "identify", "user_id", userID, "traits", len(traits))
	return nil
}

func (c *Client) Track(ctx context.Context, event string, props sdk.Properties) error {
	if err := c.guard("track"); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "track", "event", event, "properties", len(props))
	return nil
}

func (c *Client) SetPushNotificationToken(ctx context.Context, token string) error {
	if err := c.guard("setPushNotificationToken"); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "set push token", "token_len", len(token))
	return nil
}

func (c *Client) PushNotificationReceived(ctx context.Context, props sdk.Properties) error {
	if err := c.guard("pushNotificationReceived"); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "push received", "properties", len(props))
	return nil
}

func (c *Client) PushNotificationClicked(ctx context.Context, props sdk.Properties, actionID string) error {
	if err := c.guard("pushNotificationClicked"); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "push clicked", "properties", len(props), "action_id", actionID)
	return nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	already := c.shutdown
	c.shutdown = true
	c.mu.Unlock()
	if !already {
		c.logger.InfoContext(ctx, "simulated sdk shut down")
	}
	return nil
}

func (c *Client) ReplayLifecycleOnCreated(ui sdk.UIContext) {
	c.count("lifecycle.created")
	c.logger.Debug("lifecycle created", "ui_context", ui.ID())
}

func (c *Client) ReplayLifecycleOnStarted(ui sdk.UIContext) {
	c.count("lifecycle.started")
	c.logger.Debug("lifecycle started", "ui_context", ui.ID())
}

func (c *Client) ReplayLifecycleOnResumed(ui sdk.UIContext) {
	c.count("lifecycle.resumed")
	c.logger.Debug("lifecycle resumed", "ui_context", ui.ID())
}
