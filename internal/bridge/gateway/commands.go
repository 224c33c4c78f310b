package gateway

import (
	"context"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// Command names as the host sends them.
const (
	CommandConfigure                = "configure"
	CommandIdentify                 = "identify"
	CommandTrack                    = "track"
	CommandSetPushNotificationToken = "setPushNotificationToken"
	CommandPushNotificationReceived = "pushNotificationReceived"
	CommandPushNotificationTapped   = "pushNotificationTapped"
	CommandReset                    = "reset"
	CommandAddListener              = "addListener"
	CommandRemoveListeners          = "removeListeners"
)

// Commands lists every command the gateway accepts.
var Commands = []string{
	CommandConfigure,
	CommandIdentify,
	CommandTrack,
	CommandSetPushNotificationToken,
	CommandPushNotificationReceived,
	CommandPushNotificationTapped,
	CommandReset,
	CommandAddListener,
	CommandRemoveListeners,
}

// needsConfiguredSDK reports whether command is rejected with
// ErrNotConfigured while the SDK is unconfigured.
func needsConfiguredSDK(command string) bool {
	switch command {
	case CommandIdentify, CommandTrack, CommandSetPushNotificationToken,
		CommandPushNotificationReceived, CommandPushNotificationTapped:
		return true
	}
	return false
}

// Configure builds the SDK with apiKey and the host options, then attempts
// the lifecycle replay. It resolves with apiKey.
func (g *Gateway) Configure(ctx context.Context, apiKey string, options map[string]any) *Promise {
	return g.submit(ctx, CommandConfigure, needsConfiguredSDK(CommandConfigure), func(ctx context.Context) (any, error) {
		return g.configure(ctx, apiKey, options)
	})
}

func (g *Gateway) configure(ctx context.Context, apiKey string, options map[string]any) (any, error) {
	if err := g.state.BeginConfigure(); err != nil {
		return nil, domain.NewCommandError(CommandConfigure, domain.KindConfiguration, err)
	}
	completed := false
	defer func() {
		if !completed {
			_ = g.state.AbortConfigure()
		}
	}()

	opts, invalid := domain.ParseConfigureOptions(options)
	for _, optErr := range invalid {
		g.logger.WarnContext(ctx, "Invalid environment provided",
			"option", optErr.Option,
			"value", optErr.Value,
			"kind", domain.KindInvalidOption,
			observability.ErrorKey, optErr.Err,
		)
		g.metrics.Counter(observability.MetricConfigureInvalidOptions, 1, observability.T("option", optErr.Option))
	}

	cfg := domain.NewConfiguration(apiKey, opts, g.ui.CurrentUIContext())
	if _, err := g.connector.Configure(ctx, cfg); err != nil {
		return nil, domain.NewCommandError(CommandConfigure, domain.KindConfiguration, err)
	}

	g.forwarder.renew()
	if err := g.state.CompleteConfigure(); err != nil {
		return nil, domain.NewCommandError(CommandConfigure, domain.KindConfiguration, err)
	}
	completed = true

	g.logger.InfoContext(ctx, "sdk configured", "environment", cfg.Environment.String())
	if g.replayer != nil {
		g.replayer.AttemptReplay(ctx)
	}
	return apiKey, nil
}

// Identify associates the device with userID. Nil traits become empty.
func (g *Gateway) Identify(ctx context.Context, userID string, traits map[string]any) *Promise {
	return g.submit(ctx, CommandIdentify, needsConfiguredSDK(CommandIdentify), func(ctx context.Context) (any, error) {
		return nil, g.forwarder.forward(func() error {
			return g.connector.Identify(ctx, userID, domain.NormalizeTraits(traits))
		})
	})
}

// Track records eventName. Nil properties become empty.
func (g *Gateway) Track(ctx context.Context, eventName string, props map[string]any) *Promise {
	return g.submit(ctx, CommandTrack, needsConfiguredSDK(CommandTrack), func(ctx context.Context) (any, error) {
		return nil, g.forwarder.forward(func() error {
			return g.connector.Track(ctx, eventName, domain.NormalizeProperties(props))
		})
	})
}

// SetPushNotificationToken registers the device push token.
func (g *Gateway) SetPushNotificationToken(ctx context.Context, token string) *Promise {
	return g.submit(ctx, CommandSetPushNotificationToken, needsConfiguredSDK(CommandSetPushNotificationToken), func(ctx context.Context) (any, error) {
		return nil, g.forwarder.forward(func() error {
			return g.connector.SetPushToken(ctx, token)
		})
	})
}

// PushNotificationReceived reports a delivered notification.
func (g *Gateway) PushNotificationReceived(ctx context.Context, props map[string]any) *Promise {
	return g.submit(ctx, CommandPushNotificationReceived, needsConfiguredSDK(CommandPushNotificationReceived), func(ctx context.Context) (any, error) {
		return nil, g.forwarder.forward(func() error {
			return g.connector.PushReceived(ctx, domain.NormalizeProperties(props))
		})
	})
}

// PushNotificationTapped reports a tapped notification. actionID is empty
// when the body, not an action button, was tapped.
func (g *Gateway) PushNotificationTapped(ctx context.Context, props map[string]any, actionID string) *Promise {
	return g.submit(ctx, CommandPushNotificationTapped, needsConfiguredSDK(CommandPushNotificationTapped), func(ctx context.Context) (any, error) {
		return nil, g.forwarder.forward(func() error {
			return g.connector.PushTapped(ctx, domain.NormalizeProperties(props), actionID)
		})
	})
}

// Reset tears down the SDK and returns to the unconfigured state. It
// succeeds on a gateway that was never configured.
func (g *Gateway) Reset(ctx context.Context) *Promise {
	return g.submit(ctx, CommandReset, needsConfiguredSDK(CommandReset), func(ctx context.Context) (any, error) {
		if err := g.connector.Reset(ctx); err != nil {
			return nil, err
		}
		previous := g.state.Reset()
		g.logger.InfoContext(ctx, "sdk reset", "previous_state", previous.String())
		return nil, nil
	})
}

// AddListener is accepted for host API compatibility and does nothing.
func (g *Gateway) AddListener(ctx context.Context, eventName string) *Promise {
	return g.submit(ctx, CommandAddListener, needsConfiguredSDK(CommandAddListener), func(ctx context.Context) (any, error) {
		g.logger.DebugContext(ctx, "listener added", "event", eventName)
		return nil, nil
	})
}

// RemoveListeners is accepted for host API compatibility and does nothing.
func (g *Gateway) RemoveListeners(ctx context.Context, count int) *Promise {
	return g.submit(ctx, CommandRemoveListeners, needsConfiguredSDK(CommandRemoveListeners), func(ctx context.Context) (any, error) {
		g.logger.DebugContext(ctx, "listeners removed", "count", count)
		return nil, nil
	})
}
