// Package bridge exposes the Snapyr SDK to a host runtime as a module with
// promise-based commands and an in-app message event stream.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/connector"
	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/events"
	"github.com/snapyr/snapyr-bridge/internal/bridge/gateway"
	"github.com/snapyr/snapyr-bridge/internal/bridge/lifecycle"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// ModuleName is the name the module registers under with the host.
const ModuleName = "SnapyrRnSdk"

var (
	ErrMissingFactory   = errors.New("bridge: sdk factory is required")
	ErrMissingPublisher = errors.New("bridge: event publisher is required")
	ErrAlreadyStarted   = errors.New("bridge: module already started")
)

// Options configures a Module.
type Options struct {
	Factory   sdk.Factory
	Publisher eventbus.Publisher

	// Optional
	Journal journal.Repository
	Metrics observability.Metrics
	Logger  *slog.Logger
	// EventBuffer defaults to events.DefaultBufferSize.
	EventBuffer int
	Gateway     gateway.Config
}

// Module is the host-facing adapter. It owns the SDK connector, the
// lifecycle replayer, the command gateway and the event bridge.
type Module struct {
	state     *domain.StateMachine
	ui        *lifecycle.UIContextHolder
	connector *connector.Connector
	replayer  *lifecycle.Replayer
	gateway   *gateway.Gateway
	events    *events.Bridge
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New wires a module. Call Start before submitting commands.
func New(opts Options) (*Module, error) {
	if opts.Factory == nil {
		return nil, ErrMissingFactory
	}
	if opts.Publisher == nil {
		return nil, ErrMissingPublisher
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopMetrics{}
	}
	if opts.Gateway == (gateway.Config{}) {
		opts.Gateway = gateway.DefaultConfig()
	}
	logger := opts.Logger.With("module", ModuleName)

	state := domain.NewStateMachine()
	ui := lifecycle.NewUIContextHolder(nil)
	bridge := events.New(opts.Publisher, opts.EventBuffer, logger).WithMetrics(opts.Metrics)
	conn := connector.New(opts.Factory, bridge.Sender(), logger)
	replayer := lifecycle.NewReplayer(state, ui, conn, logger).WithMetrics(opts.Metrics)

	gw := gateway.New(gateway.Deps{
		State:     state,
		Connector: conn,
		Replayer:  replayer,
		UI:        ui,
		Journal:   opts.Journal,
		Metrics:   opts.Metrics,
		Logger:    logger,
	}, opts.Gateway)

	return &Module{
		state:     state,
		ui:        ui,
		connector: conn,
		replayer:  replayer,
		gateway:   gw,
		events:    bridge,
		logger:    logger,
	}, nil
}

// Name returns ModuleName.
func (m *Module) Name() string {
	return ModuleName
}

// Start launches the command worker and the event loop.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		if err := m.gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("command gateway exited", "error", err)
		}
	}()
	go func() {
		defer m.wg.Done()
		if err := m.events.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("event bridge exited", "error", err)
		}
	}()

	m.logger.Info("module started")
	return nil
}

// Close stops accepting commands, lets queued commands and buffered
// events finish, then shuts down the SDK. It returns ctx.Err if the
// workers do not stop in time.
func (m *Module) Close(ctx context.Context) error {
	m.gateway.Close()

	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	if started {
		select {
		case <-m.gateway.Stopped():
		case <-ctx.Done():
			return fmt.Errorf("waiting for command gateway: %w", ctx.Err())
		}
	}

	m.events.Close()
	if started {
		select {
		case <-m.events.Stopped():
		case <-ctx.Done():
			return fmt.Errorf("waiting for event bridge: %w", ctx.Err())
		}
		m.cancel()
		m.wg.Wait()
	}

	if err := m.connector.Reset(ctx); err != nil {
		m.logger.Warn("sdk shutdown failed", "error", err)
	}
	m.state.Reset()
	m.logger.Info("module closed")
	return nil
}

// OnHostResume records ui as the current UI context, when non-nil, and
// attempts the lifecycle replay.
func (m *Module) OnHostResume(ctx context.Context, ui sdk.UIContext) {
	if ui != nil {
		m.ui.Set(ui)
	}
	m.replayer.OnHostResume(ctx)
}

// OnHostPause is accepted and ignored.
func (m *Module) OnHostPause(ctx context.Context) {
	m.replayer.OnHostPause(ctx)
}

// OnHostDestroy is accepted and ignored. The UI context stays set until
// the host reports a new one.
func (m *Module) OnHostDestroy(ctx context.Context) {
	m.replayer.OnHostDestroy(ctx)
}

func (m *Module) Configure(ctx context.Context, apiKey string, options map[string]any) *gateway.Promise {
	return m.gateway.Configure(ctx, apiKey, options)
}

func (m *Module) Identify(ctx context.Context, userID string, traits map[string]any) *gateway.Promise {
	return m.gateway.Identify(ctx, userID, traits)
}

func (m *Module) Track(ctx context.Context, eventName string, props map[string]any) *gateway.Promise {
	return m.gateway.Track(ctx, eventName, props)
}

func (m *Module) SetPushNotificationToken(ctx context.Context, token string) *gateway.Promise {
	return m.gateway.SetPushNotificationToken(ctx, token)
}

func (m *Module) PushNotificationReceived(ctx context.Context, props map[string]any) *gateway.Promise {
	return m.gateway.PushNotificationReceived(ctx, props)
}

func (m *Module) PushNotificationTapped(ctx context.Context, props map[string]any, actionID string) *gateway.Promise {
	return m.gateway.PushNotificationTapped(ctx, props, actionID)
}

func (m *Module) Reset(ctx context.Context) *gateway.Promise {
	return m.gateway.Reset(ctx)
}

func (m *Module) AddListener(ctx context.Context, eventName string) *gateway.Promise {
	return m.gateway.AddListener(ctx, eventName)
}

func (m *Module) RemoveListeners(ctx context.Context, count int) *gateway.Promise {
	return m.gateway.RemoveListeners(ctx, count)
}

// Dispatch submits a host call frame.
func (m *Module) Dispatch(ctx context.Context, call gateway.Call) *gateway.Promise {
	return m.gateway.Dispatch(ctx, call)
}

// State returns the current adapter state.
func (m *Module) State() domain.State {
	return m.state.Current()
}

// BreakerState reports the SDK circuit breaker state.
func (m *Module) BreakerState() string {
	return m.gateway.BreakerState()
}

// EventsEmitted returns the sequence number of the last in-app event.
func (m *Module) EventsEmitted() uint64 {
	return m.events.Emitted()
}

// HealthChecker reports degraded until the SDK is configured.
func (m *Module) HealthChecker() observability.HealthChecker {
	return observability.SDKStateHealthChecker(
		func() string { return m.state.Current().String() },
		m.state.IsConfigured,
	)
}
