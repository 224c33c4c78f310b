package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/snapyr/snapyr-bridge/internal/bridge"
	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/gateway"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk/simulator"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/config"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// ErrNoSDKBinding is returned when the simulator is off and no SDK factory
// was supplied.
var ErrNoSDKBinding = errors.New("no Snapyr SDK binding available; set SNAPYR_SIMULATOR=true or supply a factory")

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Journal
	Journal journal.Repository

	// Publishers
	HostBus        *eventbus.InProcessEventBus
	Mirror         eventbus.Publisher
	EventPublisher eventbus.Publisher

	// SDK
	SDKFactory sdk.Factory
	Simulator  *simulator.Factory

	Module *bridge.Module
}

// Option customizes a Container.
type Option func(*Container)

// WithSDKFactory supplies the SDK binding. It takes precedence over the
// simulator.
func WithSDKFactory(f sdk.Factory) Option {
	return func(c *Container) {
		c.SDKFactory = f
	}
}

// NewContainer creates and wires all dependencies. The module is not
// started.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.SDKFactory == nil {
		if !cfg.Simulator {
			return nil, ErrNoSDKBinding
		}
		c.Simulator = simulator.NewFactory(logger)
		c.SDKFactory = c.Simulator
		logger.Info("using simulated Snapyr SDK")
	}

	factory := NewRepositoryFactory(cfg, logger)

	repo, err := factory.Journal(ctx)
	if err != nil {
		return nil, err
	}
	c.Journal = repo

	// Create event publisher
	c.HostBus = eventbus.NewInProcessEventBus(logger)
	mirror, err := factory.Mirror(ctx)
	if err != nil {
		// Fall back to host-only delivery in development
		if !cfg.IsDevelopment() {
			c.closeJournal()
			return nil, fmt.Errorf("failed to open event sink %s: %w", cfg.EventSink, err)
		}
		logger.Warn("event sink not available, delivering to host only",
			"sink", cfg.EventSink,
			"error", err,
		)
	}
	c.Mirror = mirror

	// The host always receives events; EVENT_SINK only picks the mirror.
	if c.Mirror != nil {
		c.EventPublisher = eventbus.NewFanoutPublisher(c.HostBus, logger, c.Mirror)
	} else {
		c.EventPublisher = c.HostBus
	}

	module, err := bridge.New(bridge.Options{
		Factory:     c.SDKFactory,
		Publisher:   c.EventPublisher,
		Journal:     c.Journal,
		Metrics:     c.Metrics,
		Logger:      logger,
		EventBuffer: cfg.EventBuffer,
		Gateway:     gatewayConfig(cfg),
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Module = module

	c.registerHealthChecks()

	logger.Info("container ready",
		"event_sink", cfg.EventSink,
		"journal", cfg.JournalDriver,
		"simulator", c.Simulator != nil,
	)
	return c, nil
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	gc := gateway.DefaultConfig()
	gc.QueueSize = cfg.CommandQueue
	gc.Breaker.Enabled = cfg.BreakerEnabled
	if cfg.BreakerThreshold > 0 {
		gc.Breaker.FailureThreshold = uint32(cfg.BreakerThreshold)
	}
	if cfg.BreakerTimeout > 0 {
		gc.Breaker.Timeout = cfg.BreakerTimeout
	}
	return gc
}

func (c *Container) registerHealthChecks() {
	c.Health.Register("sdk", c.Module.HealthChecker())
	c.Health.Register("journal", observability.PingHealthChecker("journal", observability.HealthStatusUnhealthy, c.Journal.Ping))
	if pinger, ok := c.Mirror.(eventbus.Pinger); ok {
		c.Health.Register("event_sink", observability.PingHealthChecker("event_sink", observability.HealthStatusDegraded, pinger.Ping))
	}
}

// AutoConfigure configures the SDK from SNAPYR_API_KEY and
// SNAPYR_ENVIRONMENT. It returns nil when no API key is set.
func (c *Container) AutoConfigure(ctx context.Context) (*gateway.Promise, error) {
	if c.Config.APIKey == "" {
		return nil, nil
	}
	options := map[string]any{}
	if c.Config.Environment != "" {
		env, err := sdk.ParseEnvironment(c.Config.Environment)
		if err != nil {
			return nil, domain.NewCommandError(gateway.CommandConfigure, domain.KindInvalidOption,
				fmt.Errorf("%w: SNAPYR_ENVIRONMENT: %w", domain.ErrInvalidOption, err))
		}
		options[domain.OptionEnvironment] = int(env)
	}
	return c.Module.Configure(ctx, c.Config.APIKey, options), nil
}

// PruneJournal deletes journal entries older than the retention period.
func (c *Container) PruneJournal(ctx context.Context) (int64, error) {
	if c.Config.JournalRetentionDays <= 0 {
		return 0, nil
	}
	removed, err := c.Journal.DeleteOld(ctx, c.Config.JournalRetentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	if removed > 0 {
		c.Logger.Info("pruned command journal", "removed", removed, "retention_days", c.Config.JournalRetentionDays)
	}
	return removed, nil
}

// Close cleans up all resources. The mirror is closed through the fanout
// publisher.
func (c *Container) Close() {
	defer observability.LogDuration(c.Logger, "container shutdown", time.Now())

	if c.Module != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Module.Close(ctx); err != nil {
			c.Logger.Warn("error closing module", "error", err)
		}
		cancel()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	c.closeJournal()
}

func (c *Container) closeJournal() {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Close(); err != nil {
		c.Logger.Warn("error closing command journal", "error", err)
	} else {
		c.Logger.Info("command journal closed")
	}
}
