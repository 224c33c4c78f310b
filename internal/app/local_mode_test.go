package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk/sdktest"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/pkg/config"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:               "test",
		Simulator:            true,
		EventBuffer:          8,
		CommandQueue:         16,
		BreakerEnabled:       true,
		BreakerThreshold:     3,
		BreakerTimeout:       time.Second,
		EventSink:            config.EventSinkInProcess,
		EventTopic:           "snapyr.events",
		JournalDriver:        config.JournalDriverSQLite,
		SQLitePath:           filepath.Join(t.TempDir(), "journal.db"),
		JournalRetentionDays: 14,
	}
}

// TestLocalModeContainer tests that a local mode container can be created and used.
func TestLocalModeContainer(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, localConfig(t), testLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Simulator)
	assert.Same(t, c.HostBus, c.EventPublisher)
	assert.Nil(t, c.Mirror)
	assert.Equal(t, []string{"journal", "sdk"}, c.Health.Names())
}

// TestLocalModeWorkflow runs configure and track against the simulator and
// checks the journal and the host event stream.
func TestLocalModeWorkflow(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, localConfig(t), testLogger())
	require.NoError(t, err)
	defer c.Close()

	received := make(chan *eventbus.HostEvent, 1)
	c.HostBus.RegisterListener(eventbus.ListenerFunc(func(ctx context.Context, event *eventbus.HostEvent) error {
		received <- event
		return nil
	}))

	require.NoError(t, c.Module.Start(ctx))
	c.Module.OnHostResume(ctx, sdk.NamedUIContext("main"))

	awaitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	v, err := c.Module.Configure(ctx, "local-key", map[string]any{"snapyrEnvironment": 2}).Await(awaitCtx)
	require.NoError(t, err)
	assert.Equal(t, "local-key", v)
	assert.Equal(t, domain.StateReplayed, c.Module.State())

	_, err = c.Module.Track(ctx, "opened", nil).Await(awaitCtx)
	require.NoError(t, err)

	client, ok := c.Simulator.Active()
	require.True(t, ok)
	assert.Equal(t, 1, client.Count("track"))

	require.True(t, c.Simulator.EmitInAppMessage(awaitCtx, sdk.InAppMessage{ActionToken: "tok"}))
	select {
	case event := <-received:
		assert.Equal(t, "inAppMessage", event.Name)
	case <-awaitCtx.Done():
		t.Fatal("in-app event not delivered")
	}

	entries, err := c.Journal.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "track", entries[0].Command)
	assert.Equal(t, "configure", entries[1].Command)

	health := c.Health.GetOverallHealth(ctx)
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
}

func TestContainer_AutoConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("no api key", func(t *testing.T) {
		c, err := NewContainer(ctx, localConfig(t), testLogger())
		require.NoError(t, err)
		defer c.Close()

		p, err := c.AutoConfigure(ctx)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("configures from env settings", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.APIKey = "env-key"
		cfg.Environment = "stage"
		factory := sdktest.NewFactory()
		c, err := NewContainer(ctx, cfg, testLogger(), WithSDKFactory(factory))
		require.NoError(t, err)
		defer c.Close()
		assert.Nil(t, c.Simulator)
		require.NoError(t, c.Module.Start(ctx))

		p, err := c.AutoConfigure(ctx)
		require.NoError(t, err)
		awaitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err = p.Await(awaitCtx)
		require.NoError(t, err)
		assert.Equal(t, sdk.EnvironmentStage, factory.Last().Options().Environment)
	})

	t.Run("bad environment", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.APIKey = "env-key"
		cfg.Environment = "moon"
		c, err := NewContainer(ctx, cfg, testLogger())
		require.NoError(t, err)
		defer c.Close()

		_, err = c.AutoConfigure(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalidOption)
		assert.Equal(t, domain.KindInvalidOption, domain.KindOf(err))
	})
}

func TestContainer_PruneJournal(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, localConfig(t), testLogger())
	require.NoError(t, err)
	defer c.Close()

	removed, err := c.PruneJournal(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestContainer_RequiresSDKBinding(t *testing.T) {
	cfg := localConfig(t)
	cfg.Simulator = false
	_, err := NewContainer(context.Background(), cfg, testLogger())
	assert.ErrorIs(t, err, ErrNoSDKBinding)
}

func TestContainer_NoopSink(t *testing.T) {
	cfg := localConfig(t)
	cfg.EventSink = config.EventSinkNoop
	cfg.JournalDriver = config.JournalDriverNone
	ctx := context.Background()
	c, err := NewContainer(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.Mirror)

	received := make(chan *eventbus.HostEvent, 1)
	c.HostBus.RegisterListener(eventbus.ListenerFunc(func(ctx context.Context, event *eventbus.HostEvent) error {
		received <- event
		return nil
	}))
	require.NoError(t, c.Module.Start(ctx))
	c.Module.OnHostResume(ctx, sdk.NamedUIContext("main"))

	awaitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = c.Module.Configure(ctx, "local-key", nil).Await(awaitCtx)
	require.NoError(t, err)

	require.True(t, c.Simulator.EmitInAppMessage(awaitCtx, sdk.InAppMessage{ActionToken: "tok"}))
	select {
	case event := <-received:
		assert.Equal(t, "inAppMessage", event.Name)
		assert.Equal(t, uint64(1), event.Sequence)
	case <-awaitCtx.Done():
		t.Fatal("in-app event not delivered with the noop sink")
	}
}

func TestContainer_UnreachableMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("development falls back to host only", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.AppEnv = "development"
		cfg.EventSink = config.EventSinkRedis
		cfg.RedisURL = "redis://127.0.0.1:1/0"
		c, err := NewContainer(ctx, cfg, testLogger())
		require.NoError(t, err)
		defer c.Close()
		assert.Nil(t, c.Mirror)
		assert.Same(t, c.HostBus, c.EventPublisher)
	})

	t.Run("production fails", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.AppEnv = "production"
		cfg.EventSink = config.EventSinkRedis
		cfg.RedisURL = "redis://127.0.0.1:1/0"
		_, err := NewContainer(ctx, cfg, testLogger())
		assert.Error(t, err)
	})
}
