package app

import (
	"context"
	"testing"

	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFactory_Journal(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		repo, err := NewRepositoryFactory(localConfig(t), testLogger()).Journal(ctx)
		require.NoError(t, err)
		defer repo.Close()
		_, ok := repo.(*journal.SQLiteRepository)
		assert.True(t, ok)
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("none", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.JournalDriver = config.JournalDriverNone
		repo, err := NewRepositoryFactory(cfg, nil).Journal(ctx)
		require.NoError(t, err)
		assert.Equal(t, journal.NoopRepository{}, repo)
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.JournalDriver = "mysql"
		_, err := NewRepositoryFactory(cfg, nil).Journal(ctx)
		assert.Error(t, err)
	})
}

func TestRepositoryFactory_Mirror(t *testing.T) {
	ctx := context.Background()
	for _, sink := range []string{config.EventSinkInProcess, config.EventSinkNoop} {
		t.Run(sink, func(t *testing.T) {
			cfg := localConfig(t)
			cfg.EventSink = sink
			mirror, err := NewRepositoryFactory(cfg, nil).Mirror(ctx)
			require.NoError(t, err)
			assert.Nil(t, mirror)
		})
	}
}

func TestRepositoryFactory_Subscriber(t *testing.T) {
	cfg := localConfig(t)
	_, err := NewRepositoryFactory(cfg, nil).Subscriber()
	assert.Error(t, err)

	cfg.EventSink = config.EventSinkRedis
	cfg.RedisURL = "redis://localhost:6379/0"
	sub, err := NewRepositoryFactory(cfg, nil).Subscriber()
	require.NoError(t, err)
	assert.NoError(t, sub.Close())
}
