package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/config"
)

// RepositoryFactory opens the journal and event sinks selected by config.
type RepositoryFactory struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(cfg *config.Config, logger *slog.Logger) *RepositoryFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryFactory{cfg: cfg, logger: logger}
}

// Journal opens the command journal for the configured driver.
func (f *RepositoryFactory) Journal(ctx context.Context) (journal.Repository, error) {
	switch f.cfg.JournalDriver {
	case config.JournalDriverSQLite:
		repo, err := journal.OpenSQLite(ctx, f.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite journal: %w", err)
		}
		f.logger.Info("command journal opened", "driver", "sqlite", "path", f.cfg.SQLitePath)
		return repo, nil

	case config.JournalDriverPostgres:
		repo, err := journal.OpenPostgres(ctx, f.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL journal: %w", err)
		}
		f.logger.Info("command journal opened", "driver", "postgres")
		return repo, nil

	case config.JournalDriverNone:
		return journal.NoopRepository{}, nil

	default:
		return nil, fmt.Errorf("unsupported journal driver: %s", f.cfg.JournalDriver)
	}
}

// Mirror opens the external broker host events are copied to. It returns
// nil for sinks without a broker.
func (f *RepositoryFactory) Mirror(ctx context.Context) (eventbus.Publisher, error) {
	switch f.cfg.EventSink {
	case config.EventSinkRabbitMQ:
		p, err := eventbus.NewRabbitMQPublisher(f.cfg.RabbitMQURL, f.cfg.EventTopic, f.logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.EventSinkRedis:
		p, err := eventbus.NewRedisPublisher(ctx, f.cfg.RedisURL, f.cfg.EventTopic, f.logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.EventSinkInProcess, config.EventSinkNoop:
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported event sink: %s", f.cfg.EventSink)
	}
}

// Subscriber opens a tail on the configured broker.
func (f *RepositoryFactory) Subscriber() (eventbus.Subscriber, error) {
	switch f.cfg.EventSink {
	case config.EventSinkRabbitMQ:
		s, err := eventbus.NewRabbitMQSubscriber(eventbus.RabbitMQSubscriberConfig{
			URL:      f.cfg.RabbitMQURL,
			Exchange: f.cfg.EventTopic,
			Logger:   f.logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.EventSinkRedis:
		s, err := eventbus.NewRedisSubscriber(f.cfg.RedisURL, f.cfg.EventTopic, f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("event sink %q has no broker to subscribe to", f.cfg.EventSink)
	}
}
