package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQSubscriber tails host events from the topic exchange through an
// exclusive, auto-deleted queue.
type RabbitMQSubscriber struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	exchange  string
	registry  *ListenerRegistry
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	closeOnce sync.Once
	closeChan chan struct{}
}

// RabbitMQSubscriberConfig configures the RabbitMQ subscriber.
type RabbitMQSubscriberConfig struct {
	URL      string
	Exchange string
	Logger   *slog.Logger
}

// NewRabbitMQSubscriber dials the broker and declares a private queue.
func NewRabbitMQSubscriber(cfg RabbitMQSubscriberConfig) (*RabbitMQSubscriber, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(ch, cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	cfg.Logger.Info("RabbitMQ subscriber connected",
		"queue", q.Name,
		"exchange", cfg.Exchange,
	)

	return &RabbitMQSubscriber{
		conn:      conn,
		channel:   ch,
		queue:     q.Name,
		exchange:  cfg.Exchange,
		registry:  NewListenerRegistry(cfg.Logger),
		logger:    cfg.Logger,
		closeChan: make(chan struct{}),
	}, nil
}

// RegisterListener registers a listener and binds its names to the queue.
func (s *RabbitMQSubscriber) RegisterListener(listener Listener) {
	s.registry.Register(listener)

	for _, name := range listener.EventNames() {
		if err := s.bindQueue(bindingKey(name)); err != nil {
			s.logger.Error("failed to bind queue",
				"event", name,
				"error", err,
			)
		}
	}
}

// bindingKey maps the listener wildcard onto the AMQP topic wildcard.
func bindingKey(name string) string {
	if name == WildcardName {
		return "#"
	}
	return name
}

func (s *RabbitMQSubscriber) bindQueue(routingKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.channel.QueueBind(s.queue, routingKey, s.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	s.logger.Debug("bound queue to routing key",
		"queue", s.queue,
		"routing_key", routingKey,
	)
	return nil
}

// Start consumes until ctx is cancelled or Close is called.
func (s *RabbitMQSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("subscriber already running")
	}
	s.running = true
	s.mu.Unlock()

	msgs, err := s.channel.Consume(
		s.queue,
		"",    // consumer tag
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closeChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed unexpectedly")
			}
			s.deliver(ctx, msg)
		}
	}
}

func (s *RabbitMQSubscriber) deliver(ctx context.Context, msg amqp.Delivery) {
	event, err := DecodeHostEvent(msg.Body, msg.RoutingKey)
	if err != nil {
		s.logger.Warn("discarding undecodable message",
			"routing_key", msg.RoutingKey,
			"error", err,
		)
		return
	}
	if err := s.registry.Dispatch(ctx, event); err != nil {
		s.logger.Error("event dispatch failed",
			"event", event.Name,
			"event_id", event.ID,
			"error", err,
		)
	}
}

// Close closes the subscriber connection.
func (s *RabbitMQSubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.closeChan) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false

	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn("error closing channel", "error", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return err
		}
	}

	s.logger.Info("RabbitMQ subscriber closed")
	return nil
}
