// Package gateway turns host commands into serialized SDK calls and
// settles one Promise per command.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/lifecycle"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// ErrGatewayClosed rejects commands submitted after Close.
var ErrGatewayClosed = errors.New("command gateway is closed")

// Connector is the SDK surface the gateway forwards to.
type Connector interface {
	Configure(ctx context.Context, cfg domain.Configuration) (sdk.Client, error)
	Identify(ctx context.Context, userID string, traits sdk.Traits) error
	Track(ctx context.Context, event string, props sdk.Properties) error
	SetPushToken(ctx context.Context, token string) error
	PushReceived(ctx context.Context, props sdk.Properties) error
	PushTapped(ctx context.Context, props sdk.Properties, actionID string) error
	Reset(ctx context.Context) error
}

// Replayer is triggered after every successful configure.
type Replayer interface {
	AttemptReplay(ctx context.Context) bool
}

// Config configures the gateway.
type Config struct {
	// QueueSize bounds the number of commands waiting for the worker.
	QueueSize int
	Breaker   BreakerConfig
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize: 128,
		Breaker:   DefaultBreakerConfig(),
	}
}

// Deps are the collaborators of a Gateway. Journal, Metrics and Logger
// are optional.
type Deps struct {
	State     *domain.StateMachine
	Connector Connector
	Replayer  Replayer
	UI        lifecycle.UIContextProvider
	Journal   journal.Repository
	Metrics   observability.Metrics
	Logger    *slog.Logger
}

type runFunc func(ctx context.Context) (any, error)

type job struct {
	ctx                context.Context
	command            string
	requiresConfigured bool
	run                runFunc
	promise            *Promise
}

// Gateway executes commands one at a time, in submission order, on the
// goroutine running Run.
type Gateway struct {
	state     *domain.StateMachine
	connector Connector
	replayer  Replayer
	ui        lifecycle.UIContextProvider
	journal   journal.Repository
	metrics   observability.Metrics
	logger    *slog.Logger
	forwarder *forwarder

	queue     chan *job
	done      chan struct{}
	stopped   chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	running   atomic.Bool
}

// New creates a gateway. Call Run to start executing commands.
func New(deps Deps, cfg Config) *Gateway {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if deps.Journal == nil {
		deps.Journal = journal.NoopRepository{}
	}
	if deps.UI == nil {
		deps.UI = lifecycle.NewUIContextHolder(nil)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	logger := deps.Logger.With("component", "gateway")

	return &Gateway{
		state:     deps.State,
		connector: deps.Connector,
		replayer:  deps.Replayer,
		ui:        deps.UI,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		logger:    logger,
		forwarder: newForwarder(cfg.Breaker, deps.Metrics, logger),
		queue:     make(chan *job, cfg.QueueSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Run executes queued commands until Close is called or ctx ends. Commands
// already queued at that point are still executed.
func (g *Gateway) Run(ctx context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return fmt.Errorf("gateway already running")
	}
	defer close(g.stopped)

	g.logger.Info("command gateway started")
	for {
		select {
		case j, ok := <-g.queue:
			if !ok {
				g.logger.Info("command gateway stopped")
				return nil
			}
			g.execute(j)
		case <-ctx.Done():
			g.Close()
			for j := range g.queue {
				g.execute(j)
			}
			g.logger.Info("command gateway stopped", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// Close stops accepting commands. It does not wait for the worker; use
// Stopped for that.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		close(g.queue)
	})
}

// Stopped is closed when Run returns.
func (g *Gateway) Stopped() <-chan struct{} {
	return g.stopped
}

// BreakerState reports the SDK circuit breaker state.
func (g *Gateway) BreakerState() string {
	return g.forwarder.state()
}

func (g *Gateway) submit(ctx context.Context, command string, requiresConfigured bool, run runFunc) *Promise {
	p := NewPromise()
	if ctx == nil {
		ctx = context.Background()
	}
	if observability.CommandIDFromContext(ctx) == "" {
		ctx = observability.WithCommandID(ctx, "")
	}
	ctx = observability.WithCommand(ctx, command)

	j := &job{
		ctx:                ctx,
		command:            command,
		requiresConfigured: requiresConfigured,
		run:                run,
		promise:            p,
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		p.Reject(domain.NewCommandError(command, domain.KindExecution, ErrGatewayClosed))
		return p
	}
	select {
	case g.queue <- j:
	case <-g.done:
		p.Reject(domain.NewCommandError(command, domain.KindExecution, ErrGatewayClosed))
	case <-ctx.Done():
		p.Reject(domain.NewCommandError(command, domain.KindExecution, ctx.Err()))
	}
	return p
}

func (g *Gateway) execute(j *job) {
	ctx := j.ctx
	start := time.Now()

	value, err := g.safeRun(ctx, j)

	observability.StartTimerAt(j.command, start).
		WithContext(ctx).
		WithLogger(g.logger).
		WithMetrics(g.metrics).
		Stop(err)
	g.record(ctx, j.command, start, err)

	if err != nil {
		j.promise.Reject(err)
		return
	}
	j.promise.Resolve(value)
}

func (g *Gateway) safeRun(ctx context.Context, j *job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "command panicked", observability.CommandKey, j.command, "panic", r)
			value, err = nil, domain.NewCommandError(j.command, domain.KindExecution, &domain.PanicError{Value: r})
		}
	}()

	if j.requiresConfigured && !g.state.IsConfigured() {
		return nil, domain.NewCommandError(j.command, domain.KindNotConfigured, domain.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewCommandError(j.command, domain.KindExecution, err)
	}

	value, err = j.run(ctx)
	if err != nil {
		var cmdErr *domain.CommandError
		if !errors.As(err, &cmdErr) {
			err = domain.NewCommandError(j.command, domain.KindExecution, err)
		}
		return nil, err
	}
	return value, nil
}

// record writes the journal entry. Failures are logged and counted only.
func (g *Gateway) record(ctx context.Context, command string, start time.Time, err error) {
	entry := journal.NewEntry(observability.CommandIDFromContext(ctx), command, start, err, string(domain.KindOf(err)))
	if recErr := g.journal.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		g.logger.WarnContext(ctx, "failed to journal command",
			observability.CommandKey, command,
			observability.ErrorKey, recErr,
		)
		g.metrics.Counter(observability.MetricJournalErrors, 1)
	}
}
