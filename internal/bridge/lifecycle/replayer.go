// Package lifecycle replays the UI lifecycle transitions the SDK missed
// because it was configured after the host UI came up.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// Skip reasons reported in logs and metrics.
const (
	SkipNotConfigured = "not_configured"
	SkipAlreadyDone   = "already_replayed"
	SkipNoUIContext   = "no_ui_context"
	SkipNoClient      = "no_client"
)

// UIContextProvider returns the current host UI context, or nil.
type UIContextProvider interface {
	CurrentUIContext() sdk.UIContext
}

// ClientSource returns the active SDK client.
type ClientSource interface {
	Client() (sdk.Client, bool)
}

// HostListener receives host lifecycle notifications.
type HostListener interface {
	OnHostResume(ctx context.Context)
	OnHostPause(ctx context.Context)
	OnHostDestroy(ctx context.Context)
}

// Replayer performs the created/started/resumed replay at most once per
// configuration. Attempts are serialized.
type Replayer struct {
	state   *domain.StateMachine
	ui      UIContextProvider
	clients ClientSource
	metrics observability.Metrics
	logger  *slog.Logger

	mu sync.Mutex
}

// NewReplayer creates a replayer.
func NewReplayer(state *domain.StateMachine, ui UIContextProvider, clients ClientSource, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{
		state:   state,
		ui:      ui,
		clients: clients,
		metrics: observability.NoopMetrics{},
		logger:  logger.With("component", "lifecycle"),
	}
}

// WithMetrics sets the metrics collector.
func (r *Replayer) WithMetrics(m observability.Metrics) *Replayer {
	if m != nil {
		r.metrics = m
	}
	return r
}

// AttemptReplay replays the lifecycle if the SDK is configured, has not
// replayed yet and a UI context is available. It reports whether this
// call performed the replay.
func (r *Replayer) AttemptReplay(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Current() {
	case domain.StateConfigured:
	case domain.StateReplayed:
		return r.skip(ctx, SkipAlreadyDone)
	default:
		return r.skip(ctx, SkipNotConfigured)
	}

	ui := r.ui.CurrentUIContext()
	if ui == nil {
		return r.skip(ctx, SkipNoUIContext)
	}
	if _, ok := r.clients.Client(); !ok {
		return r.skip(ctx, SkipNoClient)
	}

	// Claim the replay first so a failing hook is never repeated.
	if err := r.state.MarkReplayed(); err != nil {
		return r.skip(ctx, SkipAlreadyDone)
	}
	// A reset may have swapped or dropped the client since the check
	// above; the hooks go to whichever client owns the claimed state.
	client, ok := r.clients.Client()
	if !ok {
		return r.skip(ctx, SkipNoClient)
	}

	if err := replay(client, ui); err != nil {
		r.logger.ErrorContext(ctx, "lifecycle replay failed",
			"ui_context", ui.ID(),
			"error", err,
		)
		r.metrics.Counter(observability.MetricLifecycleReplays, 1, observability.T(observability.StatusKey, "error"))
		return true
	}

	r.logger.InfoContext(ctx, "lifecycle replayed", "ui_context", ui.ID())
	r.metrics.Counter(observability.MetricLifecycleReplays, 1, observability.T(observability.StatusKey, "ok"))
	return true
}

func replay(client sdk.LifecycleObserver, ui sdk.UIContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.PanicError{Value: rec}
		}
	}()
	client.ReplayLifecycleOnCreated(ui)
	client.ReplayLifecycleOnStarted(ui)
	client.ReplayLifecycleOnResumed(ui)
	return nil
}

func (r *Replayer) skip(ctx context.Context, reason string) bool {
	r.logger.DebugContext(ctx, "lifecycle replay skipped", "reason", reason)
	r.metrics.Counter(observability.MetricLifecycleSkipped, 1, observability.T("reason", reason))
	return false
}

// OnHostResume retries the replay; resume may arrive after configure.
func (r *Replayer) OnHostResume(ctx context.Context) {
	r.AttemptReplay(ctx)
}

// OnHostPause is accepted and ignored.
func (r *Replayer) OnHostPause(ctx context.Context) {}

// OnHostDestroy is accepted and ignored.
func (r *Replayer) OnHostDestroy(ctx context.Context) {}

var _ HostListener = (*Replayer)(nil)
