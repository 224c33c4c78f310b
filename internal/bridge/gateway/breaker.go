package gateway

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// ErrCircuitOpen is returned while the SDK circuit breaker is open.
var ErrCircuitOpen = errors.New("snapyr sdk circuit breaker is open")

// BreakerConfig configures the breaker around forwarded SDK calls.
type BreakerConfig struct {
	// Enabled turns the breaker on.
	Enabled bool

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that trips it.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// forwarder runs SDK calls through a breaker that is replaced on every
// successful configure, so a new SDK instance starts closed.
type forwarder struct {
	cfg     BreakerConfig
	logger  *slog.Logger
	metrics observability.Metrics
	breaker atomic.Pointer[gobreaker.CircuitBreaker[any]]
}

func newForwarder(cfg BreakerConfig, metrics observability.Metrics, logger *slog.Logger) *forwarder {
	f := &forwarder{cfg: cfg, logger: logger, metrics: metrics}
	f.renew()
	return f
}

// renew installs a fresh breaker.
func (f *forwarder) renew() {
	if !f.cfg.Enabled {
		f.breaker.Store(nil)
		return
	}

	settings := gobreaker.Settings{
		Name:        "snapyr-sdk",
		MaxRequests: f.cfg.MaxRequests,
		Interval:    f.cfg.Interval,
		Timeout:     f.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= f.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			f.metrics.Counter(observability.MetricBreakerStateChanges, 1, observability.T("to", to.String()))
		},
	}
	f.breaker.Store(gobreaker.NewCircuitBreaker[any](settings))
}

// forward runs fn under the current breaker.
func (f *forwarder) forward(fn func() error) error {
	breaker := f.breaker.Load()
	if breaker == nil {
		return fn()
	}

	_, err := breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// state reports the breaker state, or "disabled".
func (f *forwarder) state() string {
	breaker := f.breaker.Load()
	if breaker == nil {
		return "disabled"
	}
	return breaker.State().String()
}
