package observability

import (
	"context"
	"log/slog"
	"time"
)

// Timer tracks the duration of a command and records metrics on stop.
type Timer struct {
	ctx     context.Context
	command string
	start   time.Time
	logger  *slog.Logger
	metrics Metrics
}

// StartTimer creates a new timer for the given command.
func StartTimer(command string) *Timer {
	return StartTimerAt(command, time.Now())
}

// StartTimerAt creates a timer for a command that started at start.
func StartTimerAt(command string, start time.Time) *Timer {
	return &Timer{
		ctx:     context.Background(),
		command: command,
		start:   start,
	}
}

// WithContext sets the context whose ids are attached to the stop log.
func (t *Timer) WithContext(ctx context.Context) *Timer {
	if ctx != nil {
		t.ctx = ctx
	}
	return t
}

// WithLogger adds a logger to the timer for automatic logging on stop.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// WithMetrics adds a metrics collector to the timer.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// Started returns when the timer was started.
func (t *Timer) Started() time.Time {
	return t.start
}

// Stop records the duration with the outcome of err.
func (t *Timer) Stop(err error) time.Duration {
	duration := time.Since(t.start)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if t.logger != nil {
		if err != nil {
			t.logger.WarnContext(t.ctx, "command rejected",
				CommandKey, t.command,
				DurationKey, duration.Milliseconds(),
				ErrorKey, err.Error(),
			)
		} else {
			t.logger.DebugContext(t.ctx, "command resolved",
				CommandKey, t.command,
				DurationKey, duration.Milliseconds(),
			)
		}
	}

	if t.metrics != nil {
		cmd := T(CommandKey, t.command)
		t.metrics.Timing(MetricCommandsDuration, duration, cmd)
		t.metrics.Counter(MetricCommandsTotal, 1, cmd, T(StatusKey, status))
		if err != nil {
			t.metrics.Counter(MetricCommandsErrors, 1, cmd)
		}
	}

	return duration
}
