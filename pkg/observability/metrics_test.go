package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}

	assert.NotPanics(t, func() {
		m.Counter("test", 1)
		m.Gauge("test", 1.0)
		m.Timing("test", time.Second)
	})
}

func TestInMemoryMetrics(t *testing.T) {
	t.Run("counter", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter(MetricCommandsTotal, 1)
		m.Counter(MetricCommandsTotal, 2)
		assert.Equal(t, int64(3), m.GetCounter(MetricCommandsTotal))
	})

	t.Run("tag order does not matter", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter(MetricCommandsTotal, 1, T("command", "track"), T("status", "ok"))
		m.Counter(MetricCommandsTotal, 1, T("status", "ok"), T("command", "track"))

		assert.Equal(t, int64(2), m.GetCounter(MetricCommandsTotal, T("command", "track"), T("status", "ok")))
		assert.Equal(t, int64(2), m.Counters()["snapyr.commands.total:command=track:status=ok"])
	})

	t.Run("gauge", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Gauge("snapyr.events.pending", 4)
		m.Gauge("snapyr.events.pending", 1)
		assert.Equal(t, 1.0, m.GetGauge("snapyr.events.pending"))
	})

	t.Run("timings are copied", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Timing(MetricCommandsDuration, time.Millisecond)
		got := m.GetTimings(MetricCommandsDuration)
		require.Len(t, got, 1)
		got[0] = time.Hour
		assert.Equal(t, time.Millisecond, m.GetTimings(MetricCommandsDuration)[0])
	})

	t.Run("reset", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter("c", 1)
		m.Gauge("g", 1)
		m.Timing("t", time.Second)
		m.Reset()
		assert.Zero(t, m.GetCounter("c"))
		assert.Zero(t, m.GetGauge("g"))
		assert.Empty(t, m.GetTimings("t"))
	})
}

func TestTimer_Stop(t *testing.T) {
	t.Run("success records total and duration", func(t *testing.T) {
		m := NewInMemoryMetrics()
		d := StartTimer("identify").WithMetrics(m).Stop(nil)

		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Equal(t, int64(1), m.GetCounter(MetricCommandsTotal, T(CommandKey, "identify"), T(StatusKey, "ok")))
		assert.Zero(t, m.GetCounter(MetricCommandsErrors, T(CommandKey, "identify")))
		assert.Len(t, m.GetTimings(MetricCommandsDuration, T(CommandKey, "identify")), 1)
	})

	t.Run("failure records error counter", func(t *testing.T) {
		m := NewInMemoryMetrics()
		StartTimer("track").WithMetrics(m).Stop(errors.New("boom"))

		assert.Equal(t, int64(1), m.GetCounter(MetricCommandsTotal, T(CommandKey, "track"), T(StatusKey, "error")))
		assert.Equal(t, int64(1), m.GetCounter(MetricCommandsErrors, T(CommandKey, "track")))
	})

	t.Run("without collectors", func(t *testing.T) {
		timer := StartTimer("reset")
		assert.False(t, timer.Started().IsZero())
		assert.NotPanics(t, func() { timer.Stop(nil) })
	})
}

func TestHealthRegistry(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	fail := func(ctx context.Context) error { return errors.New("connection refused") }

	t.Run("empty registry is healthy", func(t *testing.T) {
		r := NewHealthRegistry()
		h := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusHealthy, h.Status)
		assert.Empty(t, h.Checks)
	})

	t.Run("degraded sink", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("journal", PingHealthChecker("journal", HealthStatusUnhealthy, ok))
		r.Register("events", PingHealthChecker("redis", HealthStatusDegraded, fail))

		h := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusDegraded, h.Status)
		assert.Equal(t, []string{"events", "journal"}, r.Names())
		assert.Contains(t, h.Checks["events"].Message, "connection refused")
		assert.False(t, h.Checks["journal"].Timestamp.IsZero())
	})

	t.Run("unhealthy wins", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("journal", PingHealthChecker("journal", HealthStatusUnhealthy, fail))
		r.Register("events", PingHealthChecker("redis", HealthStatusDegraded, fail))

		assert.Equal(t, HealthStatusUnhealthy, r.GetOverallHealth(context.Background()).Status)
	})

	t.Run("sdk state", func(t *testing.T) {
		configured := false
		checker := SDKStateHealthChecker(func() string { return "unconfigured" }, func() bool { return configured })

		res := checker(context.Background())
		assert.Equal(t, HealthStatusDegraded, res.Status)
		assert.Equal(t, "unconfigured", res.Details["state"])

		configured = true
		assert.Equal(t, HealthStatusHealthy, checker(context.Background()).Status)
	})

	t.Run("slow check times out", func(t *testing.T) {
		r := NewHealthRegistry().WithTimeout(20 * time.Millisecond)
		r.Register("events", PingHealthChecker("rabbitmq", HealthStatusDegraded, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))

		h := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusDegraded, h.Status)
		assert.Contains(t, h.Checks["events"].Message, "deadline exceeded")
	})

	t.Run("json", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("journal", PingHealthChecker("journal", HealthStatusUnhealthy, ok))
		data, err := r.GetOverallHealth(context.Background()).ToJSON()
		require.NoError(t, err)
		assert.Contains(t, string(data), `"status":"healthy"`)
	})
}
