package driveauth

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d, want 2", got)
	}
	if got := m.Value(MetricLogout); got != 1 {
		t.Fatalf("logout = %d, want 1", got)
	}
	if got := m.Value(MetricLoginFailure); got != 0 {
		t.Fatalf("login failure = %d, want 0", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled counter = %d, want 0", got)
	}
	if m.Enabled() {
		t.Fatal("Enabled() = true, want false")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	if m.Value(MetricLogout) != 0 {
		t.Fatal("nil metrics must read zero")
	}
	if m.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestMetricsOutOfRangeID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricID(1000))
	if m.Value(MetricID(1000)) != 0 {
		t.Fatal("out-of-range id must be ignored")
	}
}

func TestMetricsSnapshotCopies(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricValidateValid)

	snap := m.Snapshot()
	m.Inc(MetricValidateValid)

	if snap.Counters[MetricValidateValid] != 1 {
		t.Fatalf("snapshot = %d, want 1", snap.Counters[MetricValidateValid])
	}
	if m.Value(MetricValidateValid) != 2 {
		t.Fatalf("live = %d, want 2", m.Value(MetricValidateValid))
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.Inc(MetricValidateValid)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateValid); got != goroutines*perGoroutine {
		t.Fatalf("count = %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestOutcomeMetricMapping(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    MetricID
	}{
		{OutcomeValid, MetricValidateValid},
		{OutcomeNoSession, MetricValidateNoSession},
		{OutcomeInvalid, MetricValidateInvalid},
		{OutcomeExpiredByInactivity, MetricValidateExpiredInactivity},
		{OutcomeExpiredByToken, MetricValidateExpiredToken},
	}
	for _, tc := range cases {
		if got := outcomeMetric(tc.outcome); got != tc.want {
			t.Fatalf("outcomeMetric(%v) = %v, want %v", tc.outcome, got, tc.want)
		}
	}
}

func TestManagerMetricsAcrossLifecycle(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(outcomeMetric(OutcomeValid))
	m.Inc(outcomeMetric(OutcomeValid))
	m.Inc(MetricLogout)

	snap := m.Snapshot()
	if snap.Counters[MetricValidateValid] != 2 || snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricLogout] != 1 {
		t.Fatalf("snapshot = %v", snap.Counters)
	}
}
