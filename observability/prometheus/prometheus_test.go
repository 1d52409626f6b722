package prometheus

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	if err := c.Increment("toggled.sdk.fetch_count", 1, map[string]interface{}{"status": 200}); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := c.Increment("toggled.sdk.fetch_count", 2, map[string]interface{}{"status": 200}); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	c.Increment("toggled.sdk.fetch_count", 1, map[string]interface{}{"status": 304})

	vec := c.counters["toggled.sdk.fetch_count"]
	if got := testutil.ToFloat64(vec.WithLabelValues("200")); got != 3 {
		t.Fatalf("expected 3 for status 200, got %v", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("304")); got != 1 {
		t.Fatalf("expected 1 for status 304, got %v", got)
	}
}

func TestIncrementAddsTotalSuffix(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Increment("toggled.sdk.metrics_flush", 1, nil)

	expected := `
# HELP toggled_sdk_metrics_flush_total Toggled SDK counter toggled.sdk.metrics_flush
# TYPE toggled_sdk_metrics_flush_total counter
toggled_sdk_metrics_flush_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "toggled_sdk_metrics_flush_total"); err != nil {
		t.Fatal(err)
	}
}

func TestGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Gauge("toggled.sdk.toggle_count", 4, nil)
	c.Gauge("toggled.sdk.toggle_count", 2, nil)

	if got := testutil.ToFloat64(c.gauges["toggled.sdk.toggle_count"].WithLabelValues()); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
}

func TestDistribution(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Distribution("toggled.sdk.fetch_latency", 12, nil)
	c.Distribution("toggled.sdk.fetch_latency", 700, nil)

	if n := testutil.CollectAndCount(c.histograms["toggled.sdk.fetch_latency"]); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestMismatchedLabels(t *testing.T) {
	c := New(prometheus.NewRegistry())

	if err := c.Gauge("g", 1, map[string]interface{}{"a": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Gauge("g", 1, map[string]interface{}{"b": "x"}); err == nil {
		t.Fatal("expected an error for different label names")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("toggled.sdk.fetch-latency"); got != "toggled_sdk_fetch_latency" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestSharedRegistererReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	if err := first.Increment("toggled.sdk.fetch_count", 1, map[string]interface{}{"status": 200}); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := second.Increment("toggled.sdk.fetch_count", 2, map[string]interface{}{"status": 200}); err != nil {
		t.Fatalf("expected second client to reuse the registered collector, got %v", err)
	}
	if err := second.Gauge("toggled.sdk.toggle_count", 3, nil); err != nil {
		t.Fatalf("gauge failed: %v", err)
	}
	if err := first.Gauge("toggled.sdk.toggle_count", 5, nil); err != nil {
		t.Fatalf("expected first client to reuse the registered gauge, got %v", err)
	}
	first.Distribution("toggled.sdk.fetch_latency", 10, nil)
	if err := second.Distribution("toggled.sdk.fetch_latency", 20, nil); err != nil {
		t.Fatalf("expected second client to reuse the registered histogram, got %v", err)
	}

	if got := testutil.ToFloat64(first.counters["toggled.sdk.fetch_count"].WithLabelValues("200")); got != 3 {
		t.Fatalf("expected both clients to count into one series, got %v", got)
	}
	if got := testutil.ToFloat64(second.gauges["toggled.sdk.toggle_count"].WithLabelValues()); got != 5 {
		t.Fatalf("expected shared gauge 5, got %v", got)
	}
}

func TestRegisterConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "toggled_sdk_toggle_count", Help: "other"}))

	if err := New(reg).Gauge("toggled.sdk.toggle_count", 1, map[string]interface{}{"a": "b"}); err == nil {
		t.Fatal("expected an error for an incompatible collector")
	}
}
