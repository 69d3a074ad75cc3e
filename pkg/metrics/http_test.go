package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestObserveRequestRecordsCountAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/api/cards", "200", 150*time.Millisecond)
	m.ObserveRequest("GET", "/api/cards", "200", 50*time.Millisecond)
	m.ObserveRequest("POST", "/api/cards", "201", 10*time.Millisecond)

	counter := gatherFamily(t, reg, "http_requests_total")
	if counter == nil {
		t.Fatal("expected http_requests_total to be registered")
	}
	var total float64
	for _, metric := range counter.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 3 {
		t.Fatalf("expected 3 requests recorded, got %v", total)
	}

	histogram := gatherFamily(t, reg, "http_request_duration_seconds")
	if histogram == nil {
		t.Fatal("expected http_request_duration_seconds to be registered")
	}
	var observations uint64
	for _, metric := range histogram.GetMetric() {
		observations += metric.GetHistogram().GetSampleCount()
	}
	if observations != 3 {
		t.Fatalf("expected 3 observations, got %d", observations)
	}
}

func TestObserveRequestFillsEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("", "", "", time.Millisecond)

	counter := gatherFamily(t, reg, "http_requests_total")
	if counter == nil || len(counter.GetMetric()) != 1 {
		t.Fatal("expected one counter series")
	}
	for _, label := range counter.GetMetric()[0].GetLabel() {
		if label.GetValue() != "unknown" {
			t.Fatalf("expected unknown label value, got %s=%s", label.GetName(), label.GetValue())
		}
	}
}

func TestNilRegistererYieldsNoOpMetrics(t *testing.T) {
	m := NewHTTPMetrics(nil)
	// Must not panic.
	m.ObserveRequest("GET", "/", "200", time.Second)
}
