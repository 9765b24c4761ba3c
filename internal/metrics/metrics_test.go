package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAggregation("daily_orders", 3*time.Millisecond)
	m.SetRows("orders", 42)
	m.IncLoadError("geolocation")
	m.IncRequest("/api/dashboard", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`ecomdash_aggregation_duration_seconds_count{operation="daily_orders"} 1`,
		`ecomdash_dataset_rows{dataset="orders"} 42`,
		`ecomdash_dataset_load_errors_total{dataset="geolocation"} 1`,
		`ecomdash_http_requests_total{code="200",route="/api/dashboard"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveAggregation("x", time.Second)
	m.SetRows("orders", 1)
	m.IncLoadError("orders")
	m.IncRequest("/", 500)
}

func TestRegistryGather(t *testing.T) {
	m := New()
	m.SetRows("geolocation", 7)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "ecomdash_dataset_rows" {
			continue
		}
		if got := f.GetMetric()[0].GetGauge().GetValue(); got != 7 {
			t.Errorf("Expected 7 rows, got %v", got)
		}
		return
	}
	t.Fatal("ecomdash_dataset_rows not registered")
}
