package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestTrackingMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTrackingMetrics(reg)
	m.IncSample(true)
	m.IncSample(true)
	m.IncSample(false)
	m.IncPush(false)
	m.IncNotification()
	m.ObserveEvaluation(200 * time.Microsecond)
	m.ObserveBackend("deliver", true, 120*time.Millisecond)
	m.ObserveBackend("", false, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pfdriver_location_samples_total", map[string]string{"result": "accepted"}); err != nil || got != 2 {
		t.Fatalf("expected accepted samples=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pfdriver_location_samples_total", map[string]string{"result": "rejected"}); err != nil || got != 1 {
		t.Fatalf("expected rejected samples=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pfdriver_location_push_total", map[string]string{"result": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected push failure=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pfdriver_proximity_notifications_total", nil); err != nil || got != 1 {
		t.Fatalf("expected notifications=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pfdriver_backend_requests_total", map[string]string{"op": "unknown", "result": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected unknown op failure=1, got %f (%v)", got, err)
	}
}

func TestNilTrackingMetricsIsSafe(t *testing.T) {
	var m *TrackingMetrics
	m.IncSample(true)
	m.IncPush(true)
	m.IncNotification()
	m.ObserveEvaluation(time.Millisecond)
	m.ObserveBackend("deliver", true, time.Millisecond)

	noop := NewTrackingMetrics(nil)
	noop.IncSample(false)
	noop.ObserveBackend("deliver", false, time.Millisecond)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, label := range pairs {
			if label.GetName() == name && label.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
