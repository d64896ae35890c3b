package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pfdriver"

// TrackingMetrics records location ingestion, proximity and backend call outcomes.
type TrackingMetrics struct {
	samples       *prometheus.CounterVec
	pushes        *prometheus.CounterVec
	notifications prometheus.Counter
	evaluation    prometheus.Histogram
	backend       *prometheus.CounterVec
	backendTime   *prometheus.HistogramVec
}

// NewTrackingMetrics registers the collectors on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		return &TrackingMetrics{}
	}
	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_samples_total",
		Help:      "Location samples received from the platform, by filter result.",
	}, []string{"result"})
	pushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_push_total",
		Help:      "Periodic location pushes to the backend, by result.",
	}, []string{"result"})
	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proximity_notifications_total",
		Help:      "Arrival notifications emitted to the local sink.",
	})
	evaluation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "proximity_evaluation_seconds",
		Help:      "Time spent evaluating one sample against the pending stops.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
	})
	backend := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Backend API calls, by operation and result.",
	}, []string{"op", "result"})
	backendTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Backend API call latency, by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(samples, pushes, notifications, evaluation, backend, backendTime)
	return &TrackingMetrics{
		samples:       samples,
		pushes:        pushes,
		notifications: notifications,
		evaluation:    evaluation,
		backend:       backend,
		backendTime:   backendTime,
	}
}

// IncSample counts a platform sample as accepted or rejected.
func (m *TrackingMetrics) IncSample(accepted bool) {
	if m == nil || m.samples == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.samples.WithLabelValues(result).Inc()
}

// IncPush counts a backend location push.
func (m *TrackingMetrics) IncPush(ok bool) {
	if m == nil || m.pushes == nil {
		return
	}
	m.pushes.WithLabelValues(resultLabel(ok)).Inc()
}

// IncNotification counts an emitted arrival alert.
func (m *TrackingMetrics) IncNotification() {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Inc()
}

// ObserveEvaluation records one proximity evaluation.
func (m *TrackingMetrics) ObserveEvaluation(d time.Duration) {
	if m == nil || m.evaluation == nil {
		return
	}
	m.evaluation.Observe(d.Seconds())
}

// ObserveBackend records a backend call outcome and latency.
func (m *TrackingMetrics) ObserveBackend(op string, ok bool, d time.Duration) {
	if m == nil || m.backend == nil {
		return
	}
	op = normalizeLabel(op)
	m.backend.WithLabelValues(op, resultLabel(ok)).Inc()
	m.backendTime.WithLabelValues(op).Observe(d.Seconds())
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
