// Package metrics exposes Prometheus collectors for the review backend.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const namespace = "cutroom"

type Metrics struct {
	httpDuration     *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	projectsByStatus *prometheus.GaugeVec
	notifyFailures   prometheus.Counter
	uploadedBytes    *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "project_operations_total",
				Help:      "Project operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		projectsByStatus: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "projects",
				Help:      "Stored projects by review status",
			},
			[]string{"status"},
		),
		notifyFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_failures_total",
				Help:      "Snapshot notifications that could not be published",
			},
		),
		uploadedBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploaded_bytes_total",
				Help:      "Bytes accepted by the upload endpoint by media kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveOperation counts one service call. The outcome is "ok" or the
// error kind, "internal" for unclassified errors.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
		if outcome == "" {
			outcome = "internal"
		}
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SetStatusCounts(counts map[domain.Status]int) {
	if m == nil {
		return
	}
	for _, s := range domain.AllStatuses {
		m.projectsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) Uploaded(kind string, n int64) {
	if m == nil {
		return
	}
	m.uploadedBytes.WithLabelValues(kind).Add(float64(n))
}
