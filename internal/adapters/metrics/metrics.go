// Package metrics exposes Prometheus collectors for attendance reporting
// and check-in traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricReportsTotal   = "attendance_reports_total"
	MetricReportDuration = "attendance_report_duration_seconds"
	MetricReportEvents   = "attendance_report_events"
	MetricCheckInsTotal  = "attendance_checkins_total"
)

// Report outcome labels.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusFailure = "failure"
)

// Check-in action labels.
const (
	ActionCheckIn  = "checkin"
	ActionCheckOut = "checkout"
)

// Metrics holds the collectors. All methods are safe for concurrent use.
type Metrics struct {
	reportsTotal   *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	reportEvents   prometheus.Histogram
	checkIns       *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReportsTotal,
				Help: "Attendance reports built, by time window, role filter and outcome",
			},
			[]string{"window", "role", "status"},
		),
		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricReportDuration,
				Help:    "Time to fetch and aggregate an attendance report",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"window"},
		),
		reportEvents: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricReportEvents,
				Help:    "Events included in each attendance report after filtering",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		checkIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCheckInsTotal,
				Help: "Check-in and check-out actions recorded",
			},
			[]string{"action"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveReport records one report build. events is ignored unless the
// build succeeded.
func (m *Metrics) ObserveReport(window, role, status string, seconds float64, events int) {
	m.reportsTotal.WithLabelValues(window, role, status).Inc()
	m.reportDuration.WithLabelValues(window).Observe(seconds)
	if status == StatusSuccess {
		m.reportEvents.Observe(float64(events))
	}
}

// IncCheckIns counts n check-in or check-out actions.
func (m *Metrics) IncCheckIns(action string, n int) {
	m.checkIns.WithLabelValues(action).Add(float64(n))
}

// Collectors returns all collectors, for registration and tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reportsTotal,
		m.reportDuration,
		m.reportEvents,
		m.checkIns,
	}
}
