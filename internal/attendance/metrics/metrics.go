package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance module.
type Metrics struct {
	// Scan verdicts by outcome ("approved"/"rejected") and rejection reason.
	ScanVerdicts *prometheus.CounterVec

	// Commit results from the recorder ("committed", "already_present", "failed").
	CommitResults *prometheus.CounterVec

	// Full pipeline latency including the repository read and commit.
	ScanLatency prometheus.Histogram
}

// New creates a Metrics instance with all attendance metrics registered.
func New() *Metrics {
	return &Metrics{
		ScanVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tmc_attendance_scan_verdicts_total",
			Help: "Total scan verdicts by outcome and rejection reason",
		}, []string{"outcome", "reason"}),

		CommitResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tmc_attendance_commit_results_total",
			Help: "Total attendance record commit results",
		}, []string{"result"}),

		ScanLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tmc_attendance_scan_duration_seconds",
			Help:    "Duration of a full scan evaluation including storage",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementVerdict records a scan outcome. Approved scans carry an empty
// reason label.
func (m *Metrics) IncrementVerdict(outcome, reason string) {
	if m != nil {
		m.ScanVerdicts.WithLabelValues(outcome, reason).Inc()
	}
}

// IncrementCommit records a recorder commit result.
func (m *Metrics) IncrementCommit(result string) {
	if m != nil {
		m.CommitResults.WithLabelValues(result).Inc()
	}
}

// ObserveScanLatency records the duration of a full scan.
func (m *Metrics) ObserveScanLatency(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}
