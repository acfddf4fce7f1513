package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics manages Prometheus instrumentation for analysis runs.
type Metrics struct {
	runTotal          prometheus.Counter
	issuesSeen        prometheus.Counter
	groupsPerRun      prometheus.Histogram
	matchOutcome      *prometheus.CounterVec
	investigations    *prometheus.CounterVec
	trackerAssessment *prometheus.CounterVec
	dedupSavings      prometheus.Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton engine metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	m := &Metrics{
		runTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "run_total",
				Help:      "Total analysis runs",
			},
		),
		issuesSeen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "issues_seen_total",
				Help:      "Total issues extracted from snapshots",
			},
		),
		groupsPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "groups_per_run",
				Help:      "Number of symptom groups per analysis run",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
		),
		matchOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "match_outcome_total",
				Help:      "Total issue matches by source (known, learned, none)",
			},
			[]string{"source"},
		),
		investigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "investigation_total",
				Help:      "Total investigations by type",
			},
			[]string{"type"},
		),
		trackerAssessment: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "tracker_assessment_total",
				Help:      "Total tracker assessments by verdict",
			},
			[]string{"assessment"},
		),
		dedupSavings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "healthcrew",
				Subsystem: "engine",
				Name:      "dedup_savings_total",
				Help:      "Investigations avoided by symptom grouping",
			},
		),
	}

	prometheus.MustRegister(
		m.runTotal,
		m.issuesSeen,
		m.groupsPerRun,
		m.matchOutcome,
		m.investigations,
		m.trackerAssessment,
		m.dedupSavings,
	)

	return m
}

// RecordRun records a completed analysis run.
func (m *Metrics) RecordRun(issueCount, groupCount int) {
	m.runTotal.Inc()
	m.issuesSeen.Add(float64(issueCount))
	m.groupsPerRun.Observe(float64(groupCount))
	if saved := issueCount - groupCount; saved > 0 {
		m.dedupSavings.Add(float64(saved))
	}
}

// RecordMatch records a match outcome by source.
func (m *Metrics) RecordMatch(source string) {
	m.matchOutcome.WithLabelValues(source).Inc()
}

// RecordInvestigation records one investigation by type.
func (m *Metrics) RecordInvestigation(typ string) {
	m.investigations.WithLabelValues(typ).Inc()
}

// RecordTrackerAssessment records a tracker assessment verdict.
func (m *Metrics) RecordTrackerAssessment(assessment string) {
	m.trackerAssessment.WithLabelValues(assessment).Inc()
}
