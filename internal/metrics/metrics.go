// Package metrics holds the Prometheus collectors of the harness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can take one unconditionally.
type Metrics struct {
	ledgerAdvancesTotal *prometheus.CounterVec

	verifyAttempts    *prometheus.HistogramVec
	verifyDuration    *prometheus.HistogramVec
	verifyOutcomes    *prometheus.CounterVec
	verifyCacheHits   prometheus.Counter
	submissionsTotal  *prometheus.CounterVec
	combinationsTotal *prometheus.CounterVec

	fixtureStepDuration *prometheus.HistogramVec
	casesTotal          *prometheus.CounterVec
	caseDuration        *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		ledgerAdvancesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrplconform_ledger_advances_total",
				Help: "Total number of ledger_accept calls by status",
			},
			[]string{"status"},
		),
		verifyAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrplconform_verify_attempts",
				Help:    "Number of tx polls needed to reach a terminal state",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"outcome"},
		),
		verifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrplconform_verify_duration_seconds",
				Help:    "Duration of transaction verification in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
			},
			[]string{"outcome"},
		),
		verifyOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrplconform_verify_outcomes_total",
				Help: "Total number of verifications by transaction type and outcome",
			},
			[]string{"type", "outcome"},
		),
		verifyCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "xrplconform_verify_cache_hits_total",
				Help: "Total number of verifications answered from the result cache",
			},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrplconform_submissions_total",
				Help: "Total number of submitted transactions by engine result",
			},
			[]string{"type", "engine_result"},
		),
		combinationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrplconform_multisig_combinations_total",
				Help: "Total number of multisig combinations by status",
			},
			[]string{"status"},
		),
		fixtureStepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrplconform_fixture_step_duration_seconds",
				Help:    "Duration of fixture steps in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"step", "status"},
		),
		casesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrplconform_cases_total",
				Help: "Total number of suite cases by status",
			},
			[]string{"case", "status"},
		),
		caseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrplconform_case_duration_seconds",
				Help:    "Duration of suite cases in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 40.0},
			},
			[]string{"case"},
		),
	}
}

// RecordLedgerAdvance records a ledger_accept call.
func (m *Metrics) RecordLedgerAdvance(status string) {
	if m == nil {
		return
	}
	m.ledgerAdvancesTotal.WithLabelValues(status).Inc()
}

// RecordVerification records the terminal state of one verification.
func (m *Metrics) RecordVerification(txType, outcome string, attempts int, duration float64) {
	if m == nil {
		return
	}
	m.verifyOutcomes.WithLabelValues(txType, outcome).Inc()
	m.verifyAttempts.WithLabelValues(outcome).Observe(float64(attempts))
	m.verifyDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordCacheHit records a verification served from cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.verifyCacheHits.Inc()
}

// RecordSubmission records the preliminary result of a submission.
func (m *Metrics) RecordSubmission(txType, engineResult string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(txType, engineResult).Inc()
}

// RecordCombination records a multisig combination attempt.
func (m *Metrics) RecordCombination(status string) {
	if m == nil {
		return
	}
	m.combinationsTotal.WithLabelValues(status).Inc()
}

// RecordFixtureStep records one orchestrated setup step.
func (m *Metrics) RecordFixtureStep(step, status string, duration float64) {
	if m == nil {
		return
	}
	m.fixtureStepDuration.WithLabelValues(step, status).Observe(duration)
}

// RecordCase records one suite case.
func (m *Metrics) RecordCase(name, status string, duration float64) {
	if m == nil {
		return
	}
	m.casesTotal.WithLabelValues(name, status).Inc()
	m.caseDuration.WithLabelValues(name).Observe(duration)
}
