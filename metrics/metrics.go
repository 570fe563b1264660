// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"strconv"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coaching_ai"

// Metrics holds all Prometheus metrics for the service.
// It implements assessment.Observer.
type Metrics struct {
	// Pipeline metrics
	ChunksTotal      *prometheus.CounterVec
	ChunkLatency     prometheus.Histogram
	RepairsTotal     *prometheus.CounterVec
	StructuralPasses *prometheus.CounterVec

	// Case-check metrics
	CaseChecksTotal   *prometheus.CounterVec
	CaseCheckDuration prometheus.Histogram
	CheckResultsTotal *prometheus.CounterVec
	CoverageGapsTotal prometheus.Counter
	EscalationsTotal  prometheus.Counter
	QueueDepth        prometheus.Gauge

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = New(prometheus.DefaultRegisterer)

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		ChunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of transcript chunks sent to the model",
		}, []string{"result"}),
		ChunkLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_latency_seconds",
			Help:      "Model latency per chunk in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		RepairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Total number of corrections applied to model output",
		}, []string{"kind"}),
		StructuralPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structural_passes_total",
			Help:      "Chunks by number of structural cleanup passes needed",
		}, []string{"passes"}),

		// Case-check metrics
		CaseChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_checks_total",
			Help:      "Total number of case checks by outcome",
		}, []string{"outcome"}),
		CaseCheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_check_duration_seconds",
			Help:      "End-to-end case check duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		CheckResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_results_total",
			Help:      "Merged check results by status",
		}, []string{"status"}),
		CoverageGapsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coverage_gaps_total",
			Help:      "Checks no chunk returned",
		}),
		EscalationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Case checks escalated for detailed review",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Case-check jobs waiting for a worker",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// ChunkCompleted records the model call for one chunk.
func (m *Metrics) ChunkCompleted(_ int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ChunksTotal.WithLabelValues(result).Inc()
	m.ChunkLatency.Observe(elapsed.Seconds())
}

// ChunkValidated records the repairs applied to one chunk's output.
func (m *Metrics) ChunkValidated(_ int, repairs assessment.RepairLog) {
	m.StructuralPasses.WithLabelValues(strconv.Itoa(repairs.Passes)).Inc()
	for kind, n := range repairs.Counts() {
		m.RepairsTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// RecordCaseCheck records a finished case check. report is nil on failure.
func (m *Metrics) RecordCaseCheck(report *assessment.Report, err error, elapsed time.Duration) {
	m.CaseCheckDuration.Observe(elapsed.Seconds())
	if err != nil || report == nil {
		m.CaseChecksTotal.WithLabelValues("error").Inc()
		return
	}

	m.CaseChecksTotal.WithLabelValues(report.Triage.Outcome).Inc()
	for _, r := range report.Results {
		m.CheckResultsTotal.WithLabelValues(string(r.Status)).Inc()
	}
	m.CoverageGapsTotal.Add(float64(len(report.Gaps)))
	if report.Triage.NeedsEscalation(report.Overall) {
		m.EscalationsTotal.Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
}
