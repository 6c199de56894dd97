package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

// PipelineMetrics exposes worker pool and pipeline outcome metrics. It is an
// outcome recorder, a dispatch observer and a classify observer.
type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	queueLag          prometheus.Histogram
	classifiedTotal   *prometheus.CounterVec
	fallbackTotal     *prometheus.CounterVec
	organizedCategory *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "scan",
			Subsystem:   "pipeline",
			Name:        "candidates_total",
			Help:        "Pipeline executions by terminal state and failed stage.",
			ConstLabels: constLabels,
		},
		[]string{"state", "failed_stage"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "scan",
			Subsystem:   "pipeline",
			Name:        "duration_seconds",
			Help:        "Pipeline execution duration in seconds by terminal state.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
			ConstLabels: constLabels,
		},
		[]string{"state"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "scan",
			Subsystem:   "pipeline",
			Name:        "in_flight",
			Help:        "Number of candidates currently in the pipeline.",
			ConstLabels: constLabels,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "scan",
			Subsystem:   "pipeline",
			Name:        "queue_lag_seconds",
			Help:        "Delay between detection and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	classifiedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "scan",
			Subsystem:   "classifier",
			Name:        "results_total",
			Help:        "Classifications by source (ai, keyword, default).",
			ConstLabels: constLabels,
		},
		[]string{"source"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "scan",
			Subsystem:   "classifier",
			Name:        "fallbacks_total",
			Help:        "Remote classifier failures that fell back to keyword rules.",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)
	organizedCategory := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "scan",
			Subsystem:   "organizer",
			Name:        "files_total",
			Help:        "Organized files by category.",
			ConstLabels: constLabels,
		},
		[]string{"category"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, classifiedTotal, fallbackTotal, organizedCategory)

	return &PipelineMetrics{
		registry:          registry,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		queueLag:          queueLag,
		classifiedTotal:   classifiedTotal,
		fallbackTotal:     fallbackTotal,
		organizedCategory: organizedCategory,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) Record(_ context.Context, record domain.OutcomeRecord) error {
	state := string(record.State())
	m.processTotal.WithLabelValues(state, string(record.FailedStage)).Inc()
	m.processDuration.WithLabelValues(state).Observe(record.Duration().Seconds())
	if record.Success && record.Classification != nil {
		m.organizedCategory.WithLabelValues(string(record.Classification.Category)).Inc()
	}
	return nil
}

func (m *PipelineMetrics) ObserveInFlight(delta int) {
	m.processInFlight.Add(float64(delta))
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *PipelineMetrics) ObserveClassification(source domain.ClassificationSource) {
	m.classifiedTotal.WithLabelValues(string(source)).Inc()
}

func (m *PipelineMetrics) ObserveFallback(reason string) {
	m.fallbackTotal.WithLabelValues(reason).Inc()
}
