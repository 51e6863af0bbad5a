package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics shared across components. Domain
// components register their own metrics through the registry.
type Metrics struct {
	// Extraction metrics
	AnnotationsExtracted *prometheus.CounterVec
	CandidatesScanned    *prometheus.CounterVec
	CandidatesRejected   *prometheus.CounterVec
	ExtractionDuration   *prometheus.HistogramVec

	// Model lifecycle metrics
	ModelStatus    *prometheus.GaugeVec
	ModelDownloads *prometheus.CounterVec

	// Reply metrics
	RepliesGenerated *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Event bus metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a Metrics instance with all platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AnnotationsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "extraction",
				Name:      "annotations_total",
				Help:      "Total number of annotations emitted by entity type",
			},
			[]string{"type"},
		),

		CandidatesScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "extraction",
				Name:      "candidates_total",
				Help:      "Total number of candidate spans produced by the scanner",
			},
			[]string{"type"},
		),

		CandidatesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "extraction",
				Name:      "candidates_rejected_total",
				Help:      "Total number of candidate spans rejected during validation",
			},
			[]string{"type", "reason"},
		),

		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "textann",
				Subsystem: "extraction",
				Name:      "duration_seconds",
				Help:      "Extraction pipeline duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		ModelStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "textann",
				Subsystem: "model",
				Name:      "status",
				Help:      "Model lifecycle status (0=not_downloaded, 1=downloading, 2=available, 3=deleted)",
			},
			[]string{"language"},
		),

		ModelDownloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "model",
				Name:      "downloads_total",
				Help:      "Total number of model download attempts by outcome",
			},
			[]string{"language", "status"},
		),

		RepliesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "reply",
				Name:      "suggestions_total",
				Help:      "Total number of reply suggestion requests by result status",
			},
			[]string{"status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and class",
			},
			[]string{"component", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "textann",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textann",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordAnnotation increments the emitted annotation counter.
func (c *Metrics) RecordAnnotation(entityType string) {
	c.AnnotationsExtracted.WithLabelValues(entityType).Inc()
}

// RecordCandidate increments the scanned candidate counter.
func (c *Metrics) RecordCandidate(entityType string) {
	c.CandidatesScanned.WithLabelValues(entityType).Inc()
}

// RecordRejection increments the rejected candidate counter.
func (c *Metrics) RecordRejection(entityType, reason string) {
	c.CandidatesRejected.WithLabelValues(entityType, reason).Inc()
}

// RecordExtractionDuration records an extraction pipeline timing.
func (c *Metrics) RecordExtractionDuration(operation string, d time.Duration) {
	c.ExtractionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordModelStatus updates the lifecycle status gauge for a language model.
func (c *Metrics) RecordModelStatus(language string, status int) {
	c.ModelStatus.WithLabelValues(language).Set(float64(status))
}

// RecordModelDownload increments the download counter for an outcome.
func (c *Metrics) RecordModelDownload(language, status string) {
	c.ModelDownloads.WithLabelValues(language, status).Inc()
}

// RecordReply increments the reply suggestion counter for a result status.
func (c *Metrics) RecordReply(status string) {
	c.RepliesGenerated.WithLabelValues(status).Inc()
}

// RecordError increments the error counter.
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordNATSStatus updates the NATS connection gauge.
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter.
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
