package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for document matching.
type Metrics struct {
	OCRLatency    prometheus.Histogram
	MatchOutcome  *prometheus.CounterVec
	UploadedBytes prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OCRLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medbridge_document_ocr_duration_seconds",
			Help:    "Duration of OCR engine calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		MatchOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_document_match_outcomes_total",
			Help: "Document name match outcomes",
		}, []string{"outcome"}), // outcome: "verified", "no_match", "ocr_unavailable", "invalid_input"
		UploadedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medbridge_document_upload_bytes",
			Help:    "Size of uploaded identity documents",
			Buckets: prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
	}
}

func (m *Metrics) ObserveOCRLatency(d time.Duration) {
	if m != nil {
		m.OCRLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.MatchOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveUpload(size int) {
	if m != nil {
		m.UploadedBytes.Observe(float64(size))
	}
}
