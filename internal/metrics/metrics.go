// Package metrics exposes Prometheus counters and histograms for sanitize
// runs. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redactyl/labscrub/internal/sanitize"
)

const namespace = "labscrub"

// Collector owns a registry and the labscrub metrics registered in it.
//
// Metrics:
//   - labscrub_documents_total: documents processed by source and status
//   - labscrub_redactions_total: values replaced by rule
//   - labscrub_lines_total: lines read
//   - labscrub_sanitize_duration_seconds: per-document duration by source
//   - labscrub_uploads_rejected_total: uploads refused by validation, by reason
//   - labscrub_outputs_pruned_total: stored outputs removed by retention
type Collector struct {
	registry *prometheus.Registry

	documents  *prometheus.CounterVec
	redactions *prometheus.CounterVec
	lines      prometheus.Counter
	duration   *prometheus.HistogramVec
	rejected   *prometheus.CounterVec
	pruned     prometheus.Counter
}

// NewCollector registers the metrics in registry, or in a fresh registry
// when registry is nil. Go runtime and process collectors are added too.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	c := &Collector{
		registry: registry,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by the sanitizer",
		}, []string{"source", "status"}),
		redactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redactions_total",
			Help:      "Values replaced with the redaction token",
		}, []string{"rule"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Lines read by the sanitizer",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sanitize_duration_seconds",
			Help:      "Time to sanitize and store one document",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8), // 0.5ms to ~8s
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Uploads refused before sanitizing",
		}, []string{"reason"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_pruned_total",
			Help:      "Stored outputs removed by retention",
		}),
	}
	registry.MustRegister(c.documents, c.redactions, c.lines, c.duration, c.rejected, c.pruned)
	return c
}

// RecordSanitize records one document run.
func (c *Collector) RecordSanitize(source string, st sanitize.Stats, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.documents.WithLabelValues(source, status).Inc()
	c.lines.Add(float64(st.Lines))
	// rule names come from a fixed table, so label cardinality is bounded
	for rule, n := range st.Counts {
		c.redactions.WithLabelValues(rule).Add(float64(n))
	}
	if st.Duration > 0 {
		c.duration.WithLabelValues(source).Observe(st.Duration.Seconds())
	}
}

// RecordRejected records an upload refused by validation.
func (c *Collector) RecordRejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}

// RecordPruned records outputs removed by retention.
func (c *Collector) RecordPruned(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.pruned.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
