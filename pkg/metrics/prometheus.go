package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheOps    *prometheus.CounterVec
	waitSeconds *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cacheOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartmarks_cache_operations_total",
				Help: "Annotation cache operations by cache and result",
			},
			[]string{"cache", "op"},
		),
		waitSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartmarks_cache_wait_seconds",
				Help:    "Time spent in waiting reads",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"cache", "found"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartmarks_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartmarks_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCacheHit(cache string)      { r.cacheOps.WithLabelValues(cache, "hit").Inc() }
func (r *Recorder) RecordCacheMiss(cache string)     { r.cacheOps.WithLabelValues(cache, "miss").Inc() }
func (r *Recorder) RecordCacheEviction(cache string) { r.cacheOps.WithLabelValues(cache, "evict").Inc() }
func (r *Recorder) RecordCacheWrite(cache string)    { r.cacheOps.WithLabelValues(cache, "write").Inc() }

// RecordWait records how long a waiting read blocked.
func (r *Recorder) RecordWait(cache string, seconds float64, found bool) {
	label := "false"
	if found {
		label = "true"
	}
	r.waitSeconds.WithLabelValues(cache, label).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
