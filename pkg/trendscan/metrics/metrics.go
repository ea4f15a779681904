// Package metrics provides Prometheus collectors for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as label values
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageEntities  = "entities"
	StageTokenize  = "tokenize"
	StageEmbedding = "embedding"
	StageCluster   = "cluster"
	StageTopics    = "topics"
	StageWords     = "words"
	StageRank      = "rank"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(p *Pipeline) {
		if namespace != "" {
			p.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for stage durations.
func WithHistogramBuckets(buckets []float64) Option {
	return func(p *Pipeline) {
		if len(buckets) > 0 {
			p.buckets = buckets
		}
	}
}

// WithRegistry sets the registry collectors are registered with.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(p *Pipeline) {
		if registry != nil {
			p.registry = registry
		}
	}
}

// Pipeline holds the collectors of one engine. A nil *Pipeline is valid and
// records nothing.
type Pipeline struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	documents     *prometheus.CounterVec
	runs          *prometheus.CounterVec
	cache         *prometheus.CounterVec
	vocabSize     prometheus.Gauge
}

// New creates collectors on their own registry unless one is given.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		namespace: "trendscan",
		buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	f := promauto.With(p.registry)
	p.stageDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   p.buckets,
	}, []string{"stage"})
	p.documents = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Subsystem: "pipeline",
		Name:      "documents_total",
		Help:      "Documents seen per stage and outcome.",
	}, []string{"stage", "outcome"})
	p.runs = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Pipeline runs by mode and result.",
	}, []string{"mode", "result"})
	p.cache = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Subsystem: "embedding",
		Name:      "cache_lookups_total",
		Help:      "Embedding model cache lookups.",
	}, []string{"result"})
	p.vocabSize = f.NewGauge(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Subsystem: "embedding",
		Name:      "vocabulary_size",
		Help:      "Vocabulary size of the last trained or loaded model.",
	})
	return p
}

// Registry returns the registry for exposition
func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return prometheus.NewRegistry()
	}
	return p.registry
}

// ObserveStage records how long a stage took
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Time returns a func that observes the elapsed time of stage when called
func (p *Pipeline) Time(stage string) func() {
	start := time.Now()
	return func() { p.ObserveStage(stage, time.Since(start)) }
}

// AddDocuments counts documents for a stage outcome ("kept", "dropped",
// "failed")
func (p *Pipeline) AddDocuments(stage, outcome string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.documents.WithLabelValues(stage, outcome).Add(float64(n))
}

// RecordRun counts a finished run
func (p *Pipeline) RecordRun(mode, result string) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(mode, result).Inc()
}

// RecordCache counts a model cache lookup
func (p *Pipeline) RecordCache(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// SetVocabulary records the current model's vocabulary size
func (p *Pipeline) SetVocabulary(n int) {
	if p == nil {
		return
	}
	p.vocabSize.Set(float64(n))
}
