package lda

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
)

// Estimator defaults
const (
	DefaultSampleSize = 50000
	DefaultTopics     = 6
	DefaultTopWords   = 10
)

// Config controls the prevalence estimate
type Config struct {
	SampleSize int
	Topics     int
	TopWords   int
}

func (c Config) withDefaults() Config {
	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}
	if c.Topics <= 0 {
		c.Topics = DefaultTopics
	}
	if c.TopWords <= 0 {
		c.TopWords = DefaultTopWords
	}
	return c
}

// TopicSummary describes one fitted topic. Index is the fitting order;
// summaries are presented by descending Prevalence.
type TopicSummary struct {
	Index      int       `json:"index"`
	Label      string    `json:"label"`
	Words      []string  `json:"words"`
	Weights    []float64 `json:"weights"`
	Prevalence float64   `json:"prevalence"`
}

// Estimator fits a topic model over a document sample and reports each
// topic's share of the corpus.
type Estimator struct {
	vec    *Vectorizer
	fitter Fitter
	cfg    Config
	seeds  cluster.SeedSet
	logger *log.Logger
}

// NewEstimator creates an estimator. seeds label topics by overlap and may
// be empty.
func NewEstimator(vec *Vectorizer, fitter Fitter, cfg Config, seeds cluster.SeedSet, logger *log.Logger) *Estimator {
	return &Estimator{
		vec:    vec,
		fitter: fitter,
		cfg:    cfg.withDefaults(),
		seeds:  seeds,
		logger: logging.OrDiscard(logger),
	}
}

// Estimate returns K topic summaries sorted by prevalence, highest first;
// prevalences sum to 1. Prevalence of a topic is the mean of its weight
// over every sampled document.
func (e *Estimator) Estimate(ctx context.Context, docs []ingest.Document) ([]TopicSummary, error) {
	if len(docs) > e.cfg.SampleSize {
		docs = docs[:e.cfg.SampleSize]
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	started := time.Now()
	m, err := e.vec.Transform(ctx, texts)
	if err != nil {
		return nil, err
	}
	fit, err := e.fitter.Fit(ctx, m, e.cfg.Topics)
	if err != nil {
		return nil, err
	}
	if len(fit.DocTopic) != m.Docs() || len(fit.TopicWord) != fit.K {
		return nil, fmt.Errorf("lda: fitter returned %d doc rows and %d topics for %d docs", len(fit.DocTopic),
			len(fit.TopicWord), m.Docs())
	}

	summaries := Summarize(fit, e.cfg.TopWords)
	LabelTopics(summaries, e.seeds)
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Prevalence > summaries[j].Prevalence
	})
	e.logger.Info("topic model fitted", "docs", m.Docs(), "vocab", len(m.Vocab), "topics", fit.K,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return summaries, nil
}

// Summarize computes top words and prevalence for every topic, in fitting
// order.
func Summarize(fit *Fit, topN int) []TopicSummary {
	prevalence := make([]float64, fit.K)
	for _, row := range fit.DocTopic {
		for t, w := range row {
			prevalence[t] += w
		}
	}
	if docs := len(fit.DocTopic); docs > 0 {
		for t := range prevalence {
			prevalence[t] /= float64(docs)
		}
	}

	out := make([]TopicSummary, fit.K)
	for t := 0; t < fit.K; t++ {
		idx := make([]int, len(fit.Vocab))
		for i := range idx {
			idx[i] = i
		}
		weights := fit.TopicWord[t]
		sort.SliceStable(idx, func(a, b int) bool { return weights[idx[a]] > weights[idx[b]] })
		if len(idx) > topN {
			idx = idx[:topN]
		}
		s := TopicSummary{Index: t, Prevalence: prevalence[t]}
		for _, i := range idx {
			s.Words = append(s.Words, fit.Vocab[i])
			s.Weights = append(s.Weights, weights[i])
		}
		out[t] = s
	}
	return out
}

// LabelTopics names each topic after the seed topic sharing the most terms
// with its top words (earlier seed topics win ties). Topics with no overlap
// are named "Topic N" after their fitting index.
func LabelTopics(summaries []TopicSummary, seeds cluster.SeedSet) {
	for i := range summaries {
		words := make(map[string]bool, len(summaries[i].Words))
		for _, w := range summaries[i].Words {
			words[w] = true
		}
		best, bestLabel := 0, ""
		for _, topic := range seeds {
			overlap := 0
			for _, seed := range topic.Seeds {
				if words[seed] {
					overlap++
				}
			}
			if overlap > best {
				best, bestLabel = overlap, topic.Label
			}
		}
		if bestLabel == "" {
			bestLabel = fmt.Sprintf("Topic %d", summaries[i].Index+1)
		}
		summaries[i].Label = bestLabel
	}
}
