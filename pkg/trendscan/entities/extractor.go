package entities

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
	"github.com/cognicore/trendscan/pkg/trendscan/stoplist"
)

// Defaults for the extractor knobs
const (
	DefaultSampleSize    = 10000
	DefaultTruncateChars = 1500
	DefaultMinSpanLength = 3
)

// Config controls sampling and filtering
type Config struct {
	SampleSize    int // documents analyzed; <= 0 means DefaultSampleSize
	TruncateChars int // prefix length (runes) given to the recognizer
	MinSpanLength int // shorter surfaces are dropped
	Workers       int // <= 0 means one per CPU
}

func (c Config) withDefaults() Config {
	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}
	if c.TruncateChars <= 0 {
		c.TruncateChars = DefaultTruncateChars
	}
	if c.MinSpanLength <= 0 {
		c.MinSpanLength = DefaultMinSpanLength
	}
	return c
}

// Stats summarizes one extraction
type Stats struct {
	Documents int   // documents sent to the recognizer
	Failed    int   // documents skipped after a recognizer error
	Spans     int64 // spans returned by the recognizer
	Counted   int64 // spans that survived filtering
}

// Extractor runs entity recognition over a bounded document sample
type Extractor struct {
	rec    Recognizer
	deny   *stoplist.Manager
	cfg    Config
	logger *log.Logger
}

// NewExtractor creates an extractor. deny may be nil.
func NewExtractor(rec Recognizer, deny *stoplist.Manager, cfg Config, logger *log.Logger) *Extractor {
	return &Extractor{
		rec:    rec,
		deny:   deny,
		cfg:    cfg.withDefaults(),
		logger: logging.OrDiscard(logger),
	}
}

// Extract counts the entities of the first SampleSize documents. Documents
// are split into contiguous shards processed in parallel; shard tables are
// merged in shard order, so results match a sequential pass. A document
// whose recognition fails is logged and skipped; only cancellation aborts.
func (e *Extractor) Extract(ctx context.Context, docs []ingest.Document) (Tables, Stats, error) {
	if len(docs) > e.cfg.SampleSize {
		docs = docs[:e.cfg.SampleSize]
	}
	stats := Stats{Documents: len(docs)}
	if len(docs) == 0 {
		return NewTables(), stats, ctx.Err()
	}

	workers := ingest.Workers(e.cfg.Workers)
	if workers > len(docs) {
		workers = len(docs)
	}
	shardSize := (len(docs) + workers - 1) / workers
	shards := make([]Tables, 0, workers)
	var failed, spans, counted atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(docs); start += shardSize {
		part := docs[start:min(start+shardSize, len(docs))]
		tables := NewTables()
		shards = append(shards, tables)
		g.Go(func() error {
			for _, doc := range part {
				if err := gctx.Err(); err != nil {
					return err
				}
				found, err := e.rec.Recognize(gctx, truncate(doc.Text, e.cfg.TruncateChars))
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					failed.Add(1)
					e.logger.Warn("skipping document after recognizer error", "doc", doc.SourceID, "err", err)
					continue
				}
				spans.Add(int64(len(found)))
				for _, sp := range found {
					cat, surface, ok := e.accept(sp)
					if !ok {
						continue
					}
					tables[cat].Add(surface, 1)
					counted.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	merged := NewTables()
	for _, t := range shards {
		merged.Merge(t)
	}
	stats.Failed = int(failed.Load())
	stats.Spans = spans.Load()
	stats.Counted = counted.Load()
	e.logger.Debug("entity extraction done", "docs", stats.Documents, "failed", stats.Failed,
		"spans", stats.Spans, "counted", stats.Counted)
	return merged, stats, nil
}

// accept normalizes a span and applies the noise filters
func (e *Extractor) accept(sp Span) (Category, string, bool) {
	cat, ok := CategoryForLabel(sp.Label)
	if !ok {
		return "", "", false
	}
	surface := strings.Join(strings.Fields(strings.ToLower(sp.Text)), " ")
	if utf8.RuneCountInString(surface) < e.cfg.MinSpanLength {
		return "", "", false
	}
	if strings.HasPrefix(surface, "http") || e.deny.IsStop(surface) {
		return "", "", false
	}
	return cat, surface, true
}

// truncate returns the first n runes of s
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
