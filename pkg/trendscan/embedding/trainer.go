package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
)

// Trainer builds an embedding model from tokenized sentences
type Trainer interface {
	Train(ctx context.Context, sentences [][]string) (*Model, error)
}

// Config holds skip-gram training parameters. Zero values take defaults.
type Config struct {
	Dim           int     `json:"dim"`
	Window        int     `json:"window"`
	MinCount      int     `json:"min_count"`
	Epochs        int     `json:"epochs"`
	Negative      int     `json:"negative"`
	LearningRate  float64 `json:"learning_rate"`
	Workers       int     `json:"workers"`
	Seed          uint64  `json:"seed"`
	MaxModelBytes int64   `json:"max_model_bytes"`
}

// DefaultConfig returns the parameters used for the board and feed corpora
func DefaultConfig() Config {
	return Config{
		Dim:           100,
		Window:        5,
		MinCount:      10,
		Epochs:        5,
		Negative:      5,
		LearningRate:  0.025,
		Seed:          1,
		MaxModelBytes: 2 << 30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Dim <= 0 {
		c.Dim = d.Dim
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MinCount <= 0 {
		c.MinCount = d.MinCount
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.Negative <= 0 {
		c.Negative = d.Negative
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.MaxModelBytes <= 0 {
		c.MaxModelBytes = d.MaxModelBytes
	}
	return c
}

// ModelBytes estimates the memory held by input and output weights
func (c Config) ModelBytes(vocab int) int64 {
	return int64(vocab) * int64(c.Dim) * 2 * 4
}

// SGNSTrainer trains skip-gram vectors with negative sampling. Sentences
// are sharded across workers that update shared weights under striped
// row locks; with one worker training is fully reproducible for a seed.
type SGNSTrainer struct {
	cfg    Config
	logger *log.Logger
}

// NewTrainer creates a skip-gram trainer
func NewTrainer(cfg Config, logger *log.Logger) *SGNSTrainer {
	return &SGNSTrainer{cfg: cfg.withDefaults(), logger: logging.OrDiscard(logger)}
}

// Config returns the effective parameters
func (t *SGNSTrainer) Config() Config { return t.cfg }

const lockStripes = 256

type weights struct {
	dim   int
	in    []float32 // syn0, vocab × dim
	out   []float32 // syn1neg, vocab × dim
	inMu  [lockStripes]sync.Mutex
	outMu [lockStripes]sync.Mutex
}

func (w *weights) inRow(i int) []float32  { return w.in[i*w.dim : (i+1)*w.dim] }
func (w *weights) outRow(i int) []float32 { return w.out[i*w.dim : (i+1)*w.dim] }

// Train fits vectors for every token seen at least MinCount times. An empty
// vocabulary yields internalerr.ErrNoData; cancellation or an oversized
// model yields internalerr.ErrPipelineAborted and no model.
func (t *SGNSTrainer) Train(ctx context.Context, sentences [][]string) (*Model, error) {
	cfg := t.cfg
	vocab := BuildVocabulary(sentences, cfg.MinCount)
	if vocab.Len() == 0 {
		return nil, fmt.Errorf("embedding: %w: no token reaches min count %d", internalerr.ErrNoData, cfg.MinCount)
	}
	if need := cfg.ModelBytes(vocab.Len()); need > cfg.MaxModelBytes {
		return nil, fmt.Errorf("embedding: %w: model needs %d bytes, limit %d", internalerr.ErrPipelineAborted,
			need, cfg.MaxModelBytes)
	}

	encoded := make([][]int, 0, len(sentences))
	var words int64
	for _, s := range sentences {
		if ids := vocab.Encode(s); len(ids) >= 2 {
			encoded = append(encoded, ids)
			words += int64(len(ids))
		}
	}
	if len(encoded) == 0 {
		return nil, fmt.Errorf("embedding: %w: no sentence has two known tokens", internalerr.ErrNoData)
	}

	w := &weights{
		dim: cfg.Dim,
		in:  make([]float32, vocab.Len()*cfg.Dim),
		out: make([]float32, vocab.Len()*cfg.Dim),
	}
	seeded := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	for i := range w.in {
		w.in[i] = (seeded.Float32() - 0.5) / float32(cfg.Dim)
	}
	noise := noiseDistribution(vocab)

	workers := ingest.Workers(cfg.Workers)
	if workers > len(encoded) {
		workers = len(encoded)
	}
	totalWords := words * int64(cfg.Epochs)
	var processed atomic.Int64
	started := time.Now()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		g, gctx := errgroup.WithContext(ctx)
		shardSize := (len(encoded) + workers - 1) / workers
		for wi, start := 0, 0; start < len(encoded); wi, start = wi+1, start+shardSize {
			shard := encoded[start:min(start+shardSize, len(encoded))]
			rng := rand.New(rand.NewPCG(cfg.Seed+uint64(epoch)*7919, uint64(wi)+1))
			g.Go(func() error {
				return t.trainShard(gctx, w, shard, noise, rng, &processed, totalWords)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("embedding: %w: %w", internalerr.ErrPipelineAborted, err)
		}
		t.logger.Debug("embedding epoch done", "epoch", epoch+1, "epochs", cfg.Epochs,
			"words", processed.Load(), "elapsed", time.Since(started).Round(time.Millisecond))
	}

	tokens := make([]string, vocab.Len())
	counts := make([]int64, vocab.Len())
	vectors := make([][]float32, vocab.Len())
	for i := range tokens {
		tokens[i] = vocab.Token(i)
		counts[i] = vocab.Count(i)
		vectors[i] = w.inRow(i)
	}
	t.logger.Info("embedding trained", "vocab", vocab.Len(), "sentences", len(encoded),
		"dim", cfg.Dim, "elapsed", time.Since(started).Round(time.Millisecond))
	return NewModel(tokens, counts, vectors)
}

func (t *SGNSTrainer) trainShard(ctx context.Context, w *weights, shard [][]int, noise []float64,
	rng *rand.Rand, processed *atomic.Int64, totalWords int64) error {
	cfg := t.cfg
	in := make([]float32, w.dim)
	grad := make([]float32, w.dim)

	for _, sentence := range shard {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress := float64(processed.Load()) / float64(totalWords+1)
		alpha := float32(cfg.LearningRate * math.Max(1-progress, 1e-4))

		for pos, center := range sentence {
			// reduced window as in the reference word2vec sampler
			span := 1 + rng.IntN(cfg.Window)
			for c := max(0, pos-span); c < min(len(sentence), pos+span+1); c++ {
				if c == pos {
					continue
				}
				t.updatePair(w, sentence[c], center, noise, rng, alpha, in, grad)
			}
		}
		processed.Add(int64(len(sentence)))
	}
	return nil
}

// updatePair moves the input vector of ctxWord towards the output vector of
// target and away from Negative sampled noise tokens.
func (t *SGNSTrainer) updatePair(w *weights, ctxWord, target int, noise []float64, rng *rand.Rand,
	alpha float32, in, grad []float32) {
	mu := &w.inMu[ctxWord%lockStripes]
	mu.Lock()
	copy(in, w.inRow(ctxWord))
	mu.Unlock()
	clear(grad)

	for d := 0; d <= t.cfg.Negative; d++ {
		sample, label := target, float32(1)
		if d > 0 {
			sample = sort.SearchFloat64s(noise, rng.Float64())
			if sample >= len(noise) {
				sample = len(noise) - 1
			}
			if sample == target {
				continue
			}
			label = 0
		}

		omu := &w.outMu[sample%lockStripes]
		omu.Lock()
		out := w.outRow(sample)
		var f float32
		for i := range in {
			f += in[i] * out[i]
		}
		g := (label - sigmoid(f)) * alpha
		for i := range in {
			grad[i] += g * out[i]
			out[i] += g * in[i]
		}
		omu.Unlock()
	}

	mu.Lock()
	row := w.inRow(ctxWord)
	for i := range row {
		row[i] += grad[i]
	}
	mu.Unlock()
}

func sigmoid(x float32) float32 {
	switch {
	case x > 6:
		return 1
	case x < -6:
		return 0
	}
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// noiseDistribution returns the cumulative unigram^0.75 distribution
func noiseDistribution(v *Vocabulary) []float64 {
	cdf := make([]float64, v.Len())
	var sum float64
	for i := range cdf {
		sum += math.Pow(float64(v.Count(i)), 0.75)
		cdf[i] = sum
	}
	for i := range cdf {
		cdf[i] /= sum
	}
	return cdf
}
