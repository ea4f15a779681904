package lda

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Fitter fits k topics to a document-term matrix
type Fitter interface {
	Fit(ctx context.Context, m *Matrix, k int) (*Fit, error)
}

// Fit is a fitted topic model. Every row of TopicWord and DocTopic sums to 1.
type Fit struct {
	K         int
	Vocab     []string
	TopicWord [][]float64 // K × len(Vocab)
	DocTopic  [][]float64 // docs × K
}

// GibbsFitter defaults
const (
	DefaultIterations = 200
	DefaultBeta       = 0.01
)

// GibbsFitter fits LDA by collapsed Gibbs sampling
type GibbsFitter struct {
	Iterations int
	Alpha      float64 // document-topic prior; 0 means 1/K
	Beta       float64 // topic-word prior
	Seed       uint64
}

// NewGibbsFitter creates a fitter with default priors
func NewGibbsFitter(iterations int, seed uint64) *GibbsFitter {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &GibbsFitter{Iterations: iterations, Beta: DefaultBeta, Seed: seed}
}

// Fit runs the sampler. Context cancellation is checked between sweeps.
func (g *GibbsFitter) Fit(ctx context.Context, m *Matrix, k int) (*Fit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("lda: %w: topic count %d", internalerr.ErrInvalidInput, k)
	}
	if m == nil || len(m.Vocab) == 0 {
		return nil, fmt.Errorf("lda: %w: empty vocabulary", internalerr.ErrNoData)
	}
	alpha := g.Alpha
	if alpha <= 0 {
		alpha = 1 / float64(k)
	}
	beta := g.Beta
	if beta <= 0 {
		beta = DefaultBeta
	}
	iterations := g.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	rng := rand.New(rand.NewPCG(g.Seed, g.Seed+1))
	docs, vocab := m.Docs(), len(m.Vocab)

	// expand rows into token streams with topic assignments
	words := make([][]int, docs)
	z := make([][]int, docs)
	nDK := make([][]int, docs)
	nKW := make([][]int, k)
	nK := make([]int, k)
	for t := range nKW {
		nKW[t] = make([]int, vocab)
	}
	for d, row := range m.Rows {
		nDK[d] = make([]int, k)
		for _, tc := range row {
			for c := 0; c < tc.Count; c++ {
				topic := rng.IntN(k)
				words[d] = append(words[d], tc.Term)
				z[d] = append(z[d], topic)
				nDK[d][topic]++
				nKW[topic][tc.Term]++
				nK[topic]++
			}
		}
	}

	vBeta := float64(vocab) * beta
	p := make([]float64, k)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lda: %w: %w", internalerr.ErrPipelineAborted, err)
		}
		for d := range words {
			for i, w := range words[d] {
				old := z[d][i]
				nDK[d][old]--
				nKW[old][w]--
				nK[old]--

				var sum float64
				for t := 0; t < k; t++ {
					sum += (float64(nDK[d][t]) + alpha) * (float64(nKW[t][w]) + beta) / (float64(nK[t]) + vBeta)
					p[t] = sum
				}
				u := rng.Float64() * sum
				topic := 0
				for topic < k-1 && p[topic] < u {
					topic++
				}

				z[d][i] = topic
				nDK[d][topic]++
				nKW[topic][w]++
				nK[topic]++
			}
		}
	}

	fit := &Fit{
		K:         k,
		Vocab:     m.Vocab,
		TopicWord: make([][]float64, k),
		DocTopic:  make([][]float64, docs),
	}
	for t := 0; t < k; t++ {
		fit.TopicWord[t] = make([]float64, vocab)
		for w := 0; w < vocab; w++ {
			fit.TopicWord[t][w] = (float64(nKW[t][w]) + beta) / (float64(nK[t]) + vBeta)
		}
	}
	kAlpha := float64(k) * alpha
	for d := range words {
		fit.DocTopic[d] = make([]float64, k)
		n := float64(len(words[d]))
		for t := 0; t < k; t++ {
			// a document with no vocabulary terms gets alpha/(K*alpha) = 1/K
			fit.DocTopic[d][t] = (float64(nDK[d][t]) + alpha) / (n + kAlpha)
		}
	}
	return fit, nil
}
