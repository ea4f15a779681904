package embedding

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Neighbor is a token and its cosine similarity to a query
type Neighbor struct {
	Token string
	Score float64
}

// Model is a trained embedding. It is read-only and safe for concurrent use.
type Model struct {
	dim    int
	tokens []string
	counts []int64
	index  map[string]int
	vecs   [][]float32 // raw vectors as trained
	unit   [][]float64 // L2-normalized copies for cosine queries
}

// NewModel assembles a model from parallel slices. Every vector must have
// the same non-zero length.
func NewModel(tokens []string, counts []int64, vectors [][]float32) (*Model, error) {
	if len(tokens) != len(counts) || len(tokens) != len(vectors) {
		return nil, fmt.Errorf("%w: %d tokens, %d counts, %d vectors", internalerr.ErrInvalidInput,
			len(tokens), len(counts), len(vectors))
	}
	m := &Model{
		tokens: append([]string(nil), tokens...),
		counts: append([]int64(nil), counts...),
		index:  make(map[string]int, len(tokens)),
		vecs:   make([][]float32, len(vectors)),
		unit:   make([][]float64, len(vectors)),
	}
	for i, tok := range tokens {
		if _, dup := m.index[tok]; dup {
			return nil, fmt.Errorf("%w: duplicate token %q", internalerr.ErrInvalidInput, tok)
		}
		m.index[tok] = i

		vec := vectors[i]
		if i == 0 {
			m.dim = len(vec)
		}
		if len(vec) == 0 || len(vec) != m.dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", internalerr.ErrInvalidInput,
				i, len(vec), m.dim)
		}
		m.vecs[i] = append([]float32(nil), vec...)
		m.unit[i] = normalize(vec)
	}
	return m, nil
}

func normalize(vec []float32) []float64 {
	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(vec))
	if norm == 0 {
		return out
	}
	for i, x := range vec {
		out[i] = float64(x) / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Dim returns the vector dimension
func (m *Model) Dim() int { return m.dim }

// Len returns the vocabulary size
func (m *Model) Len() int { return len(m.tokens) }

// Contains reports whether tok is in the vocabulary
func (m *Model) Contains(tok string) bool {
	_, ok := m.index[tok]
	return ok
}

// Count returns the training-corpus frequency of tok (0 when absent)
func (m *Model) Count(tok string) int64 {
	if i, ok := m.index[tok]; ok {
		return m.counts[i]
	}
	return 0
}

// Vector returns a copy of tok's vector
func (m *Model) Vector(tok string) ([]float32, bool) {
	i, ok := m.index[tok]
	if !ok {
		return nil, false
	}
	return append([]float32(nil), m.vecs[i]...), true
}

// Vocab returns the tokens in vocabulary order
func (m *Model) Vocab() []string {
	return append([]string(nil), m.tokens...)
}

// Counts returns token frequencies in vocabulary order
func (m *Model) Counts() []int64 {
	return append([]int64(nil), m.counts...)
}

// Similarity returns the cosine similarity of two tokens
func (m *Model) Similarity(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return dot(m.unit[i], m.unit[j]), true
}

// MostSimilar returns up to k tokens closest to tok by cosine similarity,
// highest first, ties in vocabulary order. Unknown tokens yield an empty
// slice.
func (m *Model) MostSimilar(tok string, k int) []Neighbor {
	i, ok := m.index[tok]
	if !ok || k <= 0 {
		return []Neighbor{}
	}
	out := make([]Neighbor, 0, len(m.tokens)-1)
	for j, other := range m.tokens {
		if j == i {
			continue
		}
		out = append(out, Neighbor{Token: other, Score: dot(m.unit[i], m.unit[j])})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
