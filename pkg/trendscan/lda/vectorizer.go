package lda

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Vectorizer defaults
const (
	DefaultMinDF       = 5
	DefaultMaxDFRatio  = 0.95
	DefaultMaxFeatures = 1000
)

// VectorizerConfig bounds the topic-model vocabulary
type VectorizerConfig struct {
	MinDF          int     // terms in fewer documents are dropped
	MaxDFRatio     float64 // terms in a larger share of documents are dropped
	MaxFeatures    int     // most frequent terms kept after document-frequency filtering
	MinTokenLength int     // overrides the tokenizer's minimum word length when set
	Workers        int
}

func (c VectorizerConfig) withDefaults() VectorizerConfig {
	if c.MinDF <= 0 {
		c.MinDF = DefaultMinDF
	}
	if c.MaxDFRatio <= 0 || c.MaxDFRatio > 1 {
		c.MaxDFRatio = DefaultMaxDFRatio
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = DefaultMaxFeatures
	}
	return c
}

// TermCount is one non-zero cell of a document row
type TermCount struct {
	Term  int
	Count int
}

// Matrix is a sparse document-term count matrix. Vocab is sorted
// alphabetically; Rows has one entry per input document, possibly empty.
type Matrix struct {
	Vocab []string
	Rows  [][]TermCount
}

// Docs returns the number of rows
func (m *Matrix) Docs() int { return len(m.Rows) }

// Tokens returns the total count of row i
func (m *Matrix) Tokens(i int) int {
	n := 0
	for _, tc := range m.Rows[i] {
		n += tc.Count
	}
	return n
}

// TermTotals returns the corpus count of every vocabulary term, aligned
// with Vocab
func (m *Matrix) TermTotals() []int {
	totals := make([]int, len(m.Vocab))
	for _, row := range m.Rows {
		for _, tc := range row {
			totals[tc.Term] += tc.Count
		}
	}
	return totals
}

// Vectorizer turns documents into a document-term matrix
type Vectorizer struct {
	tok *ingest.Tokenizer
	cfg VectorizerConfig
}

// NewVectorizer creates a vectorizer that drops stopwords
func NewVectorizer(stopwords []string, cfg VectorizerConfig) *Vectorizer {
	tok := ingest.NewTokenizer(stopwords)
	if cfg.MinTokenLength > 0 {
		tok = tok.WithMinLength(cfg.MinTokenLength)
	}
	return &Vectorizer{tok: tok, cfg: cfg.withDefaults()}
}

// Transform builds the matrix. An empty vocabulary after filtering yields
// internalerr.ErrNoData.
func (v *Vectorizer) Transform(ctx context.Context, texts []string) (*Matrix, error) {
	tokenized, err := ingest.ParallelMap(ctx, texts, v.cfg.Workers, v.tok.Tokenize)
	if err != nil {
		return nil, err
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, tokens := range tokenized {
		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	maxDF := int(v.cfg.MaxDFRatio * float64(len(texts)))
	var terms []string
	for tok, n := range df {
		if n >= v.cfg.MinDF && n <= maxDF {
			terms = append(terms, tok)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("lda: %w: no term within document-frequency bounds", internalerr.ErrNoData)
	}
	sort.Slice(terms, func(i, j int) bool {
		if tf[terms[i]] != tf[terms[j]] {
			return tf[terms[i]] > tf[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.cfg.MaxFeatures {
		terms = terms[:v.cfg.MaxFeatures]
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	m := &Matrix{Vocab: terms, Rows: make([][]TermCount, len(tokenized))}
	for d, tokens := range tokenized {
		counts := make(map[int]int)
		for _, tok := range tokens {
			if i, ok := index[tok]; ok {
				counts[i]++
			}
		}
		row := make([]TermCount, 0, len(counts))
		for term, n := range counts {
			row = append(row, TermCount{Term: term, Count: n})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].Term < row[b].Term })
		m.Rows[d] = row
	}
	return m, nil
}
