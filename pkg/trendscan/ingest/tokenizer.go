package ingest

import (
	"context"
	"strings"
	"unicode"
)

const (
	// DefaultMinTokenLength is the shortest token kept.
	DefaultMinTokenLength = 3
	// DefaultMinSentenceTokens is the fewest tokens a sentence needs to be
	// used as embedding context.
	DefaultMinSentenceTokens = 4
)

// Tokenizer extracts lowercase alphabetic tokens from normalized text
type Tokenizer struct {
	minLen    int
	stopwords map[string]struct{}
}

// NewTokenizer creates a tokenizer with the given stopword list.
// Embedding training uses an empty list; topic fitting filters stopwords.
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Tokenizer{minLen: DefaultMinTokenLength, stopwords: stops}
}

// WithMinLength sets the shortest token kept
func (t *Tokenizer) WithMinLength(n int) *Tokenizer {
	if n > 0 {
		t.minLen = n
	}
	return t
}

// Tokenize splits text into tokens. URLs are removed first, so link
// fragments never become tokens. A word is a maximal run of letters, digits
// and underscores; it becomes a token only if it consists solely of ASCII
// letters and is long enough ("abc123" and "café" yield nothing).
func (t *Tokenizer) Tokenize(text string) []string {
	text = StripURLs(text)

	var tokens []string
	var current strings.Builder
	alpha := true

	flush := func() {
		if current.Len() > 0 {
			if alpha && current.Len() >= t.minLen {
				word := current.String()
				if !t.isStopword(word) {
					tokens = append(tokens, word)
				}
			}
			current.Reset()
		}
		alpha = true
	}

	for _, r := range text {
		if !isWordRune(r) {
			flush()
			continue
		}
		lr := unicode.ToLower(r)
		if lr < 'a' || lr > 'z' {
			alpha = false
		}
		current.WriteRune(lr)
	}
	flush()

	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Sentences tokenizes every document in parallel and keeps, in input order,
// those with at least minTokens tokens.
func (t *Tokenizer) Sentences(ctx context.Context, docs []Document, minTokens, workers int) ([][]string, error) {
	if minTokens <= 0 {
		minTokens = DefaultMinSentenceTokens
	}
	all, err := ParallelMap(ctx, docs, workers, func(d Document) []string {
		return t.Tokenize(d.Text)
	})
	if err != nil {
		return nil, err
	}
	sentences := make([][]string, 0, len(all))
	for _, s := range all {
		if len(s) >= minTokens {
			sentences = append(sentences, s)
		}
	}
	return sentences, nil
}
