package embedding

import "sort"

// Vocabulary maps tokens to dense indices. Tokens are ordered by descending
// frequency, ties by first appearance, so indices are stable for a given
// input order.
type Vocabulary struct {
	tokens []string
	counts []int64
	index  map[string]int
	total  int64
}

// BuildVocabulary counts every token and keeps those seen at least
// minCount times.
func BuildVocabulary(sentences [][]string, minCount int) *Vocabulary {
	counts := make(map[string]int64)
	var order []string
	for _, sentence := range sentences {
		for _, tok := range sentence {
			if _, ok := counts[tok]; !ok {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	kept := order[:0:0]
	for _, tok := range order {
		if counts[tok] >= int64(minCount) {
			kept = append(kept, tok)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return counts[kept[i]] > counts[kept[j]]
	})

	v := &Vocabulary{
		tokens: kept,
		counts: make([]int64, len(kept)),
		index:  make(map[string]int, len(kept)),
	}
	for i, tok := range kept {
		v.index[tok] = i
		v.counts[i] = counts[tok]
		v.total += counts[tok]
	}
	return v
}

// Len returns the number of tokens
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Index returns the index of tok
func (v *Vocabulary) Index(tok string) (int, bool) {
	i, ok := v.index[tok]
	return i, ok
}

// Token returns the token at index i
func (v *Vocabulary) Token(i int) string { return v.tokens[i] }

// Count returns the corpus frequency of the token at index i
func (v *Vocabulary) Count(i int) int64 { return v.counts[i] }

// Total returns the number of in-vocabulary token occurrences
func (v *Vocabulary) Total() int64 { return v.total }

// Encode maps a sentence to indices, dropping out-of-vocabulary tokens
func (v *Vocabulary) Encode(sentence []string) []int {
	out := make([]int, 0, len(sentence))
	for _, tok := range sentence {
		if i, ok := v.index[tok]; ok {
			out = append(out, i)
		}
	}
	return out
}
