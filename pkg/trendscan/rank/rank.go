package rank

import (
	"sort"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/entities"
	"github.com/cognicore/trendscan/pkg/trendscan/lda"
)

// Kind is what a ranked label denotes
type Kind string

const (
	KindAthlete  Kind = "ATHLETE"
	KindTeam     Kind = "TEAM"
	KindEvent    Kind = "EVENT"
	KindLocation Kind = "LOCATION"
	KindTopic    Kind = "TOPIC"
	KindWord     Kind = "WORD"
)

// KindFor maps an entity category to its presentation kind
func KindFor(c entities.Category) Kind {
	switch c {
	case entities.Person:
		return KindAthlete
	case entities.Organization:
		return KindTeam
	case entities.Event:
		return KindEvent
	default:
		return KindLocation
	}
}

// Result is one ranked row
type Result struct {
	Kind  Kind    `json:"kind"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Ranker accumulates scores per label and sorts them on demand. Adding the
// same label twice sums its scores; first-seen order breaks ties.
type Ranker struct {
	kind   Kind
	scores map[string]float64
	order  []string
}

// NewRanker creates an empty ranker for one kind
func NewRanker(kind Kind) *Ranker {
	return &Ranker{kind: kind, scores: make(map[string]float64)}
}

// Add accumulates score for label
func (r *Ranker) Add(label string, score float64) {
	if _, ok := r.scores[label]; !ok {
		r.order = append(r.order, label)
	}
	r.scores[label] += score
}

// Len returns the number of distinct labels
func (r *Ranker) Len() int { return len(r.order) }

// Top returns the n best results, highest score first. Sorting happens over
// everything accumulated; truncation is the last step. n <= 0 returns all.
func (r *Ranker) Top(n int) []Result {
	out := make([]Result, len(r.order))
	for i, label := range r.order {
		out[i] = Result{Kind: r.kind, Label: label, Score: r.scores[label]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FromTable ranks the surfaces of an entity table by count
func FromTable(kind Kind, table *entities.Table, n int) []Result {
	r := NewRanker(kind)
	if table != nil {
		for _, e := range table.Entries() {
			r.Add(e.Surface, float64(e.Count))
		}
	}
	return r.Top(n)
}

// TermCounter reports corpus frequencies, e.g. an embedding model
type TermCounter interface {
	Count(token string) int64
}

// FromClusters ranks topics by the total corpus frequency of their terms.
// Empty clusters are kept with a zero score.
func FromClusters(clusters []cluster.Cluster, counter TermCounter, n int) []Result {
	r := NewRanker(KindTopic)
	for _, cl := range clusters {
		var total int64
		for _, term := range cl.Terms {
			total += counter.Count(term)
		}
		r.Add(cl.Label, float64(total))
	}
	return r.Top(n)
}

// FromPrevalence ranks fitted topics by prevalence. Topics sharing a label
// are merged.
func FromPrevalence(topics []lda.TopicSummary, n int) []Result {
	r := NewRanker(KindTopic)
	for _, t := range topics {
		r.Add(t.Label, t.Prevalence)
	}
	return r.Top(n)
}

// FromMatrix ranks vocabulary words by their total count in the matrix
func FromMatrix(m *lda.Matrix, n int) []Result {
	r := NewRanker(KindWord)
	if m != nil {
		for i, total := range m.TermTotals() {
			r.Add(m.Vocab[i], float64(total))
		}
	}
	return r.Top(n)
}

// FromMentions scores each seed topic by the counts of ranked words that
// are among its seeds. Every topic is kept, in seed order on ties.
func FromMentions(seeds cluster.SeedSet, words []Result, n int) []Result {
	counts := make(map[string]float64, len(words))
	for _, w := range words {
		counts[w.Label] += w.Score
	}
	r := NewRanker(KindTopic)
	for _, topic := range seeds {
		total := 0.0
		for _, seed := range topic.Seeds {
			total += counts[seed]
		}
		r.Add(topic.Label, total)
	}
	return r.Top(n)
}
