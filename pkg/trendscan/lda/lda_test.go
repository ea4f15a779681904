package lda

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/stoplist"
)

var (
	hockeyWords   = []string{"puck", "goalie", "rink", "slapshot", "powerplay"}
	baseballWords = []string{"pitcher", "inning", "bullpen", "homer", "shortstop"}
)

func sportsDocs(n int) []ingest.Document {
	docs := make([]ingest.Document, n)
	for i := range docs {
		group := hockeyWords
		if i%2 == 1 {
			group = baseballWords
		}
		var b strings.Builder
		b.WriteString("the ")
		for j := 0; j < 8; j++ {
			b.WriteString(group[(i+j)%len(group)])
			b.WriteString(" ")
		}
		docs[i] = ingest.Document{SourceID: fmt.Sprint(i), Text: b.String()}
	}
	return docs
}

func TestVectorizerBounds(t *testing.T) {
	texts := []string{
		"lakers lakers celtics the",
		"lakers celtics knicks",
		"lakers knicks",
		"lakers warriors and the bench",
	}
	v := NewVectorizer(stoplist.DefaultStopwords(), VectorizerConfig{MinDF: 2, MaxDFRatio: 0.9, Workers: 1})
	m, err := v.Transform(context.Background(), texts)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	// lakers is in every document (above 90%); warriors and bench are in one
	if strings.Join(m.Vocab, ",") != "celtics,knicks" {
		t.Errorf("Unexpected vocabulary %v", m.Vocab)
	}
	if m.Docs() != 4 {
		t.Fatalf("Expected 4 rows, got %d", m.Docs())
	}
	if m.Tokens(0) != 1 || m.Tokens(3) != 0 {
		t.Errorf("Unexpected row totals: %d, %d", m.Tokens(0), m.Tokens(3))
	}
}

func TestVectorizerMaxFeatures(t *testing.T) {
	texts := []string{"alpha alpha beta gamma", "alpha beta gamma", "alpha beta", "delta"}
	v := NewVectorizer(nil, VectorizerConfig{MinDF: 1, MaxDFRatio: 1, MaxFeatures: 2, Workers: 1})
	m, err := v.Transform(context.Background(), texts)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if strings.Join(m.Vocab, ",") != "alpha,beta" {
		t.Errorf("Expected the two most frequent terms, got %v", m.Vocab)
	}
}

func TestVectorizerEmptyVocabulary(t *testing.T) {
	v := NewVectorizer(nil, VectorizerConfig{})
	_, err := v.Transform(context.Background(), []string{"only once", "https://example.com"})
	if !errors.Is(err, internalerr.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestEstimatePrevalenceSumsToOne(t *testing.T) {
	docs := sportsDocs(80)
	// documents without any vocabulary term still count towards prevalence
	docs = append(docs, ingest.Document{SourceID: "empty", Text: "nothing relevant in here at all"})

	est := NewEstimator(
		NewVectorizer(stoplist.DefaultStopwords(), VectorizerConfig{Workers: 2}),
		NewGibbsFitter(50, 9),
		Config{},
		cluster.DefaultSeeds(),
		nil,
	)
	topics, err := est.Estimate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if len(topics) != DefaultTopics {
		t.Fatalf("Expected %d topics, got %d", DefaultTopics, len(topics))
	}

	var sum float64
	for i, topic := range topics {
		sum += topic.Prevalence
		if topic.Prevalence < 0 || topic.Prevalence > 1 {
			t.Errorf("Prevalence out of range: %v", topic.Prevalence)
		}
		if i > 0 && topic.Prevalence > topics[i-1].Prevalence {
			t.Errorf("Topics not sorted by prevalence at %d", i)
		}
		if len(topic.Words) == 0 || len(topic.Words) > DefaultTopWords {
			t.Errorf("Unexpected word count %d", len(topic.Words))
		}
		if topic.Label == "" {
			t.Errorf("Topic %d has no label", topic.Index)
		}
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("Prevalences sum to %v, want 1", sum)
	}
}

func TestEstimateSeparatesTopics(t *testing.T) {
	fitter := NewGibbsFitter(200, 5)
	fitter.Alpha = 0.1
	seeds := cluster.SeedSet{
		{Label: "NHL", Seeds: []string{"puck", "goalie", "rink"}},
		{Label: "MLB", Seeds: []string{"pitcher", "inning", "bullpen"}},
	}
	est := NewEstimator(NewVectorizer(nil, VectorizerConfig{}), fitter, Config{Topics: 2, TopWords: 3}, seeds, nil)

	topics, err := est.Estimate(context.Background(), sportsDocs(60))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	labels := map[string]bool{}
	for _, topic := range topics {
		labels[topic.Label] = true
	}
	if !labels["NHL"] || !labels["MLB"] {
		t.Errorf("Expected one hockey and one baseball topic, got %+v", topics)
	}
}

func TestEstimateSampleCap(t *testing.T) {
	var seenDocs int
	fitter := fitterFunc(func(ctx context.Context, m *Matrix, k int) (*Fit, error) {
		seenDocs = m.Docs()
		return NewGibbsFitter(5, 1).Fit(ctx, m, k)
	})
	est := NewEstimator(NewVectorizer(nil, VectorizerConfig{MinDF: 1}), fitter, Config{SampleSize: 10, Topics: 2}, nil, nil)
	if _, err := est.Estimate(context.Background(), sportsDocs(40)); err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if seenDocs != 10 {
		t.Errorf("Expected 10 sampled documents, got %d", seenDocs)
	}
}

func TestEstimateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fitter := fitterFunc(func(_ context.Context, m *Matrix, k int) (*Fit, error) {
		cancel()
		return NewGibbsFitter(10, 1).Fit(ctx, m, k)
	})
	est := NewEstimator(NewVectorizer(nil, VectorizerConfig{MinDF: 1}), fitter, Config{Topics: 2}, nil, nil)
	_, err := est.Estimate(ctx, sportsDocs(20))
	if !errors.Is(err, internalerr.ErrPipelineAborted) {
		t.Errorf("Expected ErrPipelineAborted, got %v", err)
	}
}

type fitterFunc func(ctx context.Context, m *Matrix, k int) (*Fit, error)

func (f fitterFunc) Fit(ctx context.Context, m *Matrix, k int) (*Fit, error) { return f(ctx, m, k) }

func TestSummarizeAndLabel(t *testing.T) {
	fit := &Fit{
		K:     3,
		Vocab: []string{"dunk", "fight", "knockout", "lakers", "weather", "snow"},
		TopicWord: [][]float64{
			{0.05, 0.4, 0.4, 0.1, 0.05, 0},
			{0.3, 0, 0, 0.5, 0.1, 0.1},
			{0, 0, 0, 0, 0.5, 0.5},
		},
		DocTopic: [][]float64{
			{0.2, 0.7, 0.1},
			{0.6, 0.2, 0.2},
		},
	}
	summaries := Summarize(fit, 2)
	LabelTopics(summaries, cluster.DefaultSeeds())

	if got := strings.Join(summaries[0].Words, ","); got != "fight,knockout" {
		t.Errorf("Expected ties in vocabulary order, got %s", got)
	}
	if summaries[0].Label != "UFC/MMA" || summaries[1].Label != "NBA" || summaries[2].Label != "Topic 3" {
		t.Errorf("Unexpected labels: %q %q %q", summaries[0].Label, summaries[1].Label, summaries[2].Label)
	}
	if math.Abs(summaries[0].Prevalence-0.4) > 1e-9 || math.Abs(summaries[1].Prevalence-0.45) > 1e-9 {
		t.Errorf("Unexpected prevalence %v %v", summaries[0].Prevalence, summaries[1].Prevalence)
	}
}

func TestGibbsFitterRowsNormalized(t *testing.T) {
	m := &Matrix{
		Vocab: []string{"a", "b", "c"},
		Rows:  [][]TermCount{{{Term: 0, Count: 3}}, {}, {{Term: 1, Count: 1}, {Term: 2, Count: 2}}},
	}
	fit, err := NewGibbsFitter(20, 4).Fit(context.Background(), m, 3)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for d, row := range fit.DocTopic {
		var s float64
		for _, w := range row {
			s += w
		}
		if math.Abs(s-1) > 1e-9 {
			t.Errorf("doc %d weights sum to %v", d, s)
		}
	}
	for _, w := range fit.DocTopic[1] {
		if math.Abs(w-1.0/3) > 1e-9 {
			t.Errorf("Empty document should be uniform, got %v", fit.DocTopic[1])
		}
	}
	if _, err := NewGibbsFitter(1, 1).Fit(context.Background(), m, 0); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for k=0, got %v", err)
	}
}

func TestVectorizerTermTotalsAndMinLength(t *testing.T) {
	v := NewVectorizer([]string{"the"}, VectorizerConfig{MinDF: 1, MaxDFRatio: 1, MinTokenLength: 4})
	m, err := v.Transform(context.Background(), []string{
		"the puck and the goalie",
		"puck puck rink",
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !slices.Equal(m.Vocab, []string{"goalie", "puck", "rink"}) {
		t.Fatalf("Unexpected vocabulary %v", m.Vocab)
	}
	if got := m.TermTotals(); !slices.Equal(got, []int{1, 3, 1}) {
		t.Errorf("Unexpected totals %v", got)
	}
}
