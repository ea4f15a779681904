package ingest

import (
	"context"
	"reflect"
	"testing"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer(nil)
	tokens := tokenizer.Tokenize("LeBron James scores 30 points in LA")
	want := []string{"lebron", "james", "scores", "points"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerURLOnlyYieldsNothing(t *testing.T) {
	tokenizer := NewTokenizer(nil)
	if tokens := tokenizer.Tokenize("https://example.com/article"); len(tokens) != 0 {
		t.Errorf("URL produced tokens %v", tokens)
	}
	tokens := tokenizer.Tokenize("see http://www.espn.com/nba/story?id=1 tonight")
	if !reflect.DeepEqual(tokens, []string{"see", "tonight"}) {
		t.Errorf("URL fragments leaked: %v", tokens)
	}
}

func TestTokenizerWordBoundaries(t *testing.T) {
	tokenizer := NewTokenizer(nil)
	tokens := tokenizer.Tokenize("abc123 café under_score ok-yes don't")
	want := []string{"yes", "don"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerStopwords(t *testing.T) {
	tokenizer := NewTokenizer([]string{"The", "and"})
	tokens := tokenizer.Tokenize("The Chiefs and the Eagles")
	if !reflect.DeepEqual(tokens, []string{"chiefs", "eagles"}) {
		t.Errorf("stopwords not filtered: %v", tokens)
	}
}

func TestTokenizerMinLength(t *testing.T) {
	tokenizer := NewTokenizer(nil).WithMinLength(5)
	tokens := tokenizer.Tokenize("dunk dunks")
	if !reflect.DeepEqual(tokens, []string{"dunks"}) {
		t.Errorf("Tokenize = %v", tokens)
	}
}

func TestSentencesDropShort(t *testing.T) {
	tokenizer := NewTokenizer(nil)
	docs := []Document{
		{SourceID: "1", Text: "Lakers beat Celtics 110-100"},
		{SourceID: "2", Text: "LeBron James scores 30 points tonight"},
		{SourceID: "3", Text: "https://example.com/article"},
	}
	sentences, err := tokenizer.Sentences(context.Background(), docs, DefaultMinSentenceTokens, 2)
	if err != nil {
		t.Fatalf("Sentences: %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %v", sentences)
	}
	if sentences[0][0] != "lebron" {
		t.Errorf("unexpected sentence %v", sentences[0])
	}
}

func TestParallelMapPreservesOrder(t *testing.T) {
	in := make([]int, 1000)
	for i := range in {
		in[i] = i
	}
	out, err := ParallelMap(context.Background(), in, 7, func(v int) int { return v * 2 })
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != i*2 {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
}
