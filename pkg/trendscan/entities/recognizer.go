package entities

import "context"

// Span is one recognized entity mention. Label is the recognizer's own
// label (PERSON, ORG, GPE, ...), mapped to a Category by the extractor.
type Span struct {
	Text  string
	Label string
	Start int // byte offsets into the recognized text
	End   int
}

// Recognizer finds entity spans in text. Implementations must be safe for
// concurrent use; the extractor calls Recognize from several goroutines.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, text string) ([]Span, error)

func (f RecognizerFunc) Recognize(ctx context.Context, text string) ([]Span, error) {
	return f(ctx, text)
}
