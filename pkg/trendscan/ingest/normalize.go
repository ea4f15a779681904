package ingest

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
)

// DefaultMinDocLength is the minimum normalized text length (in runes)
// for a document to reach the analysis stages.
const DefaultMinDocLength = 20

var urlPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.\-]*://\S+`)

// Document is the flattened, markup-free text of one post
type Document struct {
	SourceID string
	Text     string
}

// Normalizer turns raw posts into plain-text documents
type Normalizer struct {
	minLength int
}

// NewNormalizer creates a normalizer dropping documents shorter than minLength
// runes. A non-positive minLength keeps every non-empty document.
func NewNormalizer(minLength int) *Normalizer {
	if minLength < 1 {
		minLength = 1
	}
	return &Normalizer{minLength: minLength}
}

// Normalize flattens a post into one document. It never fails: missing
// fields and unparsable markup degrade to empty text.
func (n *Normalizer) Normalize(p corpus.Post) (doc Document) {
	doc.SourceID = p.ID
	defer func() {
		if recover() != nil {
			doc.Text = ""
		}
	}()

	parts := make([]string, 0, len(p.TextFields))
	for _, field := range p.TextFields {
		if text := NormalizeText(field); text != "" {
			parts = append(parts, text)
		}
	}
	doc.Text = strings.Join(parts, " ")
	return doc
}

// Keep reports whether a document carries enough text for analysis
func (n *Normalizer) Keep(doc Document) bool {
	return utf8.RuneCountInString(doc.Text) >= n.minLength
}

// NormalizeAll normalizes posts in parallel, preserving input order and
// dropping documents below the minimum length. Only cancellation fails it.
func (n *Normalizer) NormalizeAll(ctx context.Context, posts []corpus.Post, workers int) ([]Document, error) {
	docs, err := ParallelMap(ctx, posts, workers, n.Normalize)
	if err != nil {
		return nil, err
	}
	kept := docs[:0]
	for _, d := range docs {
		if n.Keep(d) {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

// NormalizeText strips markup and links from one field and collapses whitespace
func NormalizeText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = StripHTML(s)
	s = StripURLs(s)
	return strings.Join(strings.Fields(s), " ")
}

// StripURLs removes scheme://... substrings
func StripURLs(s string) string {
	return urlPattern.ReplaceAllString(s, " ")
}

// StripHTML returns the visible text of an HTML fragment. Block-level tags
// and line breaks become spaces; script and style bodies are dropped.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var buf strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
				continue
			}
			if breaksText(a) {
				buf.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
				continue
			}
			if breaksText(a) {
				buf.WriteByte(' ')
			}
		}
	}
}

func breaksText(a atom.Atom) bool {
	switch a {
	case atom.Br, atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.Tr, atom.Td, atom.Th, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Pre, atom.Hr:
		return true
	}
	return false
}
