package entities

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidText is returned for text that is not valid UTF-8
var ErrInvalidText = errors.New("entities: invalid UTF-8 text")

// HeuristicRecognizer recognizes entities without a statistical model:
// known names come from a gazetteer, unknown ones from capitalized spans
// classified by surface cues (event keywords, organization and venue
// suffixes, acronyms). Single unknown capitalized words are too ambiguous
// and are left to the gazetteer.
type HeuristicRecognizer struct {
	gaz *Gazetteer
}

// NewHeuristicRecognizer creates a recognizer backed by gaz (may be nil)
func NewHeuristicRecognizer(gaz *Gazetteer) *HeuristicRecognizer {
	return &HeuristicRecognizer{gaz: gaz}
}

type word struct {
	text          string
	lower         string
	start, end    int
	breakBefore   bool // punctuation between this word and the previous one
	sentenceStart bool
}

func (w word) capitalized() bool {
	r, _ := utf8.DecodeRuneInString(w.text)
	return unicode.IsUpper(r)
}

func (w word) numeric() bool {
	for _, r := range w.text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w.text != ""
}

func (w word) acronym() bool {
	letters := 0
	for _, r := range w.text {
		switch {
		case unicode.IsUpper(r):
			letters++
		case r == '&' || unicode.IsDigit(r):
		default:
			return false
		}
	}
	return letters >= 2 && utf8.RuneCountInString(w.text) <= 6
}

func (w word) nameLike() bool {
	if !w.capitalized() || w.acronym() {
		return false
	}
	for _, r := range w.text {
		if !unicode.IsLetter(r) && r != '\'' && r != '’' && r != '-' {
			return false
		}
	}
	return true
}

// Recognize returns entity spans in text order
func (h *HeuristicRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	words := scanWords(text)
	var spans []Span
	var run []word
	flush := func() {
		if span, ok := classify(text, run); ok {
			spans = append(spans, span)
		}
		run = run[:0]
	}

	for i := 0; i < len(words); {
		// single lowercase words ("bills", "heat") are too ambiguous to trust
		if entry, n := h.gaz.match(words, i); n > 1 || (n == 1 && words[i].capitalized()) {
			flush()
			spans = append(spans, Span{
				Text:  entry.Name,
				Label: entry.Label,
				Start: words[i].start,
				End:   words[i+n-1].end,
			})
			i += n
			continue
		}

		w := words[i]
		if len(run) > 0 && w.breakBefore {
			flush()
		}
		switch {
		case w.capitalized():
			run = append(run, w)
		case w.numeric() && numberable(run):
			run = append(run, w)
			flush()
		case connectors[w.lower] && len(run) > 0:
			run = append(run, w)
		default:
			flush()
		}
		i++
	}
	flush()

	return spans, nil
}

// scanWords splits text into words, remembering punctuation boundaries
func scanWords(text string) []word {
	var words []word
	start := -1
	pendingBreak, pendingSentence := false, true

	emit := func(s, e int) {
		raw := text[s:e]
		trimmed := strings.TrimLeft(raw, "-'’")
		s += len(raw) - len(trimmed)
		for _, suffix := range []string{"'s", "’s", "'", "’", "-"} {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == "" {
			return
		}
		words = append(words, word{
			text:          trimmed,
			lower:         strings.ToLower(trimmed),
			start:         s,
			end:           s + len(trimmed),
			breakBefore:   pendingBreak,
			sentenceStart: pendingSentence,
		})
		pendingBreak, pendingSentence = false, false
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' || r == '-' || r == '&' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			emit(start, i)
			start = -1
		}
		if !unicode.IsSpace(r) {
			pendingBreak = true
			if r == '.' || r == '!' || r == '?' {
				pendingSentence = true
			}
		}
	}
	if start >= 0 {
		emit(start, len(text))
	}
	return words
}

// numberable reports whether a number may extend the run ("UFC 300",
// "Super Bowl 59").
func numberable(run []word) bool {
	if len(run) == 0 {
		return false
	}
	last := run[len(run)-1]
	return last.acronym() || eventKeywords[last.lower]
}

func classify(text string, run []word) (Span, bool) {
	// trim connectors and sentence-filler capitals from both ends
	for len(run) > 0 && (connectors[run[0].lower] || fillerCaps[run[0].lower]) {
		run = run[1:]
	}
	for len(run) > 0 && (connectors[run[len(run)-1].lower] || fillerCaps[run[len(run)-1].lower]) {
		run = run[:len(run)-1]
	}
	if len(run) == 0 {
		return Span{}, false
	}

	label := ""
	last := run[len(run)-1]
	switch {
	case last.numeric():
		label = "EVENT"
	case len(run) == 1:
		if last.acronym() {
			label = "ORG"
		}
	case hasEventKeyword(run):
		label = "EVENT"
	case facilitySuffixes[last.lower]:
		label = "FAC"
	case orgSuffixes[last.lower] || hasConnector(run):
		label = "ORG"
	case len(run) <= 4 && allNameLike(run):
		label = "PERSON"
	}
	if label == "" {
		return Span{}, false
	}
	start, end := run[0].start, last.end
	return Span{Text: text[start:end], Label: label, Start: start, End: end}, true
}

func hasEventKeyword(run []word) bool {
	for _, w := range run {
		if eventKeywords[w.lower] {
			return true
		}
	}
	return false
}

func hasConnector(run []word) bool {
	for _, w := range run {
		if connectors[w.lower] {
			return true
		}
	}
	return false
}

func allNameLike(run []word) bool {
	for _, w := range run {
		if !w.nameLike() {
			return false
		}
	}
	return true
}

var connectors = setOf("of", "the", "de", "del", "la", "van", "von", "da", "&")

var fillerCaps = setOf(
	"the", "a", "an", "this", "that", "these", "those", "i", "it", "he", "she", "we", "they",
	"you", "my", "our", "his", "her", "their", "if", "when", "what", "why", "how", "who", "where",
	"and", "but", "so", "or", "just", "also", "not", "no", "yes", "lol", "imagine", "is", "are",
	"was", "do", "does", "did", "can", "will", "in", "on", "at", "for", "with", "from", "to", "by",
	"after", "before", "today", "tonight", "yesterday", "breaking", "watch", "live", "new", "ok",
	"okay", "reminder", "anyway", "monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday", "january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december", "here", "there", "now", "then",
	"all", "every", "oh", "wow", "damn", "holy", "lmao", "kek", "based", "says", "said",
)

var eventKeywords = setOf(
	"cup", "series", "bowl", "open", "championship", "championships", "olympics", "olympic",
	"classic", "derby", "playoffs", "playoff", "finals", "final", "prix", "slam", "games",
	"tournament", "invitational", "draft", "showdown", "marathon", "wrestlemania",
)

var orgSuffixes = setOf(
	"fc", "cf", "sc", "united", "club", "inc", "corp", "league", "association", "federation",
	"university", "college", "athletic", "athletics", "network", "news", "media", "committee",
	"foundation", "group", "company", "press", "times", "post", "sports",
)

var facilitySuffixes = setOf(
	"stadium", "arena", "field", "park", "center", "centre", "garden", "dome", "coliseum", "speedway",
)

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
