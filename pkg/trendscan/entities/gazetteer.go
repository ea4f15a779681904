package entities

import "strings"

// Gazetteer recognizes known entity names by greedy longest phrase match
type Gazetteer struct {
	dict   map[string]GazetteerEntry // lowercased phrase → entry
	maxLen int
}

// GazetteerEntry is a known entity and the phrases that refer to it
type GazetteerEntry struct {
	Name     string
	Label    string
	Variants []string
}

// NewGazetteer creates a gazetteer from entries. The name itself is always
// a matching phrase. Later entries win on conflicting phrases.
func NewGazetteer(entries []GazetteerEntry) *Gazetteer {
	g := &Gazetteer{dict: make(map[string]GazetteerEntry), maxLen: 1}
	for _, e := range entries {
		g.Add(e)
	}
	return g
}

// Add registers an entry and its variants
func (g *Gazetteer) Add(e GazetteerEntry) {
	for _, phrase := range append([]string{e.Name}, e.Variants...) {
		key := phraseKey(phrase)
		if key == "" {
			continue
		}
		g.dict[key] = e
		if l := len(strings.Fields(key)); l > g.maxLen {
			g.maxLen = l
		}
	}
}

// Len returns the number of known phrases
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.dict)
}

// Lookup returns the entry for a phrase
func (g *Gazetteer) Lookup(phrase string) (GazetteerEntry, bool) {
	if g == nil {
		return GazetteerEntry{}, false
	}
	e, ok := g.dict[phraseKey(phrase)]
	return e, ok
}

// match tries the longest phrase starting at words[i]; it returns the entry
// and the number of words consumed (0 when nothing matches).
func (g *Gazetteer) match(words []word, i int) (GazetteerEntry, int) {
	if g == nil || len(g.dict) == 0 {
		return GazetteerEntry{}, 0
	}
	maxPhrase := g.maxLen
	if remaining := len(words) - i; maxPhrase > remaining {
		maxPhrase = remaining
	}
	for n := maxPhrase; n >= 1; n-- {
		// phrases never span punctuation
		if n > 1 && crossesBreak(words[i:i+n]) {
			continue
		}
		parts := make([]string, n)
		for j := 0; j < n; j++ {
			parts[j] = words[i+j].lower
		}
		if entry, ok := g.dict[strings.Join(parts, " ")]; ok {
			return entry, n
		}
	}
	return GazetteerEntry{}, 0
}

func crossesBreak(ws []word) bool {
	for _, w := range ws[1:] {
		if w.breakBefore {
			return true
		}
	}
	return false
}

func phraseKey(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
