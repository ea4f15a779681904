package stoplist

import (
	"sort"
	"strings"
)

// Manager holds an explicit set of excluded terms. Terms are never inferred:
// every entry comes from configuration or a caller's Add.
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a term is excluded
type Reason string

const (
	ReasonManual       Reason = "manual"
	ReasonBot          Reason = "bot"          // platform bot handles (newsbeep, rawchili)
	ReasonAbbreviation Reason = "abbreviation" // generic league/outlet abbreviations
	ReasonSlang        Reason = "slang"        // forum slang (picrel, kwab)
	ReasonStopword     Reason = "stopword"     // function words for topic fitting
)

// NewManager creates a manager with the given terms marked as manual entries
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]Reason, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s, ReasonManual)
	}
	return m
}

// IsStop reports whether token is excluded. Matching is case-insensitive.
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	_, ok := m.stops[normalize(token)]
	return ok
}

// Reason returns the exclusion reason for token
func (m *Manager) Reason(token string) (Reason, bool) {
	if m == nil {
		return "", false
	}
	r, ok := m.stops[normalize(token)]
	return r, ok
}

// Add excludes a term. Empty terms are ignored.
func (m *Manager) Add(token string, reason Reason) {
	token = normalize(token)
	if token == "" {
		return
	}
	if reason == "" {
		reason = ReasonManual
	}
	m.stops[token] = reason
}

// AddAll excludes every term with the same reason
func (m *Manager) AddAll(tokens []string, reason Reason) {
	for _, t := range tokens {
		m.Add(t, reason)
	}
}

// Len returns the number of excluded terms
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.stops)
}

// All returns all excluded terms, sorted
func (m *Manager) All() []string {
	if m == nil {
		return nil
	}
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DefaultDenylist returns the noise terms observed on the sports boards and
// the bluesky feed: bot handles, bare league/outlet abbreviations and slang.
func DefaultDenylist() *Manager {
	m := NewManager(nil)
	m.AddAll([]string{"rawchili", "newsbeep", "beep"}, ReasonBot)
	m.AddAll([]string{"espn", "nfl", "nba", "mlb", "ufc", "ref"}, ReasonAbbreviation)
	m.AddAll([]string{"lol", "picrel", "shit", "kwab"}, ReasonSlang)
	return m
}

// DefaultStopwords returns the English function words and link residue
// excluded from topic-model vocabularies.
func DefaultStopwords() []string {
	return []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "her",
		"was", "one", "our", "out", "day", "get", "has", "him", "his", "how",
		"man", "new", "now", "old", "see", "two", "way", "who", "boy", "did",
		"its", "let", "put", "say", "she", "too", "use", "this", "that", "with",
		"have", "from", "they", "been", "what", "will", "your", "said", "each",
		"tell", "does", "very", "when", "much", "some", "than", "them", "time",
		"into", "just", "know", "take", "make", "only", "over", "such", "come",
		"also", "back", "even", "good", "more", "most", "like", "look", "would",
		"could", "should", "about", "after", "being", "were", "think", "really",
		"going", "still", "dont", "cant", "wont", "isnt", "thats", "there", "their",
		"doesnt", "didnt", "youre", "hes", "shes", "theyre", "weve", "theyve",
		"https", "http", "www", "com", "html", "utm", "source", "campaign", "medium",
		"any", "had", "then", "which", "why", "where", "here", "because", "these",
		"those", "want", "need", "people", "thing", "things", "yeah", "got",
	}
}
