package cluster

import (
	"fmt"
	"strings"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Topic is a labelled set of seed tokens
type Topic struct {
	Label string   `yaml:"label" json:"label"`
	Seeds []string `yaml:"seeds" json:"seeds"`
}

// SeedSet is the ordered list of topics to expand. Order is preserved in
// every output.
type SeedSet []Topic

// DefaultSeeds returns the six sports tracked on the boards
func DefaultSeeds() SeedSet {
	return SeedSet{
		{Label: "NFL", Seeds: []string{"football", "touchdown", "quarterback", "cowboys", "chiefs"}},
		{Label: "NBA", Seeds: []string{"basketball", "lakers", "lebron", "curry", "dunk"}},
		{Label: "MLB", Seeds: []string{"baseball", "dodgers", "yankees", "pitcher", "inning"}},
		{Label: "Soccer", Seeds: []string{"soccer", "arsenal", "messi", "ronaldo", "premier"}},
		{Label: "UFC/MMA", Seeds: []string{"fight", "fighter", "knockout", "dana", "octagon"}},
		{Label: "NHL", Seeds: []string{"hockey", "puck", "stanley"}},
	}
}

// Validate rejects empty or duplicate labels. Seeds are lowercased and
// trimmed in place; a topic may have no seeds.
func (s SeedSet) Validate() error {
	seen := make(map[string]bool, len(s))
	for i := range s {
		label := strings.TrimSpace(s[i].Label)
		if label == "" {
			return fmt.Errorf("%w: topic %d has no label", internalerr.ErrInvalidConfig, i)
		}
		if seen[label] {
			return fmt.Errorf("%w: duplicate topic %q", internalerr.ErrInvalidConfig, label)
		}
		seen[label] = true
		s[i].Label = label
		for j, seed := range s[i].Seeds {
			s[i].Seeds[j] = strings.ToLower(strings.TrimSpace(seed))
		}
	}
	return nil
}

// Labels returns topic labels in order
func (s SeedSet) Labels() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.Label
	}
	return out
}

// Terms returns every seed token of every topic, first occurrence only
func (s SeedSet) Terms() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range s {
		for _, seed := range t.Seeds {
			if !seen[seed] {
				seen[seed] = true
				out = append(out, seed)
			}
		}
	}
	return out
}
