package cluster

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
)

// Defaults for neighbor expansion
const (
	DefaultNeighbors = 15
	DefaultThreshold = 0.6
)

// Space is the part of an embedding model the clusterer needs
type Space interface {
	Contains(token string) bool
	MostSimilar(token string, k int) []embedding.Neighbor
}

// Cluster is the expansion of one topic. Terms are in the order they were
// first accepted; Scores holds the best seed similarity of each term.
type Cluster struct {
	Label   string             `json:"label"`
	Terms   []string           `json:"terms"`
	Scores  map[string]float64 `json:"scores,omitempty"`
	Present []string           `json:"present_seeds"`
	Missing []string           `json:"missing_seeds,omitempty"`
}

// Empty reports whether no term was accepted
func (c Cluster) Empty() bool { return len(c.Terms) == 0 }

// Clusterer expands seed topics into related-term clusters
type Clusterer struct {
	Neighbors int     // k nearest neighbors fetched per seed
	Threshold float64 // neighbors must score strictly above this
	logger    *log.Logger
}

// NewClusterer creates a clusterer. Zero or negative arguments select
// DefaultNeighbors and DefaultThreshold; a threshold of 0 therefore means
// "use the default", not "accept every neighbor". Set the Threshold field
// after construction to accept any positive similarity.
func NewClusterer(neighbors int, threshold float64, logger *log.Logger) *Clusterer {
	if neighbors <= 0 {
		neighbors = DefaultNeighbors
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Clusterer{Neighbors: neighbors, Threshold: threshold, logger: logging.OrDiscard(logger)}
}

// Expand returns one cluster per topic, in seed-set order. Seeds missing
// from the space are skipped; a topic whose seeds are all missing still
// appears with no terms. A term may belong to several clusters.
func (c *Clusterer) Expand(ctx context.Context, space Space, seeds SeedSet) ([]Cluster, error) {
	out := make([]Cluster, 0, len(seeds))
	for _, topic := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cl := Cluster{Label: topic.Label, Terms: []string{}, Scores: make(map[string]float64)}
		for _, seed := range topic.Seeds {
			if !space.Contains(seed) {
				cl.Missing = append(cl.Missing, seed)
				continue
			}
			cl.Present = append(cl.Present, seed)
			for _, n := range space.MostSimilar(seed, c.Neighbors) {
				if n.Score <= c.Threshold {
					continue
				}
				best, seen := cl.Scores[n.Token]
				if !seen {
					cl.Terms = append(cl.Terms, n.Token)
				}
				if !seen || n.Score > best {
					cl.Scores[n.Token] = n.Score
				}
			}
		}
		c.logger.Debug("topic expanded", "topic", cl.Label, "terms", len(cl.Terms),
			"present", len(cl.Present), "missing", len(cl.Missing))
		out = append(out, cl)
	}
	return out, nil
}
