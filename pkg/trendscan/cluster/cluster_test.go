package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

type fakeSpace map[string][]embedding.Neighbor

func (f fakeSpace) Contains(token string) bool {
	_, ok := f[token]
	return ok
}

func (f fakeSpace) MostSimilar(token string, k int) []embedding.Neighbor {
	n := f[token]
	if len(n) > k {
		n = n[:k]
	}
	return n
}

func (f fakeSpace) score(a, b string) float64 {
	for _, n := range f[a] {
		if n.Token == b {
			return n.Score
		}
	}
	return 0
}

func TestClustererExpand(t *testing.T) {
	space := fakeSpace{
		"football":    {{Token: "nfl", Score: 0.91}, {Token: "qb", Score: 0.74}, {Token: "game", Score: 0.6}, {Token: "lol", Score: 0.2}},
		"quarterback": {{Token: "qb", Score: 0.88}, {Token: "mahomes", Score: 0.81}},
		"basketball":  {{Token: "nba", Score: 0.83}, {Token: "game", Score: 0.65}},
	}
	seeds := SeedSet{
		{Label: "NFL", Seeds: []string{"football", "quarterback", "gridiron"}},
		{Label: "NBA", Seeds: []string{"basketball"}},
		{Label: "NHL", Seeds: []string{"hockey", "puck"}},
	}

	convey.Convey("Given a clusterer with the default threshold", t, func() {
		c := NewClusterer(0, 0, nil)
		clusters, err := c.Expand(context.Background(), space, seeds)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then zero arguments select the defaults", func() {
			convey.So(c.Neighbors, convey.ShouldEqual, DefaultNeighbors)
			convey.So(c.Threshold, convey.ShouldEqual, DefaultThreshold)
		})

		convey.Convey("Then every topic appears in seed order", func() {
			convey.So(len(clusters), convey.ShouldEqual, 3)
			convey.So(clusters[0].Label, convey.ShouldEqual, "NFL")
			convey.So(clusters[1].Label, convey.ShouldEqual, "NBA")
			convey.So(clusters[2].Label, convey.ShouldEqual, "NHL")
		})

		convey.Convey("Then terms are the union of accepted neighbors in first-accepted order", func() {
			convey.So(clusters[0].Terms, convey.ShouldResemble, []string{"nfl", "qb", "mahomes"})
			convey.So(clusters[0].Scores["qb"], convey.ShouldEqual, 0.88)
		})

		convey.Convey("Then a score equal to the threshold is rejected", func() {
			convey.So(clusters[0].Terms, convey.ShouldNotContain, "game")
			convey.So(clusters[1].Terms, convey.ShouldContain, "game")
		})

		convey.Convey("Then every term scores above the threshold against some seed", func() {
			for i, cl := range clusters {
				for _, term := range cl.Terms {
					best := 0.0
					for _, seed := range seeds[i].Seeds {
						if s := space.score(seed, term); s > best {
							best = s
						}
					}
					convey.So(best, convey.ShouldBeGreaterThan, c.Threshold)
				}
			}
		})

		convey.Convey("Then missing seeds are skipped and recorded", func() {
			convey.So(clusters[0].Missing, convey.ShouldResemble, []string{"gridiron"})
			convey.So(clusters[0].Present, convey.ShouldResemble, []string{"football", "quarterback"})
		})

		convey.Convey("Then a topic with no known seeds is present but empty", func() {
			convey.So(clusters[2].Empty(), convey.ShouldBeTrue)
			convey.So(clusters[2].Terms, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a small neighbor count", t, func() {
		c := NewClusterer(1, 0.5, nil)
		clusters, err := c.Expand(context.Background(), space, seeds[:1])
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then only the top neighbor of each seed is considered", func() {
			convey.So(clusters[0].Terms, convey.ShouldResemble, []string{"nfl", "qb"})
		})
	})

	convey.Convey("Given a threshold of zero set on the clusterer", t, func() {
		c := NewClusterer(0, 0, nil)
		c.Threshold = 0
		clusters, err := c.Expand(context.Background(), space, seeds[:1])
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every positive neighbor is accepted", func() {
			convey.So(clusters[0].Terms, convey.ShouldContain, "lol")
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewClusterer(0, 0, nil).Expand(ctx, space, seeds)
		convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
	})
}

func TestClustererWithTrainedModel(t *testing.T) {
	var sentences [][]string
	for i := 0; i < 300; i++ {
		if i%2 == 0 {
			sentences = append(sentences, []string{"puck", "goalie", "slapshot", "rink", "puck", "goalie"})
		} else {
			sentences = append(sentences, []string{"pitcher", "inning", "homer", "bullpen", "pitcher", "inning"})
		}
	}
	model, err := embedding.NewTrainer(embedding.Config{
		Dim: 50, Window: 5, MinCount: 1, Epochs: 5, Workers: 1, Seed: 3,
	}, nil).Train(context.Background(), sentences)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	seeds := SeedSet{
		{Label: "NHL", Seeds: []string{"puck"}},
		{Label: "MLB", Seeds: []string{"pitcher"}},
		{Label: "Soccer", Seeds: []string{"messi", "ronaldo"}},
	}
	clusters, err := NewClusterer(15, 0.3, nil).Expand(context.Background(), model, seeds)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if clusters[0].Empty() || clusters[1].Empty() {
		t.Errorf("Topics with present seeds should have terms: %+v", clusters)
	}
	if !clusters[2].Empty() {
		t.Errorf("Topic with absent seeds should be empty: %+v", clusters[2])
	}
	for _, cl := range clusters[:2] {
		for _, term := range cl.Terms {
			score, _ := model.Similarity(cl.Present[0], term)
			if score <= 0.3 {
				t.Errorf("%s: term %q scores %.3f, not above threshold", cl.Label, term, score)
			}
		}
	}
}

func TestSeedSetValidate(t *testing.T) {
	s := SeedSet{{Label: " NFL ", Seeds: []string{" Football "}}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if s[0].Label != "NFL" || s[0].Seeds[0] != "football" {
		t.Errorf("Expected normalized seeds, got %+v", s[0])
	}

	dup := SeedSet{{Label: "NFL"}, {Label: "NFL"}}
	if err := dup.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for duplicate label, got %v", err)
	}
	if err := (SeedSet{{Label: ""}}).Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty label, got %v", err)
	}
}

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	if len(seeds) != 6 {
		t.Fatalf("Expected 6 default topics, got %d", len(seeds))
	}
	if err := seeds.Validate(); err != nil {
		t.Errorf("Default seeds should validate: %v", err)
	}
	terms := seeds.Terms()
	if len(terms) != 28 {
		t.Errorf("Expected 28 distinct seed terms, got %d", len(terms))
	}
}
