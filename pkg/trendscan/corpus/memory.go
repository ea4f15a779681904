package corpus

import (
	"context"
	"sort"
)

// MemorySource serves posts held in memory, filtered by platform and window.
type MemorySource struct {
	posts []Post
}

// NewMemorySource copies posts into a source ordered by creation time.
// Posts with equal timestamps keep their given order.
func NewMemorySource(posts []Post) *MemorySource {
	cp := make([]Post, len(posts))
	copy(cp, posts)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].CreatedAt.Before(cp[j].CreatedAt)
	})
	return &MemorySource{posts: cp}
}

// Load returns matching posts
func (m *MemorySource) Load(ctx context.Context, platform Platform, window Window) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Post
	for _, p := range m.posts {
		if p.Platform != platform || !window.Contains(p.CreatedAt) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
