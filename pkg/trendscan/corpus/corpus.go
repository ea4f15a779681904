package corpus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Platform identifies where a post was collected from
type Platform string

const (
	PlatformSports   Platform = "sp"   // sports board
	PlatformPolitics Platform = "pol"  // politics board
	PlatformBluesky  Platform = "bsky" // bluesky feed
)

// Platforms lists every supported platform
func Platforms() []Platform {
	return []Platform{PlatformSports, PlatformPolitics, PlatformBluesky}
}

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown platform %q", internalerr.ErrInvalidInput, s)
}

// IsBoard reports whether the platform is an imageboard (single HTML body field)
func (p Platform) IsBoard() bool {
	return p == PlatformSports || p == PlatformPolitics
}

// Post is a raw record as loaded from the source. TextFields are ordered and
// vary in count by platform; nothing downstream assumes a fixed count.
type Post struct {
	ID         string
	Platform   Platform
	CreatedAt  time.Time
	TextFields []string
}

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateLayout is the day-granularity layout accepted by ParseWindow
const DateLayout = "2006-01-02"

// ParseWindow parses two dates (YYYY-MM-DD or RFC3339) into a window
func ParseWindow(start, end string) (Window, error) {
	s, err := parseTime(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %v", internalerr.ErrInvalidInput, err)
	}
	e, err := parseTime(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %v", internalerr.ErrInvalidInput, err)
	}
	w := Window{Start: s, End: e}
	return w, w.Validate()
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Validate rejects inverted windows
func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: window end %s before start %s", internalerr.ErrInvalidInput,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// Empty reports whether the window cannot contain any post
func (w Window) Empty() bool {
	return !w.End.After(w.Start)
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// Source loads the raw posts of one platform for one window.
// Load is a blocking call made once per pipeline run.
type Source interface {
	Load(ctx context.Context, platform Platform, window Window) ([]Post, error)
}

// Sample returns the first n posts. n <= 0 means no cap.
func Sample(posts []Post, n int) []Post {
	if n <= 0 || len(posts) <= n {
		return posts
	}
	return posts[:n]
}
