package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cognicore/trendscan/pkg/trendscan/logging"
)

// jsonlRecord is one line of an exported corpus. Either text_fields or
// text may be set; text is treated as a single field.
type jsonlRecord struct {
	ID         string    `json:"id"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	TextFields []string  `json:"text_fields"`
	Text       *string   `json:"text"`
}

// JSONLSource loads posts from a JSONL export file
type JSONLSource struct {
	Path   string
	Logger *log.Logger
}

// Load reads the file and returns posts matching platform and window.
// Malformed lines are skipped with a warning.
func (s *JSONLSource) Load(ctx context.Context, platform Platform, window Window) ([]Post, error) {
	posts, err := LoadFromJSONL(s.Path, logging.OrDiscard(s.Logger))
	if err != nil {
		return nil, err
	}
	return NewMemorySource(posts).Load(ctx, platform, window)
}

// LoadFromJSONL loads every well-formed post in the file
func LoadFromJSONL(path string, logger *log.Logger) ([]Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	logger = logging.OrDiscard(logger)
	var posts []Post
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Warn("skipping malformed JSON", "path", path, "line", lineNo, "err", err)
			continue
		}
		platform, err := ParsePlatform(rec.Platform)
		if err != nil {
			logger.Warn("skipping record with unknown platform", "path", path, "line", lineNo, "platform", rec.Platform)
			continue
		}
		fields := rec.TextFields
		if len(fields) == 0 && rec.Text != nil {
			fields = []string{*rec.Text}
		}
		posts = append(posts, Post{
			ID:         rec.ID,
			Platform:   platform,
			CreatedAt:  rec.CreatedAt,
			TextFields: fields,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return posts, nil
}
