package corpus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// Querier is the subset of pgx used by PostgresSource (satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx).
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads posts from the crawler database. Bluesky posts live in
// posts_bsky, board posts in posts_4chan keyed by board_name; both keep the
// raw payload in a JSONB data column.
type PostgresSource struct {
	db Querier

	// Limit caps the number of rows fetched. Zero means no cap.
	Limit int
}

// NewPostgresSource wraps an open pool or connection
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// OpenPostgres connects a pgx pool to dsn and verifies it with a ping
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty database URL", internalerr.ErrInvalidConfig)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return pool, nil
}

const bskyQuery = `
SELECT
	COALESCE(data->>'uri', ''),
	created_at,
	COALESCE(data->'record'->>'text', ''),
	COALESCE(data->'embed'->'external'->>'title', ''),
	COALESCE(data->'embed'->'external'->>'description', '')
FROM posts_bsky
WHERE created_at >= $1
  AND created_at < $2
ORDER BY created_at`

const boardQuery = `
SELECT
	COALESCE(data->>'no', ''),
	created_at,
	data->>'com'
FROM posts_4chan
WHERE board_name = $3
  AND created_at >= $1
  AND created_at < $2
  AND data->>'com' IS NOT NULL
ORDER BY created_at`

// buildQuery returns the SQL and arguments for a platform/window
func buildQuery(platform Platform, window Window, limit int) (string, []any, error) {
	var (
		query string
		args  = []any{window.Start, window.End}
	)
	switch {
	case platform == PlatformBluesky:
		query = bskyQuery
	case platform.IsBoard():
		query = boardQuery
		args = append(args, string(platform))
	default:
		return "", nil, fmt.Errorf("%w: unknown platform %q", internalerr.ErrInvalidInput, platform)
	}
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	return query, args, nil
}

// Load fetches every post of platform inside window
func (s *PostgresSource) Load(ctx context.Context, platform Platform, window Window) ([]Post, error) {
	query, args, err := buildQuery(platform, window, s.Limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s posts: %w", platform, err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			post      Post
		)
		if platform == PlatformBluesky {
			var text, title, desc string
			if err := rows.Scan(&id, &createdAt, &text, &title, &desc); err != nil {
				return nil, fmt.Errorf("scan %s post: %w", platform, err)
			}
			post.TextFields = []string{text, title, desc}
		} else {
			var body string
			if err := rows.Scan(&id, &createdAt, &body); err != nil {
				return nil, fmt.Errorf("scan %s post: %w", platform, err)
			}
			post.TextFields = []string{body}
		}
		post.ID = id
		post.Platform = platform
		post.CreatedAt = createdAt
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s posts: %w", platform, err)
	}
	return posts, nil
}
