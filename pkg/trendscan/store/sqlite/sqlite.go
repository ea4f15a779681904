package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/store"
)

// createdLayout is fixed width so created_at sorts lexically
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// pragmas are applied to every pooled connection through the DSN
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", internalerr.ErrInvalidConfig)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS models (
	key TEXT PRIMARY KEY,
	dim INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_tokens (
	model_key TEXT NOT NULL,
	idx INTEGER NOT NULL,
	token TEXT NOT NULL,
	count INTEGER NOT NULL,
	vector BLOB NOT NULL,
	PRIMARY KEY(model_key, idx),
	FOREIGN KEY(model_key) REFERENCES models(key) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	window_start TEXT NOT NULL,
	window_end TEXT NOT NULL,
	mode TEXT NOT NULL,
	created_at TEXT NOT NULL,
	result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_platform ON runs(platform, created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// GetModel loads a cached model
func (s *sqliteStore) GetModel(ctx context.Context, key string) (*embedding.Model, bool, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dim FROM models WHERE key = ?`, key).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT token, count, vector
FROM model_tokens
WHERE model_key = ?
ORDER BY idx;
`, key)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var (
		tokens  []string
		counts  []int64
		vectors [][]float32
	)
	for rows.Next() {
		var tok string
		var count int64
		var blob []byte
		if err := rows.Scan(&tok, &count, &blob); err != nil {
			return nil, false, err
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return nil, false, fmt.Errorf("model %q token %q: %w", key, tok, err)
		}
		tokens = append(tokens, tok)
		counts = append(counts, count)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	m, err := embedding.NewModel(tokens, counts, vectors)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// PutModel replaces the model stored under key
func (s *sqliteStore) PutModel(ctx context.Context, key string, m *embedding.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM model_tokens WHERE model_key = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE key = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO models (key, dim, created_at) VALUES (?, ?, ?)`,
		key, m.Dim(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO model_tokens (model_key, idx, token, count, vector)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	counts := m.Counts()
	for i, tok := range m.Vocab() {
		vec, _ := m.Vector(tok)
		if _, err := stmt.ExecContext(ctx, key, i, tok, counts[i], encodeVector(vec)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PurgeModels drops every cached model and its vectors
func (s *sqliteStore) PurgeModels(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM model_tokens`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM models`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// PutRun inserts or replaces a run summary
func (s *sqliteStore) PutRun(ctx context.Context, r store.Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, platform, window_start, window_end, mode, created_at, result)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	platform=excluded.platform,
	window_start=excluded.window_start,
	window_end=excluded.window_end,
	mode=excluded.mode,
	created_at=excluded.created_at,
	result=excluded.result;
`, r.ID, string(r.Platform),
		r.Window.Start.UTC().Format(time.RFC3339),
		r.Window.End.UTC().Format(time.RFC3339),
		r.Mode,
		r.CreatedAt.UTC().Format(createdLayout),
		string(r.Result))
	return err
}

// GetRun loads a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, platform, window_start, window_end, mode, created_at, result
FROM runs
WHERE id = ?;
`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, internalerr.ErrNotFound
	}
	return r, err
}

// RecentRuns returns up to k runs, newest first. An empty platform
// matches every run.
func (s *sqliteStore) RecentRuns(ctx context.Context, platform corpus.Platform, k int) ([]store.Run, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, platform, window_start, window_end, mode, created_at, result
FROM runs
WHERE ? = '' OR platform = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`, string(platform), string(platform), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var r store.Run
	var platform, start, end, created, result string
	if err := sc.Scan(&r.ID, &platform, &start, &end, &r.Mode, &created, &result); err != nil {
		return store.Run{}, err
	}
	r.Platform = corpus.Platform(platform)
	r.Result = []byte(result)

	var err error
	if r.Window.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return store.Run{}, err
	}
	if r.Window.End, err = time.Parse(time.RFC3339, end); err != nil {
		return store.Run{}, err
	}
	if r.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
		return store.Run{}, err
	}
	return r, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("vector has %d bytes, want %d", len(buf), 4*dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
