package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
)

// Store persists what a run may reuse or report later: trained embedding
// models and run summaries.
type Store interface {
	Close() error

	// Embedding model cache
	GetModel(ctx context.Context, key string) (*embedding.Model, bool, error)
	PutModel(ctx context.Context, key string, m *embedding.Model) error
	PurgeModels(ctx context.Context) (int, error)

	// Run history
	PutRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	RecentRuns(ctx context.Context, platform corpus.Platform, k int) ([]Run, error)
}

// Run is a stored pipeline run. Result holds the JSON-encoded output.
type Run struct {
	ID        string
	Platform  corpus.Platform
	Window    corpus.Window
	Mode      string
	CreatedAt time.Time
	Result    []byte
}

// ModelKey identifies a trained model by corpus slice, the fingerprint of
// the sentences it was trained on, and training parameters. Worker count is
// excluded; it does not change what is learned.
func ModelKey(platform corpus.Platform, window corpus.Window, fingerprint string, cfg embedding.Config) string {
	return fmt.Sprintf("%s|%s|%s|%s|dim=%d|win=%d|min=%d|ep=%d|neg=%d|lr=%g|seed=%d",
		platform,
		window.Start.UTC().Format(time.RFC3339),
		window.End.UTC().Format(time.RFC3339),
		fingerprint,
		cfg.Dim, cfg.Window, cfg.MinCount, cfg.Epochs, cfg.Negative, cfg.LearningRate, cfg.Seed)
}

// Fingerprint hashes training sentences in order. Anything that changes the
// sentences (source, sampling, normalization or tokenization) changes it.
func Fingerprint(sentences [][]string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(sentences))))
	for _, sentence := range sentences {
		h.Write([]byte{'\n'})
		for i, token := range sentence {
			if i > 0 {
				h.Write([]byte{' '})
			}
			h.Write([]byte(token))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
