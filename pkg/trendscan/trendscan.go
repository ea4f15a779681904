// Package trendscan discovers the dominant entities and topics of a social
// media corpus slice. An Engine loads the posts of one platform for one time
// window, normalizes them and runs the analysis stages selected by a Mode.
package trendscan

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/config"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/entities"
	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/lda"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
	"github.com/cognicore/trendscan/pkg/trendscan/rank"
	"github.com/cognicore/trendscan/pkg/trendscan/store"
)

// Mode selects which analysis stages a run performs
type Mode string

const (
	// ModeEntities counts named entities only.
	ModeEntities Mode = "entities"
	// ModeClusters trains embeddings and expands the seed topics.
	ModeClusters Mode = "clusters"
	// ModeTopics fits the probabilistic topic model.
	ModeTopics Mode = "topics"
	// ModeHybrid combines entities and clusters, plus topics when enabled.
	ModeHybrid Mode = "hybrid"
)

// Modes lists every supported mode
func Modes() []Mode {
	return []Mode{ModeEntities, ModeClusters, ModeTopics, ModeHybrid}
}

// ParseMode validates a mode name. An empty name selects ModeHybrid.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeHybrid, nil
	}
	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mode %q", internalerr.ErrInvalidInput, s)
}

func (m Mode) wantsEntities() bool { return m == ModeEntities || m == ModeHybrid }
func (m Mode) wantsClusters() bool { return m == ModeClusters || m == ModeHybrid }

func (m Mode) wantsTopics(inHybrid bool) bool {
	return m == ModeTopics || (m == ModeHybrid && inHybrid)
}

// Request describes one run
type Request struct {
	Platform corpus.Platform
	Window   corpus.Window
	Mode     Mode
	// TopN truncates every ranked list. Zero uses the configured default.
	TopN int
}

// Result is the outcome of a run. Lists a mode did not compute are nil.
type Result struct {
	RunID     string          `json:"run_id"`
	Platform  corpus.Platform `json:"platform"`
	Window    corpus.Window   `json:"window"`
	Mode      Mode            `json:"mode"`
	Posts     int             `json:"posts"`
	Documents int             `json:"documents"`
	Sentences int             `json:"sentences"`

	Athletes  []rank.Result `json:"athletes,omitempty"`
	Teams     []rank.Result `json:"teams,omitempty"`
	Events    []rank.Result `json:"events,omitempty"`
	Locations []rank.Result `json:"locations,omitempty"`
	Topics    []rank.Result `json:"topics,omitempty"`

	// Words ranks the most frequent words; Mentions scores seed topics by
	// how often their seed words appear among them.
	Words    []rank.Result `json:"words,omitempty"`
	Mentions []rank.Result `json:"mentions,omitempty"`

	Clusters   []cluster.Cluster  `json:"clusters,omitempty"`
	Prevalence []lda.TopicSummary `json:"prevalence,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Engine is the pipeline facade
type Engine struct {
	source     corpus.Source
	cfg        *config.Config
	comp       *config.Components
	recognizer *entities.Model
	trainer    embedding.Trainer
	trainerCfg embedding.Config
	fitter     lda.Fitter
	store      store.Store
	metrics    *metrics.Pipeline
	logger     *log.Logger

	normalizer *ingest.Normalizer
	tokenizer  *ingest.Tokenizer

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine. Only Source is required; every other
// dependency is built from Config when left nil.
type Options struct {
	Source     corpus.Source
	Config     *config.Config
	Components *config.Components
	Recognizer *entities.Model
	Trainer    embedding.Trainer
	Fitter     lda.Fitter
	Store      store.Store
	Metrics    *metrics.Pipeline
	Logger     *log.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: no corpus source", internalerr.ErrInvalidConfig)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrDiscard(opts.Logger)

	comp := opts.Components
	if comp == nil {
		loaded, err := cfg.Loader().Load()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
		}
		comp = loaded
	}

	rec := opts.Recognizer
	if rec == nil {
		gaz := comp.Gazetteer
		rec = entities.NewModel(func() (entities.Recognizer, error) {
			return entities.NewHeuristicRecognizer(gaz), nil
		})
	}

	trainerCfg := cfg.TrainerConfig()
	trainer := opts.Trainer
	if trainer == nil {
		trainer = embedding.NewTrainer(trainerCfg, logger)
	}
	if c, ok := trainer.(interface{ Config() embedding.Config }); ok {
		trainerCfg = c.Config()
	}

	fitter := opts.Fitter
	if fitter == nil {
		fitter = cfg.Fitter()
	}

	return &Engine{
		source:     opts.Source,
		cfg:        cfg,
		comp:       comp,
		recognizer: rec,
		trainer:    trainer,
		trainerCfg: trainerCfg,
		fitter:     fitter,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     logger,
		normalizer: ingest.NewNormalizer(cfg.Normalize.MinDocLength),
		tokenizer:  ingest.NewTokenizer(nil).WithMinLength(cfg.Embedding.MinTokenLength),
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close releases the recognizer model and the store
func (e *Engine) Close() error {
	err := e.recognizer.Close()
	if e.store != nil {
		if serr := e.store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// Config returns the engine configuration
func (e *Engine) Config() *config.Config { return e.cfg }

// Metrics returns the engine collectors; may be nil
func (e *Engine) Metrics() *metrics.Pipeline { return e.metrics }

// History returns the most recent stored runs for platform, newest first.
// An empty platform matches every platform.
func (e *Engine) History(ctx context.Context, platform corpus.Platform, k int) ([]store.Run, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: no run store configured", internalerr.ErrStoreUnavailable)
	}
	return e.store.RecentRuns(ctx, platform, k)
}

// StoredRun looks up one stored run by ID
func (e *Engine) StoredRun(ctx context.Context, id string) (store.Run, error) {
	if e.store == nil {
		return store.Run{}, fmt.Errorf("%w: no run store configured", internalerr.ErrStoreUnavailable)
	}
	return e.store.GetRun(ctx, id)
}

func (e *Engine) newRunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Now(), e.entropy).String()
}
