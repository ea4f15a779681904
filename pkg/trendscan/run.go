package trendscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/entities"
	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/lda"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
	"github.com/cognicore/trendscan/pkg/trendscan/rank"
	"github.com/cognicore/trendscan/pkg/trendscan/store"
)

// Run executes one pipeline run. A window or corpus slice with nothing to
// analyze returns an error wrapping internalerr.ErrNoData; a cancelled run
// returns one wrapping internalerr.ErrPipelineAborted and no partial result.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	req.Mode = mode
	if _, err := corpus.ParsePlatform(string(req.Platform)); err != nil {
		return nil, err
	}
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}
	if req.TopN < 0 {
		return nil, fmt.Errorf("%w: top %d", internalerr.ErrInvalidInput, req.TopN)
	}
	if req.TopN == 0 {
		req.TopN = e.cfg.TopN
	}

	res := &Result{
		RunID:    e.newRunID(),
		Platform: req.Platform,
		Window:   req.Window,
		Mode:     mode,
	}
	logger := e.logger.With("run", res.RunID, "platform", req.Platform, "mode", mode)
	started := time.Now()

	err = e.run(ctx, logger, req, res)
	res.Elapsed = time.Since(started)
	e.metrics.RecordRun(string(mode), outcome(err))
	if err != nil {
		err = aborted(err)
		if errors.Is(err, internalerr.ErrNoData) {
			logger.Info("nothing to analyze", "window", req.Window, "err", err)
		} else {
			logger.Error("run failed", "err", err)
		}
		return nil, err
	}

	logger.Info("run finished", "posts", res.Posts, "docs", res.Documents, "sentences", res.Sentences,
		"elapsed", res.Elapsed.Round(time.Millisecond))
	e.persist(ctx, logger, res)
	return res, nil
}

func (e *Engine) run(ctx context.Context, logger *log.Logger, req Request, res *Result) error {
	if req.Window.Empty() {
		return fmt.Errorf("%w: empty window %s", internalerr.ErrNoData, req.Window)
	}

	stop := e.metrics.Time(metrics.StageLoad)
	posts, err := e.source.Load(ctx, req.Platform, req.Window)
	stop()
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	res.Posts = len(posts)
	if len(posts) == 0 {
		return fmt.Errorf("%w: no posts for %s in %s", internalerr.ErrNoData, req.Platform, req.Window)
	}
	if e.cfg.Source.Limit > 0 {
		posts = corpus.Sample(posts, e.cfg.Source.Limit)
	}

	stop = e.metrics.Time(metrics.StageNormalize)
	docs, err := e.normalizer.NormalizeAll(ctx, posts, e.cfg.Workers)
	stop()
	if err != nil {
		return err
	}
	res.Documents = len(docs)
	e.metrics.AddDocuments(metrics.StageNormalize, "kept", len(docs))
	e.metrics.AddDocuments(metrics.StageNormalize, "dropped", len(posts)-len(docs))
	if len(docs) == 0 {
		return fmt.Errorf("%w: all %d posts shorter than %d characters", internalerr.ErrNoData, len(posts),
			e.cfg.Normalize.MinDocLength)
	}
	logger.Debug("corpus normalized", "posts", len(posts), "docs", len(docs))

	var (
		tables entities.Tables
		model  *embedding.Model
		words  *lda.Matrix
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		words, err = e.countWords(gctx, logger, docs)
		return err
	})
	if req.Mode.wantsEntities() {
		g.Go(func() error {
			var err error
			tables, err = e.extractEntities(gctx, logger, docs)
			return err
		})
	}
	if req.Mode.wantsClusters() {
		g.Go(func() error {
			var err error
			model, res.Sentences, err = e.embed(gctx, logger, req, docs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	res.Words = rank.FromMatrix(words, req.TopN)
	res.Mentions = rank.FromMentions(e.comp.Seeds, rank.FromMatrix(words, 0), req.TopN)

	if tables != nil {
		stop = e.metrics.Time(metrics.StageRank)
		res.Athletes = rank.FromTable(rank.KindAthlete, tables[entities.Person], req.TopN)
		res.Teams = rank.FromTable(rank.KindTeam, tables[entities.Organization], req.TopN)
		res.Events = rank.FromTable(rank.KindEvent, tables[entities.Event], req.TopN)
		res.Locations = rank.FromTable(rank.KindLocation, tables[entities.Location], req.TopN)
		stop()
	}

	if model != nil {
		stop = e.metrics.Time(metrics.StageCluster)
		clusterer := cluster.NewClusterer(e.cfg.Cluster.Neighbors, e.cfg.Cluster.Threshold, logger)
		res.Clusters, err = clusterer.Expand(ctx, model, e.comp.Seeds)
		stop()
		if err != nil {
			return err
		}
		res.Topics = rank.FromClusters(res.Clusters, model, req.TopN)
	}

	if req.Mode.wantsTopics(e.cfg.Topics.InHybrid) {
		stop = e.metrics.Time(metrics.StageTopics)
		res.Prevalence, err = e.estimateTopics(ctx, logger, docs)
		stop()
		if err != nil {
			return err
		}
		if req.Mode == ModeTopics {
			res.Topics = rank.FromPrevalence(res.Prevalence, req.TopN)
		}
	}
	return nil
}

func (e *Engine) extractEntities(ctx context.Context, logger *log.Logger, docs []ingest.Document) (entities.Tables, error) {
	defer e.metrics.Time(metrics.StageEntities)()

	// Load up front so a closed or broken model fails the stage instead of
	// every document.
	if _, err := e.recognizer.Recognizer(); err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}
	ex := entities.NewExtractor(e.recognizer, e.comp.Denylist, e.cfg.ExtractorConfig(), logger)
	tables, stats, err := ex.Extract(ctx, docs)
	if err != nil {
		return nil, err
	}
	e.metrics.AddDocuments(metrics.StageEntities, "kept", stats.Documents-stats.Failed)
	e.metrics.AddDocuments(metrics.StageEntities, "failed", stats.Failed)
	logger.Info("entities extracted", "docs", stats.Documents, "failed", stats.Failed, "counted", stats.Counted)
	return tables, nil
}

// embed returns the embedding model for the run, from the cache when the
// same sentences were trained with the same parameters before.
func (e *Engine) embed(ctx context.Context, logger *log.Logger, req Request, docs []ingest.Document) (*embedding.Model, int, error) {
	stop := e.metrics.Time(metrics.StageTokenize)
	sentences, err := e.tokenizer.Sentences(ctx, docs, e.cfg.Embedding.MinSentenceTokens, e.cfg.Workers)
	stop()
	if err != nil {
		return nil, 0, err
	}
	e.metrics.AddDocuments(metrics.StageTokenize, "kept", len(sentences))
	e.metrics.AddDocuments(metrics.StageTokenize, "dropped", len(docs)-len(sentences))
	if len(sentences) == 0 {
		return nil, 0, fmt.Errorf("%w: no document has %d tokens", internalerr.ErrNoData,
			e.cfg.Embedding.MinSentenceTokens)
	}

	key := store.ModelKey(req.Platform, req.Window, store.Fingerprint(sentences), e.trainerCfg)
	if e.store != nil {
		cached, ok, err := e.store.GetModel(ctx, key)
		switch {
		case err != nil:
			logger.Warn("model cache lookup failed", "err", err)
		case ok:
			e.metrics.RecordCache(true)
			e.metrics.SetVocabulary(cached.Len())
			logger.Info("embedding model loaded from cache", "vocab", cached.Len())
			return cached, len(sentences), nil
		default:
			e.metrics.RecordCache(false)
		}
	}

	stop = e.metrics.Time(metrics.StageEmbedding)
	model, err := e.trainer.Train(ctx, sentences)
	stop()
	if err != nil {
		return nil, len(sentences), err
	}
	e.metrics.SetVocabulary(model.Len())

	if e.store != nil {
		if err := e.store.PutModel(ctx, key, model); err != nil {
			logger.Warn("caching embedding model failed", "err", err)
		}
	}
	return model, len(sentences), nil
}

// countWords builds the word-frequency matrix over stopword-filtered
// words. A corpus without any qualifying word gives a nil matrix.
func (e *Engine) countWords(ctx context.Context, logger *log.Logger, docs []ingest.Document) (*lda.Matrix, error) {
	defer e.metrics.Time(metrics.StageWords)()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	m, err := lda.NewVectorizer(e.comp.Stopwords, e.cfg.WordsVectorizerConfig()).Transform(ctx, texts)
	if errors.Is(err, internalerr.ErrNoData) {
		logger.Debug("no words to count", "docs", len(docs))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("words counted", "vocab", len(m.Vocab))
	return m, nil
}

func (e *Engine) estimateTopics(ctx context.Context, logger *log.Logger, docs []ingest.Document) ([]lda.TopicSummary, error) {
	vec := lda.NewVectorizer(e.comp.Stopwords, e.cfg.VectorizerConfig())
	est := lda.NewEstimator(vec, e.fitter, e.cfg.EstimatorConfig(), e.comp.Seeds, logger)
	return est.Estimate(ctx, docs)
}

// persist records a finished run. Failures are logged; the result stands.
func (e *Engine) persist(ctx context.Context, logger *log.Logger, res *Result) {
	if e.store == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		logger.Warn("encoding run failed", "err", err)
		return
	}
	r := store.Run{
		ID:        res.RunID,
		Platform:  res.Platform,
		Window:    res.Window,
		Mode:      string(res.Mode),
		CreatedAt: time.Now().UTC(),
		Result:    payload,
	}
	if err := e.store.PutRun(ctx, r); err != nil {
		logger.Warn("storing run failed", "err", err)
	}
}

// aborted marks context errors that escaped a stage unwrapped
func aborted(err error) error {
	if errors.Is(err, internalerr.ErrPipelineAborted) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", internalerr.ErrPipelineAborted, err)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, internalerr.ErrNoData):
		return "no_data"
	case errors.Is(err, internalerr.ErrPipelineAborted),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "aborted"
	default:
		return "error"
	}
}
