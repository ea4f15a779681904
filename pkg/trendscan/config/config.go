// Package config defines trendscan configuration, its layered loading
// (defaults, YAML file, TRENDSCAN_ environment) and the term files that
// seed the pipeline components.
package config

import (
	"fmt"
	"time"

	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/entities"
	"github.com/cognicore/trendscan/pkg/trendscan/ingest"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/lda"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
)

// Config contains process configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// Workers bounds per-stage parallelism; 0 means one per CPU.
	Workers int `koanf:"workers" yaml:"workers"`

	// TopN truncates every ranked list; 0 keeps everything.
	TopN int `koanf:"top_n" yaml:"top_n"`

	Source    SourceConfig    `koanf:"source" yaml:"source"`
	Cache     CacheConfig     `koanf:"cache" yaml:"cache"`
	Normalize NormalizeConfig `koanf:"normalize" yaml:"normalize"`
	Entities  EntitiesConfig  `koanf:"entities" yaml:"entities"`
	Embedding EmbeddingConfig `koanf:"embedding" yaml:"embedding"`
	Cluster   ClusterConfig   `koanf:"cluster" yaml:"cluster"`
	Topics    TopicsConfig    `koanf:"topics" yaml:"topics"`
	Words     WordsConfig     `koanf:"words" yaml:"words"`
	Server    ServerConfig    `koanf:"server" yaml:"server"`
}

// SourceConfig selects where posts come from. DSN wins over JSONL.
type SourceConfig struct {
	DSN   string `koanf:"dsn" yaml:"dsn"`
	JSONL string `koanf:"jsonl" yaml:"jsonl"`
	// Limit caps rows fetched per run; 0 means no cap.
	Limit int `koanf:"limit" yaml:"limit"`
}

// CacheConfig enables the sqlite model cache and run history
type CacheConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// NormalizeConfig holds the document length filter
type NormalizeConfig struct {
	MinDocLength int `koanf:"min_doc_length" yaml:"min_doc_length"`
}

// EntitiesConfig controls entity extraction
type EntitiesConfig struct {
	SampleSize    int    `koanf:"sample_size" yaml:"sample_size"`
	TruncateChars int    `koanf:"truncate_chars" yaml:"truncate_chars"`
	MinSpanLength int    `koanf:"min_span_length" yaml:"min_span_length"`
	DenylistPath  string `koanf:"denylist" yaml:"denylist"`
	GazetteerPath string `koanf:"gazetteer" yaml:"gazetteer"`
}

// EmbeddingConfig controls tokenization and skip-gram training
type EmbeddingConfig struct {
	MinTokenLength    int     `koanf:"min_token_length" yaml:"min_token_length"`
	MinSentenceTokens int     `koanf:"min_sentence_tokens" yaml:"min_sentence_tokens"`
	Dim               int     `koanf:"dim" yaml:"dim"`
	Window            int     `koanf:"window" yaml:"window"`
	MinCount          int     `koanf:"min_count" yaml:"min_count"`
	Epochs            int     `koanf:"epochs" yaml:"epochs"`
	Negative          int     `koanf:"negative" yaml:"negative"`
	LearningRate      float64 `koanf:"learning_rate" yaml:"learning_rate"`
	Seed              uint64  `koanf:"seed" yaml:"seed"`
	MaxModelBytes     int64   `koanf:"max_model_bytes" yaml:"max_model_bytes"`
}

// ClusterConfig controls seed expansion
type ClusterConfig struct {
	Neighbors int     `koanf:"neighbors" yaml:"neighbors"`
	Threshold float64 `koanf:"threshold" yaml:"threshold"`
	SeedsPath string  `koanf:"seeds" yaml:"seeds"`
}

// TopicsConfig controls the probabilistic topic model
type TopicsConfig struct {
	// InHybrid also fits topics in hybrid mode.
	InHybrid      bool    `koanf:"in_hybrid" yaml:"in_hybrid"`
	SampleSize    int     `koanf:"sample_size" yaml:"sample_size"`
	K             int     `koanf:"k" yaml:"k"`
	TopWords      int     `koanf:"top_words" yaml:"top_words"`
	MinDF         int     `koanf:"min_df" yaml:"min_df"`
	MaxDFRatio    float64 `koanf:"max_df_ratio" yaml:"max_df_ratio"`
	MaxFeatures   int     `koanf:"max_features" yaml:"max_features"`
	Iterations    int     `koanf:"iterations" yaml:"iterations"`
	Alpha         float64 `koanf:"alpha" yaml:"alpha"`
	Beta          float64 `koanf:"beta" yaml:"beta"`
	Seed          uint64  `koanf:"seed" yaml:"seed"`
	StopwordsPath string  `koanf:"stopwords" yaml:"stopwords"`
}

// WordsConfig controls the top-word frequency ranking
type WordsConfig struct {
	MinLength int `koanf:"min_length" yaml:"min_length"`
}

// ServerConfig configures `trendscan serve`
type ServerConfig struct {
	Addr        string        `koanf:"addr" yaml:"addr"`
	ReadTimeout time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	RunTimeout  time.Duration `koanf:"run_timeout" yaml:"run_timeout"`
	MaxTopN     int           `koanf:"max_top_n" yaml:"max_top_n"`

	// Metrics exposed on /metrics; empty buckets keep the built-in ones.
	MetricsNamespace string    `koanf:"metrics_namespace" yaml:"metrics_namespace"`
	StageBuckets     []float64 `koanf:"stage_buckets" yaml:"stage_buckets"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	emb := embedding.DefaultConfig()
	return &Config{
		LogLevel: "info",
		TopN:     30,
		Normalize: NormalizeConfig{
			MinDocLength: ingest.DefaultMinDocLength,
		},
		Entities: EntitiesConfig{
			SampleSize:    entities.DefaultSampleSize,
			TruncateChars: entities.DefaultTruncateChars,
			MinSpanLength: entities.DefaultMinSpanLength,
		},
		Embedding: EmbeddingConfig{
			MinTokenLength:    ingest.DefaultMinTokenLength,
			MinSentenceTokens: ingest.DefaultMinSentenceTokens,
			Dim:               emb.Dim,
			Window:            emb.Window,
			MinCount:          emb.MinCount,
			Epochs:            emb.Epochs,
			Negative:          emb.Negative,
			LearningRate:      emb.LearningRate,
			Seed:              emb.Seed,
			MaxModelBytes:     emb.MaxModelBytes,
		},
		Cluster: ClusterConfig{
			Neighbors: 15,
			Threshold: 0.6,
		},
		Topics: TopicsConfig{
			SampleSize:  lda.DefaultSampleSize,
			K:           lda.DefaultTopics,
			TopWords:    lda.DefaultTopWords,
			MinDF:       lda.DefaultMinDF,
			MaxDFRatio:  lda.DefaultMaxDFRatio,
			MaxFeatures: lda.DefaultMaxFeatures,
			Iterations:  lda.DefaultIterations,
			Beta:        lda.DefaultBeta,
			Seed:        1,
		},
		Words: WordsConfig{
			MinLength: 4,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			ReadTimeout: 10 * time.Second,
			RunTimeout:  10 * time.Minute,
			MaxTopN:     200,

			MetricsNamespace: "trendscan",
		},
	}
}

// Validate rejects values no stage can work with
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q", c.LogLevel))
	}
	check(c.Workers >= 0, "workers %d", c.Workers)
	check(c.TopN >= 0, "top_n %d", c.TopN)
	check(c.Source.Limit >= 0, "source.limit %d", c.Source.Limit)
	check(c.Normalize.MinDocLength >= 0, "normalize.min_doc_length %d", c.Normalize.MinDocLength)
	check(c.Entities.SampleSize > 0, "entities.sample_size %d", c.Entities.SampleSize)
	check(c.Entities.TruncateChars > 0, "entities.truncate_chars %d", c.Entities.TruncateChars)
	check(c.Entities.MinSpanLength > 0, "entities.min_span_length %d", c.Entities.MinSpanLength)
	check(c.Embedding.MinTokenLength > 0, "embedding.min_token_length %d", c.Embedding.MinTokenLength)
	check(c.Embedding.MinSentenceTokens > 0, "embedding.min_sentence_tokens %d", c.Embedding.MinSentenceTokens)
	check(c.Embedding.Dim > 0, "embedding.dim %d", c.Embedding.Dim)
	check(c.Embedding.Window > 0, "embedding.window %d", c.Embedding.Window)
	check(c.Embedding.MinCount > 0, "embedding.min_count %d", c.Embedding.MinCount)
	check(c.Embedding.Epochs > 0, "embedding.epochs %d", c.Embedding.Epochs)
	check(c.Embedding.Negative > 0, "embedding.negative %d", c.Embedding.Negative)
	check(c.Embedding.LearningRate > 0, "embedding.learning_rate %g", c.Embedding.LearningRate)
	check(c.Cluster.Neighbors > 0, "cluster.neighbors %d", c.Cluster.Neighbors)
	check(c.Cluster.Threshold > 0 && c.Cluster.Threshold < 1, "cluster.threshold %g", c.Cluster.Threshold)
	check(c.Topics.SampleSize > 0, "topics.sample_size %d", c.Topics.SampleSize)
	check(c.Topics.K > 0, "topics.k %d", c.Topics.K)
	check(c.Topics.TopWords > 0, "topics.top_words %d", c.Topics.TopWords)
	check(c.Topics.MinDF > 0, "topics.min_df %d", c.Topics.MinDF)
	check(c.Topics.MaxDFRatio > 0 && c.Topics.MaxDFRatio <= 1, "topics.max_df_ratio %g", c.Topics.MaxDFRatio)
	check(c.Topics.MaxFeatures > 0, "topics.max_features %d", c.Topics.MaxFeatures)
	check(c.Topics.Iterations > 0, "topics.iterations %d", c.Topics.Iterations)
	check(c.Topics.Alpha >= 0 && c.Topics.Beta >= 0, "topics priors alpha=%g beta=%g", c.Topics.Alpha, c.Topics.Beta)
	check(c.Words.MinLength > 0, "words.min_length %d", c.Words.MinLength)
	check(c.Server.MaxTopN >= 0, "server.max_top_n %d", c.Server.MaxTopN)
	check(c.Server.MetricsNamespace != "", "server.metrics_namespace is empty")
	for i := 1; i < len(c.Server.StageBuckets); i++ {
		if c.Server.StageBuckets[i] <= c.Server.StageBuckets[i-1] {
			problems = append(problems, fmt.Sprintf("server.stage_buckets %v not increasing", c.Server.StageBuckets))
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, problems)
	}
	return nil
}

// ExtractorConfig converts entity settings for the extractor
func (c *Config) ExtractorConfig() entities.Config {
	return entities.Config{
		SampleSize:    c.Entities.SampleSize,
		TruncateChars: c.Entities.TruncateChars,
		MinSpanLength: c.Entities.MinSpanLength,
		Workers:       c.Workers,
	}
}

// TrainerConfig converts embedding settings for the trainer
func (c *Config) TrainerConfig() embedding.Config {
	return embedding.Config{
		Dim:           c.Embedding.Dim,
		Window:        c.Embedding.Window,
		MinCount:      c.Embedding.MinCount,
		Epochs:        c.Embedding.Epochs,
		Negative:      c.Embedding.Negative,
		LearningRate:  c.Embedding.LearningRate,
		Workers:       c.Workers,
		Seed:          c.Embedding.Seed,
		MaxModelBytes: c.Embedding.MaxModelBytes,
	}
}

// VectorizerConfig converts topic vocabulary settings
func (c *Config) VectorizerConfig() lda.VectorizerConfig {
	return lda.VectorizerConfig{
		MinDF:       c.Topics.MinDF,
		MaxDFRatio:  c.Topics.MaxDFRatio,
		MaxFeatures: c.Topics.MaxFeatures,
		Workers:     c.Workers,
	}
}

// WordsVectorizerConfig builds the vectorizer settings for word frequencies: every
// word that occurs counts, up to the feature cap
func (c *Config) WordsVectorizerConfig() lda.VectorizerConfig {
	return lda.VectorizerConfig{
		MinDF:          1,
		MaxDFRatio:     1,
		MaxFeatures:    c.Topics.MaxFeatures,
		MinTokenLength: c.Words.MinLength,
		Workers:        c.Workers,
	}
}

// EstimatorConfig converts topic model settings
func (c *Config) EstimatorConfig() lda.Config {
	return lda.Config{
		SampleSize: c.Topics.SampleSize,
		Topics:     c.Topics.K,
		TopWords:   c.Topics.TopWords,
	}
}

// MetricsOptions converts server metric settings for metrics.New
func (c *Config) MetricsOptions() []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(c.Server.MetricsNamespace),
		metrics.WithHistogramBuckets(c.Server.StageBuckets),
	}
}

// Fitter builds the Gibbs fitter from topic settings
func (c *Config) Fitter() *lda.GibbsFitter {
	f := lda.NewGibbsFitter(c.Topics.Iterations, c.Topics.Seed)
	f.Alpha = c.Topics.Alpha
	if c.Topics.Beta > 0 {
		f.Beta = c.Topics.Beta
	}
	return f
}

// Loader returns a term-file loader for the configured paths
func (c *Config) Loader() *Loader {
	return &Loader{
		DenylistPath:  c.Entities.DenylistPath,
		StopwordsPath: c.Topics.StopwordsPath,
		SeedsPath:     c.Cluster.SeedsPath,
		GazetteerPath: c.Entities.GazetteerPath,
	}
}
