package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotInitialized is returned by Embed before Init has succeeded
	ErrNotInitialized = errors.New("embedding provider not initialized")

	// ErrEmptyInput is returned when asked to embed blank text
	ErrEmptyInput = errors.New("cannot embed empty text")
)

const (
	defaultInitTimeout = 2 * time.Minute
	defaultWarmupText  = "Nairobi Securities Exchange"
	initKey            = "init"
)

// FeatureExtractor produces token-level features for a text.
// Backends that already pool return a single row.
type FeatureExtractor interface {
	Extract(ctx context.Context, text string) ([][]float32, error)
	Model() string
}

// ProviderConfig configures a Provider
type ProviderConfig struct {
	// Dimensions is the expected output length; zero accepts whatever the
	// model produces at Init.
	Dimensions  int
	InitTimeout time.Duration
	CacheSize   int
	WarmupText  string
}

// Provider wraps a FeatureExtractor with a one-time initialization,
// mean pooling, L2 normalization and an LRU cache of query embeddings.
type Provider struct {
	extractor FeatureExtractor
	cfg       ProviderConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	cache *lru.Cache[string, []float32]
	group singleflight.Group

	ready atomic.Bool
	dims  atomic.Int64
}

// NewExtractor builds the FeatureExtractor for a backend name
func NewExtractor(backend string, cfg BackendConfig, logger *zap.Logger) (FeatureExtractor, error) {
	switch strings.ToLower(backend) {
	case "", "huggingface":
		return NewHuggingFaceExtractor(cfg, logger), nil
	case "openai":
		return NewOpenAIExtractor(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", backend)
	}
}

// NewProvider creates an uninitialized provider
func NewProvider(extractor FeatureExtractor, cfg ProviderConfig, logger *zap.Logger, metrics *observability.Metrics) (*Provider, error) {
	if extractor == nil {
		return nil, errors.New("feature extractor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaultInitTimeout
	}
	if cfg.WarmupText == "" {
		cfg.WarmupText = defaultWarmupText
	}

	p := &Provider{
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.With(zap.String("model", extractor.Model())),
		metrics:   metrics,
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		p.cache = cache
	}

	return p, nil
}

// Init loads the model on first use. Concurrent callers share one in-flight
// initialization; once it succeeds later calls return immediately. A failed
// initialization is not remembered, so the next call tries again.
//
// The load itself is detached from ctx and bounded by the configured init
// timeout; ctx only limits how long this caller waits.
func (p *Provider) Init(ctx context.Context) error {
	if p.ready.Load() {
		return nil
	}

	ch := p.group.DoChan(initKey, func() (interface{}, error) {
		if p.ready.Load() {
			return nil, nil
		}

		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.InitTimeout)
		defer cancel()

		err := p.load(initCtx)
		p.metrics.RecordInit(err)
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) load(ctx context.Context) error {
	start := time.Now()
	p.logger.Info("initializing embedding model")

	vec, err := p.compute(ctx, p.cfg.WarmupText)
	if err != nil {
		p.logger.Error("embedding model initialization failed", zap.Error(err))
		return fmt.Errorf("failed to initialize embedding model %s: %w", p.extractor.Model(), err)
	}

	if p.cfg.Dimensions > 0 && len(vec) != p.cfg.Dimensions {
		err := fmt.Errorf("model %s produces %d dimensions, expected %d: %w",
			p.extractor.Model(), len(vec), p.cfg.Dimensions, vector.ErrDimensionMismatch)
		p.logger.Error("embedding model initialization failed", zap.Error(err))
		return err
	}

	p.dims.Store(int64(len(vec)))
	p.ready.Store(true)

	p.logger.Info("embedding model ready",
		zap.Int("dimensions", len(vec)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Embed returns the normalized embedding for text. Results for identical text
// are identical and may be served from the cache.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.ready.Load() {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	if p.cache != nil {
		if vec, ok := p.cache.Get(text); ok {
			p.metrics.RecordEmbeddingCacheHit()
			return slices.Clone(vec), nil
		}
	}

	vec, err := p.compute(ctx, text)
	if err != nil {
		return nil, err
	}

	if want := p.Dimensions(); len(vec) != want {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d: %w",
			len(vec), want, vector.ErrDimensionMismatch)
	}

	if p.cache != nil {
		p.cache.Add(text, vec)
	}
	return slices.Clone(vec), nil
}

func (p *Provider) compute(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	rows, err := p.extractor.Extract(ctx, text)
	p.metrics.RecordEmbedding(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	pooled, err := MeanPool(rows)
	if err != nil {
		return nil, err
	}
	return Normalize(pooled), nil
}

// Ready reports whether Init has completed successfully
func (p *Provider) Ready() bool {
	return p.ready.Load()
}

// Dimensions returns the embedding length, or zero before Init
func (p *Provider) Dimensions() int {
	return int(p.dims.Load())
}

// Model returns the backing model identifier
func (p *Provider) Model() string {
	return p.extractor.Model()
}
