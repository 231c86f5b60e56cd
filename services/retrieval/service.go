// Package retrieval finds the knowledge base passages most similar to a query.
package retrieval

import (
	"context"
	"time"

	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/repositories"
	"github.com/upb/nse-market-bot/services"
	"go.uber.org/zap"
)

// DefaultCount is used when a caller asks for fewer than one passage
const DefaultCount = 3

// Embedder turns a query into a vector. Init must succeed before Embed.
type Embedder interface {
	Init(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds search settings
type Config struct {
	DefaultCount int
	MaxCount     int
	// Timeout bounds one search (embedding and query); zero disables it
	Timeout time.Duration
}

// Service ranks stored passages against a query
type Service struct {
	embedder Embedder
	repo     repositories.PassageRepository
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates a search service
func NewService(embedder Embedder, repo repositories.PassageRepository, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if cfg.DefaultCount < 1 {
		cfg.DefaultCount = DefaultCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Search returns up to count passages ranked by similarity to query.
// It never returns a Go error: failures are reported as OutcomeError with the
// cause in Result.Err, and logged.
func (s *Service) Search(ctx context.Context, query string, count int) Result {
	start := time.Now()
	count = s.effectiveCount(count)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	result := s.search(ctx, query, count)

	s.metrics.RecordSearch(string(result.Outcome), len(result.Passages), time.Since(start))
	if result.Outcome == OutcomeError {
		s.logger.Error("context retrieval failed",
			zap.Error(result.Err),
			zap.String("error_type", string(services.GetErrorType(result.Err))),
			zap.Int("query_length", len(query)),
			zap.Int("count", count),
		)
	} else {
		s.logger.Debug("context retrieved",
			zap.String("outcome", string(result.Outcome)),
			zap.Int("passages", len(result.Passages)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result
}

func (s *Service) search(ctx context.Context, query string, count int) Result {
	if err := s.embedder.Init(ctx); err != nil {
		return Result{Outcome: OutcomeError, Err: services.WrapEmbedding("embedding model unavailable", err)}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: services.WrapEmbedding("failed to embed query", err)}
	}

	passages, err := s.repo.SearchSimilar(ctx, vec, count)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: services.WrapStorage("similarity query failed", err)}
	}

	if len(passages) == 0 {
		return Result{Outcome: OutcomeEmpty}
	}
	return Result{Outcome: OutcomeFound, Passages: passages}
}

// SearchContext runs Search and renders the result as prompt context
func (s *Service) SearchContext(ctx context.Context, query string, count int) string {
	return s.Search(ctx, query, count).Context()
}

func (s *Service) effectiveCount(count int) int {
	if count < 1 {
		return s.cfg.DefaultCount
	}
	if s.cfg.MaxCount > 0 && count > s.cfg.MaxCount {
		return s.cfg.MaxCount
	}
	return count
}
