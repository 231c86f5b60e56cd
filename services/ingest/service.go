// Package ingest embeds documents and stores them as knowledge base passages.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	loader "github.com/upb/nse-market-bot/internal/ingest"
	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/models"
	"github.com/upb/nse-market-bot/repositories"
	"github.com/upb/nse-market-bot/services"
	"github.com/upb/nse-market-bot/services/retrieval"
	"go.uber.org/zap"
)

// Summary describes one ingestion batch
type Summary struct {
	BatchID  uuid.UUID     `json:"batch_id"`
	Inserted int           `json:"inserted"`
	Duration time.Duration `json:"duration"`
}

// Service writes passages into the knowledge base
type Service struct {
	embedder retrieval.Embedder
	repo     repositories.PassageRepository
	tx       repositories.TransactionManager
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates an ingestion service
func NewService(embedder retrieval.Embedder, repo repositories.PassageRepository, tx repositories.TransactionManager, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		repo:     repo,
		tx:       tx,
		logger:   logger,
		metrics:  metrics,
	}
}

// Ingest embeds every document, then inserts all of them in one transaction.
// Either the whole batch is stored or none of it is.
func (s *Service) Ingest(ctx context.Context, docs []loader.Document) (*Summary, error) {
	start := time.Now()
	batchID := uuid.New()
	logger := s.logger.With(zap.String("batch_id", batchID.String()))

	if len(docs) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "no documents to ingest", loader.ErrNoDocuments)
	}

	if err := s.embedder.Init(ctx); err != nil {
		return nil, services.WrapEmbedding("embedding model unavailable", err)
	}

	passages := make([]*models.Passage, len(docs))
	for i, doc := range docs {
		vec, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeEmbedding,
				fmt.Sprintf("failed to embed document %d", i), err).WithDetail("index", i)
		}
		passages[i] = models.NewPassage(doc.Content, doc.Source, vec)
	}
	logger.Debug("documents embedded", zap.Int("count", len(passages)))

	inserted, err := services.WithTransactionResult(ctx, s.tx, func(txCtx context.Context, _ repositories.Transaction) (int, error) {
		n := 0
		for i, p := range passages {
			if err := s.repo.Insert(txCtx, p); err != nil {
				return 0, fmt.Errorf("document %d: %w", i, err)
			}
			n++
		}
		return n, nil
	})
	if err != nil {
		logger.Error("ingestion batch rolled back", zap.Error(err))
		return nil, services.WrapStorage("failed to store passages", err)
	}

	s.metrics.RecordIngested(inserted)

	summary := &Summary{
		BatchID:  batchID,
		Inserted: inserted,
		Duration: time.Since(start),
	}
	logger.Info("ingestion batch stored",
		zap.Int("inserted", summary.Inserted),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
