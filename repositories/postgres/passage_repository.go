package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/nse-market-bot/internal/vector"
	"github.com/upb/nse-market-bot/models"
	"go.uber.org/zap"
)

// PassageRepository stores passages in a pgvector table and ranks them by
// cosine distance (the <=> operator).
type PassageRepository struct {
	db         *DB
	table      string
	dimensions int
	logger     *zap.Logger
}

// NewPassageRepository creates a repository over table. A positive dimensions
// value makes the repository reject vectors of any other length.
func NewPassageRepository(db *DB, table string, dimensions int, logger *zap.Logger) *PassageRepository {
	if table == "" {
		table = models.DefaultPassageTable
	}
	return &PassageRepository{
		db:         db,
		table:      pq.QuoteIdentifier(table),
		dimensions: dimensions,
		logger:     logger,
	}
}

// SearchSimilar returns the limit passages closest to vec, highest similarity
// first, ties broken by id so results are stable.
func (r *PassageRepository) SearchSimilar(ctx context.Context, vec []float32, limit int) ([]*models.ScoredPassage, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if err := r.checkDimensions(vec); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, content, COALESCE(source, ''), 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		ORDER BY similarity DESC, id ASC
		LIMIT $2
	`, r.table)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, vector.FormatPgVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar passages: %w", err)
	}
	defer rows.Close()

	results := make([]*models.ScoredPassage, 0, limit)
	for rows.Next() {
		p := &models.ScoredPassage{}
		if err := rows.Scan(&p.ID, &p.Content, &p.Source, &p.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passages: %w", err)
	}

	r.logger.Debug("similarity query completed",
		zap.Int("limit", limit),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Insert stores a passage and fills in its ID and CreatedAt
func (r *PassageRepository) Insert(ctx context.Context, passage *models.Passage) error {
	if passage == nil || passage.Content == "" {
		return errors.New("passage content is required")
	}
	if err := r.checkDimensions(passage.Embedding); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content, embedding, source)
		VALUES ($1, $2::vector, NULLIF($3, ''))
		RETURNING id, created_at
	`, r.table)

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		passage.Content,
		vector.FormatPgVector(passage.Embedding),
		passage.Source,
	).Scan(&passage.ID, &passage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}

	r.logger.Debug("passage inserted", zap.Int64("id", passage.ID), zap.String("source", passage.Source))
	return nil
}

// Count returns the number of stored passages
func (r *PassageRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)

	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}

func (r *PassageRepository) checkDimensions(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding: %w", vector.ErrDimensionMismatch)
	}
	if r.dimensions > 0 && len(vec) != r.dimensions {
		return fmt.Errorf("embedding has %d dimensions, table expects %d: %w",
			len(vec), r.dimensions, vector.ErrDimensionMismatch)
	}
	return nil
}
