// Package memory provides an in-process PassageRepository that ranks passages
// by brute-force cosine similarity. It suits tests, local development and
// small knowledge bases.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/upb/nse-market-bot/internal/vector"
	"github.com/upb/nse-market-bot/models"
)

// PassageRepository keeps passages in memory
type PassageRepository struct {
	mu         sync.RWMutex
	passages   []*models.Passage
	nextID     int64
	dimensions int
	now        func() time.Time
}

// NewPassageRepository creates an empty store. A positive dimensions value
// makes the store reject vectors of any other length.
func NewPassageRepository(dimensions int) *PassageRepository {
	return &PassageRepository{
		dimensions: dimensions,
		nextID:     1,
		now:        time.Now,
	}
}

// SearchSimilar ranks every stored passage against vec and returns the top
// limit, highest similarity first and insertion order on ties.
func (r *PassageRepository) SearchSimilar(ctx context.Context, vec []float32, limit int) ([]*models.ScoredPassage, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if err := r.checkDimensions(vec); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	scored := make([]*models.ScoredPassage, 0, len(r.passages))
	for _, p := range r.passages {
		sim, err := vector.CosineSimilarity(vec, p.Embedding)
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", p.ID, err)
		}
		scored = append(scored, &models.ScoredPassage{
			ID:         p.ID,
			Content:    p.Content,
			Source:     p.Source,
			Similarity: sim,
		})
	}

	// passages are held in id order, so a stable sort keeps ties by id
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// Insert stores a copy of the passage and sets its ID and CreatedAt
func (r *PassageRepository) Insert(ctx context.Context, passage *models.Passage) error {
	if passage == nil || passage.Content == "" {
		return errors.New("passage content is required")
	}
	if err := r.checkDimensions(passage.Embedding); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	passage.ID = r.nextID
	passage.CreatedAt = r.now()
	r.nextID++

	stored := *passage
	stored.Embedding = slices.Clone(passage.Embedding)
	r.passages = append(r.passages, &stored)
	return nil
}

// Count returns the number of stored passages
func (r *PassageRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.passages), nil
}

func (r *PassageRepository) checkDimensions(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding: %w", vector.ErrDimensionMismatch)
	}
	if r.dimensions > 0 && len(vec) != r.dimensions {
		return fmt.Errorf("embedding has %d dimensions, store expects %d: %w",
			len(vec), r.dimensions, vector.ErrDimensionMismatch)
	}
	return nil
}
