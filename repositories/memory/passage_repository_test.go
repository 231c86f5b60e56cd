package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/nse-market-bot/internal/vector"
	"github.com/upb/nse-market-bot/models"
)

func seed(t *testing.T, repo *PassageRepository, passages ...*models.Passage) {
	t.Helper()
	for _, p := range passages {
		require.NoError(t, repo.Insert(context.Background(), p))
	}
}

func TestPassageRepository_SearchSimilar(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by similarity", func(t *testing.T) {
		repo := NewPassageRepository(2)
		seed(t, repo,
			models.NewPassage("Dividends are paid quarterly", "", []float32{0, 1}),
			models.NewPassage("NSE opens at 9am", "", []float32{1, 0}),
			models.NewPassage("Trading closes at 3pm", "", []float32{0.8, 0.6}),
		)

		results, err := repo.SearchSimilar(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "NSE opens at 9am", results[0].Content)
		assert.Equal(t, "Trading closes at 3pm", results[1].Content)
		assert.Equal(t, "Dividends are paid quarterly", results[2].Content)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
		assert.InDelta(t, 0.8, results[1].Similarity, 1e-6)
		assert.InDelta(t, 0.0, results[2].Similarity, 1e-6)
	})

	t.Run("limit truncates", func(t *testing.T) {
		repo := NewPassageRepository(2)
		seed(t, repo,
			models.NewPassage("a", "", []float32{1, 0}),
			models.NewPassage("b", "", []float32{0, 1}),
		)

		results, err := repo.SearchSimilar(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].Content)
	})

	t.Run("limit larger than store returns everything without padding", func(t *testing.T) {
		repo := NewPassageRepository(2)
		seed(t, repo,
			models.NewPassage("a", "", []float32{1, 0}),
			models.NewPassage("b", "", []float32{0, 1}),
		)

		results, err := repo.SearchSimilar(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		repo := NewPassageRepository(2)
		seed(t, repo,
			models.NewPassage("first", "", []float32{0, 1}),
			models.NewPassage("second", "", []float32{0, 2}),
			models.NewPassage("third", "", []float32{0, 3}),
		)

		results, err := repo.SearchSimilar(ctx, []float32{0, 1}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []string{"first", "second", "third"},
			[]string{results[0].Content, results[1].Content, results[2].Content})
	})

	t.Run("empty store", func(t *testing.T) {
		repo := NewPassageRepository(2)
		results, err := repo.SearchSimilar(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		repo := NewPassageRepository(3)
		_, err := repo.SearchSimilar(ctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := NewPassageRepository(2)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.SearchSimilar(cctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPassageRepository_Insert(t *testing.T) {
	repo := NewPassageRepository(2)
	ctx := context.Background()

	p := models.NewPassage("NSE opens at 9am", "faq", []float32{1, 0})
	require.NoError(t, repo.Insert(ctx, p))
	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	// the stored copy is not affected by later writes to the caller's slice
	p.Embedding[0] = -1
	results, err := repo.SearchSimilar(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	assert.ErrorIs(t, repo.Insert(ctx, models.NewPassage("x", "", []float32{1})), vector.ErrDimensionMismatch)
	assert.Error(t, repo.Insert(ctx, models.NewPassage("", "", []float32{1, 0})))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPassageRepository_ConcurrentAccess(t *testing.T) {
	repo := NewPassageRepository(2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = repo.Insert(ctx, models.NewPassage("p", "", []float32{1, 1}))
		}()
		go func() {
			defer wg.Done()
			_, _ = repo.SearchSimilar(ctx, []float32{1, 0}, 3)
		}()
	}
	wg.Wait()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}
