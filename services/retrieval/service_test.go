package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/nse-market-bot/internal/embedding"
	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/models"
	"github.com/upb/nse-market-bot/repositories/memory"
	"github.com/upb/nse-market-bot/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// stubEmbedder maps known texts to fixed vectors.
type stubEmbedder struct {
	vectors  map[string][]float32
	initErr  error
	embedErr error
	inits    atomic.Int32
}

func (s *stubEmbedder) Init(ctx context.Context) error {
	s.inits.Add(1)
	return s.initErr
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

// MockPassageRepository is a mock implementation of repositories.PassageRepository
type MockPassageRepository struct {
	mock.Mock
}

func (m *MockPassageRepository) SearchSimilar(ctx context.Context, vec []float32, limit int) ([]*models.ScoredPassage, error) {
	args := m.Called(ctx, vec, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScoredPassage), args.Error(1)
}

func (m *MockPassageRepository) Insert(ctx context.Context, p *models.Passage) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPassageRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

const (
	openQuery     = "What time does the market open?"
	dividendQuery = "When are dividends paid?"
)

var (
	e1 = []float32{1, 0, 0} // NSE opens at 9am
	e2 = []float32{0, 1, 0} // Dividends are paid quarterly
)

func newEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		openQuery:     {0.9, 0.1, 0},
		dividendQuery: {0.2, 0.8, 0},
	}}
}

func seededStore(t *testing.T) *memory.PassageRepository {
	t.Helper()
	repo := memory.NewPassageRepository(3)
	require.NoError(t, repo.Insert(context.Background(), models.NewPassage("NSE opens at 9am", "", e1)))
	require.NoError(t, repo.Insert(context.Background(), models.NewPassage("Dividends are paid quarterly", "", e2)))
	return repo
}

func newService(t *testing.T, emb Embedder, repo *memory.PassageRepository) *Service {
	return NewService(emb, repo, Config{DefaultCount: 3, MaxCount: 50}, zaptest.NewLogger(t), nil)
}

func TestSearch_ClosestPassageFirst(t *testing.T) {
	svc := newService(t, newEmbedder(), seededStore(t))

	assert.Equal(t, "NSE opens at 9am", svc.SearchContext(context.Background(), openQuery, 1))
	assert.Equal(t, "Dividends are paid quarterly", svc.SearchContext(context.Background(), dividendQuery, 1))
}

func TestSearch_JoinsRankedPassages(t *testing.T) {
	svc := newService(t, newEmbedder(), seededStore(t))

	result := svc.Search(context.Background(), dividendQuery, 2)
	require.Equal(t, OutcomeFound, result.Outcome)
	require.Len(t, result.Passages, 2)
	assert.GreaterOrEqual(t, result.Passages[0].Similarity, result.Passages[1].Similarity)
	assert.Equal(t, "Dividends are paid quarterly\n\nNSE opens at 9am", result.Context())
}

func TestSearch_EmptyTable(t *testing.T) {
	svc := newService(t, newEmbedder(), memory.NewPassageRepository(3))

	result := svc.Search(context.Background(), "anything", 3)
	assert.Equal(t, OutcomeEmpty, result.Outcome)
	assert.Empty(t, result.Passages)
	assert.NoError(t, result.Err)
	assert.Equal(t, "No relevant information found.", svc.SearchContext(context.Background(), "anything", 3))
}

func TestSearch_CountLargerThanTable(t *testing.T) {
	svc := newService(t, newEmbedder(), seededStore(t))

	result := svc.Search(context.Background(), openQuery, 10)
	require.Equal(t, OutcomeFound, result.Outcome)
	assert.Len(t, result.Passages, 2)
	assert.Equal(t, []string{"NSE opens at 9am", "Dividends are paid quarterly"}, result.Contents())
}

func TestSearch_DefaultCount(t *testing.T) {
	repo := memory.NewPassageRepository(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(context.Background(), models.NewPassage(strings.Repeat("p", i+1), "", e1)))
	}
	svc := newService(t, newEmbedder(), repo)

	for _, count := range []int{0, -2} {
		result := svc.Search(context.Background(), openQuery, count)
		assert.Len(t, result.Passages, DefaultCount, "count %d", count)
	}
}

func TestSearch_CountClampedToMax(t *testing.T) {
	repoMock := new(MockPassageRepository)
	repoMock.On("SearchSimilar", mock.Anything, mock.Anything, 50).Return([]*models.ScoredPassage{}, nil)

	svc := NewService(newEmbedder(), repoMock, Config{MaxCount: 50}, zap.NewNop(), nil)
	svc.Search(context.Background(), openQuery, 500)

	repoMock.AssertExpectations(t)
}

func TestSearch_Idempotent(t *testing.T) {
	svc := newService(t, newEmbedder(), seededStore(t))

	first := svc.SearchContext(context.Background(), openQuery, 2)
	second := svc.SearchContext(context.Background(), openQuery, 2)
	assert.Equal(t, first, second)
}

func TestSearch_TiesOrderedByInsertion(t *testing.T) {
	repo := memory.NewPassageRepository(3)
	for _, c := range []string{"alpha", "bravo", "charlie"} {
		require.NoError(t, repo.Insert(context.Background(), models.NewPassage(c, "", e1)))
	}
	svc := newService(t, newEmbedder(), repo)

	assert.Equal(t, "alpha\n\nbravo\n\ncharlie", svc.SearchContext(context.Background(), openQuery, 3))
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	t.Run("embed error", func(t *testing.T) {
		emb := newEmbedder()
		emb.embedErr = errors.New("inference endpoint returned 503")
		svc := newService(t, emb, seededStore(t))

		result := svc.Search(context.Background(), openQuery, 3)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.True(t, services.IsEmbeddingError(result.Err))
		assert.Contains(t, result.Err.Error(), "503")
		assert.Equal(t, "Error retrieving context.", result.Context())
	})

	t.Run("init error", func(t *testing.T) {
		emb := newEmbedder()
		emb.initErr = errors.New("model download failed")
		svc := newService(t, emb, seededStore(t))

		result := svc.Search(context.Background(), openQuery, 3)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.True(t, services.IsEmbeddingError(result.Err))
	})

	t.Run("blank query", func(t *testing.T) {
		p, err := embedding.NewProvider(&rowExtractor{row: []float32{1, 0, 0}}, embedding.ProviderConfig{Dimensions: 3}, zap.NewNop(), nil)
		require.NoError(t, err)
		svc := newService(t, p, seededStore(t))

		result := svc.Search(context.Background(), "   ", 3)
		assert.Equal(t, OutcomeError, result.Outcome)
		assert.ErrorIs(t, result.Err, embedding.ErrEmptyInput)
	})
}

func TestSearch_StorageFailure(t *testing.T) {
	repoMock := new(MockPassageRepository)
	repoMock.On("SearchSimilar", mock.Anything, []float32{0.9, 0.1, 0}, 3).
		Return(nil, errors.New(`pq: relation "nse_knowledge" does not exist`))

	svc := NewService(newEmbedder(), repoMock, Config{}, zaptest.NewLogger(t), nil)

	result := svc.Search(context.Background(), openQuery, 3)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.True(t, services.IsStorageError(result.Err))
	assert.Equal(t, "Error retrieving context.", svc.SearchContext(context.Background(), openQuery, 3))
	repoMock.AssertExpectations(t)
}

func TestSearch_Timeout(t *testing.T) {
	repoMock := new(MockPassageRepository)
	repoMock.On("SearchSimilar", mock.Anything, mock.Anything, 3).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	svc := NewService(newEmbedder(), repoMock, Config{Timeout: 10 * time.Millisecond}, zap.NewNop(), nil)

	result := svc.Search(context.Background(), openQuery, 3)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestSearch_AlwaysReturnsString(t *testing.T) {
	failing := newEmbedder()
	failing.embedErr = errors.New("boom")

	cases := []*Service{
		newService(t, newEmbedder(), seededStore(t)),
		newService(t, newEmbedder(), memory.NewPassageRepository(3)),
		newService(t, failing, seededStore(t)),
	}
	queries := []string{"", "x", openQuery, strings.Repeat("long ", 500)}

	for _, svc := range cases {
		for _, q := range queries {
			assert.NotPanics(t, func() {
				assert.NotEmpty(t, svc.SearchContext(context.Background(), q, 3))
			})
		}
	}
}

func TestSearch_InitializesProviderOnFirstUse(t *testing.T) {
	ex := &rowExtractor{row: []float32{1, 0, 0}}
	p, err := embedding.NewProvider(ex, embedding.ProviderConfig{Dimensions: 3}, zap.NewNop(), nil)
	require.NoError(t, err)
	require.False(t, p.Ready())

	svc := newService(t, p, seededStore(t))
	assert.Equal(t, "NSE opens at 9am", svc.SearchContext(context.Background(), openQuery, 1))
	assert.True(t, p.Ready())
}

func TestSearch_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := NewService(newEmbedder(), memory.NewPassageRepository(3), Config{}, zap.NewNop(), metrics)

	svc.Search(context.Background(), openQuery, 3)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "marketbot_search_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

// rowExtractor returns the same pooled row for every text.
type rowExtractor struct {
	row []float32
}

func (r *rowExtractor) Extract(ctx context.Context, text string) ([][]float32, error) {
	return [][]float32{r.row}, nil
}

func (r *rowExtractor) Model() string { return "row" }
