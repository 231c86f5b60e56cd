package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/upb/nse-market-bot/middleware"
	"github.com/upb/nse-market-bot/models"
	"github.com/upb/nse-market-bot/services/retrieval"
	"github.com/upb/nse-market-bot/utils"
	"go.uber.org/zap"
)

// SearchParams are the query parameters of GET /api/v1/search.
// A zero count selects the service default; counts above the handler's
// maximum are rejected.
type SearchParams struct {
	Query string `validate:"required"`
	Count int    `validate:"gte=0"`
}

// SearchResponse is the payload returned for a successful search
type SearchResponse struct {
	Outcome retrieval.Outcome       `json:"outcome"`
	Context string                  `json:"context"`
	Results []*models.ScoredPassage `json:"results"`
}

// Searcher defines the retrieval operation the handler needs
type Searcher interface {
	Search(ctx context.Context, query string, count int) retrieval.Result
}

// SearchHandler exposes similarity search over the knowledge base
type SearchHandler struct {
	searcher Searcher
	maxCount int
	logger   *zap.Logger
}

// NewSearchHandler creates a new SearchHandler. A maxCount of zero leaves the
// count unbounded at the HTTP layer.
func NewSearchHandler(searcher Searcher, maxCount int, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		maxCount: maxCount,
		logger:   logger,
	}
}

// HandleSearch handles GET /api/v1/search?q=...&count=...
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	count, err := utils.ParseIntParam(r.URL.Query().Get("count"), "count", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	params := SearchParams{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Count: count,
	}
	if err := utils.ValidateStruct(&params); err != nil {
		h.logger.Debug("search validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}
	if h.maxCount > 0 && params.Count > h.maxCount {
		_ = utils.WriteBadRequest(w, "Validation failed", map[string]interface{}{
			"Count": fmt.Sprintf("Count must be at most %d", h.maxCount),
		})
		return
	}

	result := h.searcher.Search(ctx, params.Query, params.Count)
	if result.Outcome == retrieval.OutcomeError {
		HandleServiceError(w, result.Err, h.logger)
		return
	}

	results := result.Passages
	if results == nil {
		results = []*models.ScoredPassage{}
	}

	_ = utils.WriteOK(w, SearchResponse{
		Outcome: result.Outcome,
		Context: result.Context(),
		Results: results,
	})
}
