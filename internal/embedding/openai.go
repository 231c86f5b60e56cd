package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// OpenAIExtractor calls an OpenAI compatible /embeddings endpoint.
// The API returns pooled vectors, so Extract yields a single row.
type OpenAIExtractor struct {
	cfg    BackendConfig
	client *http.Client
	logger *zap.Logger
}

type openAIEmbeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewOpenAIExtractor creates an embeddings client
func NewOpenAIExtractor(cfg BackendConfig, logger *zap.Logger) *OpenAIExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIExtractor{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("embedding_backend", "openai")),
	}
}

// Model returns the model identifier
func (e *OpenAIExtractor) Model() string {
	return e.cfg.Model
}

// Extract returns the embedding for text as a single feature row
func (e *OpenAIExtractor) Extract(ctx context.Context, text string) ([][]float32, error) {
	payload := openAIEmbeddingRequest{
		Model: e.cfg.Model,
		Input: text,
	}
	// Only the v3 models accept a shortened output size
	if strings.HasPrefix(e.cfg.Model, "text-embedding-3") {
		payload.Dimensions = e.cfg.Dimensions
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	body, err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryInterval, func() ([]byte, error) {
		data, err := postJSON(ctx, e.client, url, e.cfg.APIKey, payload)
		if err != nil {
			e.logger.Warn("embedding request failed", zap.Error(err))
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}

	var resp openAIEmbeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyFeatures
	}

	return [][]float32{resp.Data[0].Embedding}, nil
}
