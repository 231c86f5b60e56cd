package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// HuggingFaceExtractor calls a Hugging Face feature-extraction endpoint
// (Inference API or text-embeddings-inference) and returns token features.
type HuggingFaceExtractor struct {
	cfg    BackendConfig
	client *http.Client
	logger *zap.Logger
}

type hfRequest struct {
	Inputs  string    `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewHuggingFaceExtractor creates a feature extractor for the configured model
func NewHuggingFaceExtractor(cfg BackendConfig, logger *zap.Logger) *HuggingFaceExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFaceExtractor{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("embedding_backend", "huggingface")),
	}
}

// Model returns the model identifier
func (e *HuggingFaceExtractor) Model() string {
	return e.cfg.Model
}

// Endpoint returns the URL requests are sent to. When the base URL already
// ends with the model name it is used as is.
func (e *HuggingFaceExtractor) Endpoint() string {
	base := strings.TrimRight(e.cfg.BaseURL, "/")
	if e.cfg.Model == "" || strings.HasSuffix(base, "/"+e.cfg.Model) {
		return base
	}
	return base + "/" + e.cfg.Model
}

// Extract returns the token-level features for text
func (e *HuggingFaceExtractor) Extract(ctx context.Context, text string) ([][]float32, error) {
	payload := hfRequest{
		Inputs:  text,
		Options: hfOptions{WaitForModel: true},
	}

	attempt := 0
	body, err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryInterval, func() ([]byte, error) {
		attempt++
		data, err := postJSON(ctx, e.client, e.Endpoint(), e.cfg.APIKey, payload)
		if err != nil {
			e.logger.Warn("feature extraction attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}

	return parseFeatures(body)
}

// parseFeatures accepts a pooled vector [d], token rows [[d]...] or a batch
// of token rows [[[d]...]] and returns token rows for the first input.
func parseFeatures(body []byte) ([][]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, ErrEmptyFeatures
		}
		return [][]float32{flat}, nil
	}

	var rows [][]float32
	if err := json.Unmarshal(body, &rows); err == nil {
		if len(rows) == 0 {
			return nil, ErrEmptyFeatures
		}
		return rows, nil
	}

	var batch [][][]float32
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("unexpected feature extraction response: %w", err)
	}
	if len(batch) == 0 || len(batch[0]) == 0 {
		return nil, ErrEmptyFeatures
	}
	return batch[0], nil
}
