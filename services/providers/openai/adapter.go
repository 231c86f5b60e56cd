package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/upb/nse-market-bot/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	maxErrorBody   = 64 << 10
	maxStreamLine  = 1 << 20
	sseDataPrefix  = "data:"
	sseDoneMessage = "[DONE]"
)

// OpenAIAdapter implements providers.StreamingProvider for the OpenAI chat completions API
type OpenAIAdapter struct {
	config providers.ProviderConfig
	logger *zap.Logger

	// httpClient carries the request timeout; streamClient is bounded by the
	// request context only so long answers are not cut off.
	httpClient   *http.Client
	streamClient *http.Client

	models map[string]*providers.ModelInfo
}

var _ providers.StreamingProvider = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig, logger *zap.Logger) *OpenAIAdapter {
	defaults := providers.DefaultProviderConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIAdapter{
		config:       config,
		logger:       logger.With(zap.String("provider", "openai")),
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		models:       defaultModels(),
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// ChatCompletion performs a blocking chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	if err := a.ValidateModel(req.Model); err != nil {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL", err.Error(), http.StatusBadRequest, false, err)
	}

	body, err := json.Marshal(a.buildOpenAIRequest(req, false))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	httpResp, err := a.send(ctx, a.httpClient, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var openaiResp OpenAIChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&openaiResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	return a.convertToUnifiedResponse(&openaiResp, time.Since(startTime)), nil
}

// ChatCompletionStream performs a streaming chat completion, calling callback
// for every content delta and once more with the finish reason. Only the
// connection is retried; once chunks have been delivered a failure is final.
func (a *OpenAIAdapter) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest, callback providers.StreamCallback) error {
	if err := a.ValidateModel(req.Model); err != nil {
		return providers.NewProviderError(a.Name(), "INVALID_MODEL", err.Error(), http.StatusBadRequest, false, err)
	}

	body, err := json.Marshal(a.buildOpenAIRequest(req, true))
	if err != nil {
		return providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	httpResp, err := a.send(ctx, a.streamClient, body)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	return a.readStream(ctx, httpResp.Body, callback)
}

func (a *OpenAIAdapter) readStream(ctx context.Context, body io.Reader, callback providers.StreamCallback) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	finished := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			// blank separators, comments and event names
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if data == sseDoneMessage {
			return nil
		}

		var chunk OpenAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to decode stream chunk", http.StatusOK, false, err)
		}
		if chunk.Error != nil {
			return providers.NewProviderError(a.Name(), chunk.Error.Type, chunk.Error.Message, http.StatusOK, false, errors.New(chunk.Error.Message))
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		out := &providers.StreamChunk{
			ID:    chunk.ID,
			Model: chunk.Model,
			Delta: choice.Delta.Content,
		}
		if choice.FinishReason != nil {
			out.FinishReason = *choice.FinishReason
			finished = true
		}
		if out.Delta == "" && out.FinishReason == "" {
			continue
		}
		if err := callback(out); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return providers.NewProviderError(a.Name(), "STREAM_ERROR", "Failed to read stream", http.StatusOK, false, err)
	}
	if !finished {
		return providers.NewProviderError(a.Name(), "STREAM_ERROR", "Stream ended unexpectedly", http.StatusOK, false, io.ErrUnexpectedEOF)
	}
	return nil
}

// send posts body to the completions endpoint, retrying transport failures,
// 429 and 5xx responses with exponential backoff. The caller closes the body.
func (a *OpenAIAdapter) send(ctx context.Context, client *http.Client, body []byte) (*http.Response, error) {
	var httpResp *http.Response

	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err))
		}
		a.setHeaders(httpReq)

		resp, err := client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, err)
		}

		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			provErr := a.handleErrorResponse(resp.StatusCode, respBody)
			if !provErr.Retryable {
				return backoff.Permanent(provErr)
			}
			return provErr
		}

		httpResp = resp
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.config.RetryDelay
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		a.logger.Warn("retrying chat completion request",
			zap.Error(err),
			zap.Duration("backoff", wait),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(a.config.MaxRetries)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return httpResp, nil
}

func (a *OpenAIAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	if a.config.OrgID != "" {
		req.Header.Set("OpenAI-Organization", a.config.OrgID)
	}
}

// IsAvailable checks if the API answers the model listing with the configured key
func (a *OpenAIAdapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ValidateModel checks if a model is supported
func (a *OpenAIAdapter) ValidateModel(model string) error {
	if _, exists := a.models[model]; !exists {
		return fmt.Errorf("model %s is not supported by OpenAI provider", model)
	}
	return nil
}

// GetModelInfo returns information about a specific model
func (a *OpenAIAdapter) GetModelInfo(model string) (*providers.ModelInfo, error) {
	info, exists := a.models[model]
	if !exists {
		return nil, fmt.Errorf("model %s not found", model)
	}
	return info, nil
}

// ListModels returns all available models, sorted
func (a *OpenAIAdapter) ListModels() []string {
	models := make([]string, 0, len(a.models))
	for model := range a.models {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

func defaultModels() map[string]*providers.ModelInfo {
	model := func(id, name string, maxTokens, window int) *providers.ModelInfo {
		return &providers.ModelInfo{
			ID:                id,
			Name:              name,
			Provider:          "openai",
			MaxTokens:         maxTokens,
			ContextWindow:     window,
			SupportsStreaming: true,
		}
	}
	return map[string]*providers.ModelInfo{
		"gpt-4o":        model("gpt-4o", "GPT-4o", 16384, 128000),
		"gpt-4o-mini":   model("gpt-4o-mini", "GPT-4o Mini", 16384, 128000),
		"gpt-4-turbo":   model("gpt-4-turbo", "GPT-4 Turbo", 4096, 128000),
		"gpt-4":         model("gpt-4", "GPT-4", 8192, 8192),
		"gpt-3.5-turbo": model("gpt-3.5-turbo", "GPT-3.5 Turbo", 4096, 16385),
	}
}

// buildOpenAIRequest converts a unified request to OpenAI format
func (a *OpenAIAdapter) buildOpenAIRequest(req *providers.ChatRequest, stream bool) *OpenAIChatRequest {
	openaiReq := &OpenAIChatRequest{
		Model:    req.Model,
		Messages: make([]OpenAIMessage, len(req.Messages)),
		Stream:   stream,
	}

	for i, msg := range req.Messages {
		openaiReq.Messages[i] = OpenAIMessage{Role: msg.Role, Content: msg.Content}
	}

	if req.MaxTokens > 0 {
		openaiReq.MaxTokens = &req.MaxTokens
	}
	if req.Temperature > 0 {
		openaiReq.Temperature = &req.Temperature
	}
	if req.User != "" {
		openaiReq.User = &req.User
	}

	return openaiReq
}

// convertToUnifiedResponse converts an OpenAI response to unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(openaiResp *OpenAIChatResponse, latency time.Duration) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:       openaiResp.ID,
		Model:    openaiResp.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(openaiResp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     openaiResp.Usage.PromptTokens,
			CompletionTokens: openaiResp.Usage.CompletionTokens,
			TotalTokens:      openaiResp.Usage.TotalTokens,
		},
		Latency: latency,
		Created: time.Unix(openaiResp.Created, 0),
	}

	for i, choice := range openaiResp.Choices {
		resp.Choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		}
	}

	return resp
}

// handleErrorResponse builds a provider error from a non-200 response
func (a *OpenAIAdapter) handleErrorResponse(statusCode int, body []byte) *providers.ProviderError {
	retryable := statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests

	var errResp OpenAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", msg, statusCode, retryable, err)
	}

	return providers.NewProviderError(
		a.Name(),
		errResp.Error.Type,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Message),
	)
}

// OpenAI-specific request/response types

type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	User        *string         `json:"user,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIStreamChunk struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
	Error   *OpenAIError         `json:"error,omitempty"`
}

type OpenAIStreamChoice struct {
	Index int `json:"index"`
	Delta struct {
		Role    string `json:"role,omitempty"`
		Content string `json:"content,omitempty"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type OpenAIErrorResponse struct {
	Error OpenAIError `json:"error"`
}

type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
