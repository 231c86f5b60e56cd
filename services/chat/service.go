// Package chat answers NSE questions by grounding a streamed completion in
// passages retrieved from the knowledge base.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/services"
	"github.com/upb/nse-market-bot/services/providers"
	"github.com/upb/nse-market-bot/services/retrieval"
	"go.uber.org/zap"
)

const (
	DefaultModel = "gpt-4o"

	finishReasonStop  = "stop"
	finishReasonError = "error"

	// sent to the client when the completion breaks mid-stream
	streamErrorMessage = "An error occurred while generating the response."
)

// Searcher retrieves grounding context for a question
type Searcher interface {
	Search(ctx context.Context, query string, count int) retrieval.Result
}

// Config holds completion settings
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// ContextCount is the number of passages injected into the prompt; zero
	// uses the searcher's default
	ContextCount int
}

// Service runs one chat turn
type Service struct {
	searcher Searcher
	provider providers.StreamingProvider
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates a chat service
func NewService(searcher Searcher, provider providers.StreamingProvider, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		searcher: searcher,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Model returns the completion model
func (s *Service) Model() string {
	return s.cfg.Model
}

// ValidateMessages checks that the conversation ends with a non-blank message
func ValidateMessages(messages []providers.Message) error {
	if len(messages) == 0 {
		return services.ErrInvalidMessageFormat
	}
	if strings.TrimSpace(messages[len(messages)-1].Content) == "" {
		return services.ErrInvalidMessageFormat
	}
	return nil
}

// BuildRequest retrieves context for the last message and assembles the
// completion request: the rendered system prompt followed by messages.
func (s *Service) BuildRequest(ctx context.Context, messages []providers.Message) (*providers.ChatRequest, retrieval.Result, error) {
	if err := ValidateMessages(messages); err != nil {
		return nil, retrieval.Result{}, err
	}

	question := messages[len(messages)-1].Content
	result := s.searcher.Search(ctx, question, s.cfg.ContextCount)

	prompt, err := RenderSystemPrompt(result.Context())
	if err != nil {
		return nil, result, services.WrapInternal("failed to render system prompt", err)
	}

	withContext := make([]providers.Message, 0, len(messages)+1)
	withContext = append(withContext, providers.Message{Role: providers.RoleSystem, Content: prompt})
	withContext = append(withContext, messages...)

	return &providers.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    withContext,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}, result, nil
}

// Stream answers the conversation, relaying completion deltas to w.
// Errors returned before w.Start was called leave w untouched so the caller
// can still answer with an HTTP error. Failures after that are reported
// in-stream and Stream returns nil.
func (s *Service) Stream(ctx context.Context, messages []providers.Message, w StreamWriter) error {
	start := time.Now()

	req, result, err := s.BuildRequest(ctx, messages)
	if err != nil {
		return err
	}
	req.Stream = true

	messageID := "msg-" + uuid.NewString()
	started := false
	finishReason := finishReasonStop

	begin := func() error {
		if started {
			return nil
		}
		started = true
		return w.Start(messageID)
	}

	err = s.provider.ChatCompletionStream(ctx, req, func(chunk *providers.StreamChunk) error {
		if err := begin(); err != nil {
			return err
		}
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if chunk.Delta == "" {
			return nil
		}
		return w.Text(chunk.Delta)
	})
	s.metrics.RecordChat(time.Since(start), err)

	logFields := []zap.Field{
		zap.String("message_id", messageID),
		zap.String("model", req.Model),
		zap.String("retrieval_outcome", string(result.Outcome)),
		zap.Int("messages", len(messages)),
		zap.Duration("duration", time.Since(start)),
	}

	if err != nil {
		s.logger.Error("chat completion failed", append(logFields, zap.Error(err), zap.Bool("streaming_started", started))...)
		if !started {
			return services.WrapExternal("chat completion failed", err)
		}
		if werr := w.Error(streamErrorMessage); werr != nil {
			return nil
		}
		_ = w.Finish(finishReasonError)
		return nil
	}

	// an empty completion still produces a well-formed stream
	werr := begin()
	if werr == nil {
		werr = w.Finish(finishReason)
	}
	if werr != nil {
		s.logger.Debug("client went away before finish", zap.Error(werr))
	}

	s.logger.Info("chat completion streamed", append(logFields, zap.String("finish_reason", finishReason))...)
	return nil
}

// Complete answers the conversation with a blocking completion
func (s *Service) Complete(ctx context.Context, messages []providers.Message) (string, error) {
	start := time.Now()

	req, _, err := s.BuildRequest(ctx, messages)
	if err != nil {
		return "", err
	}

	resp, err := s.provider.ChatCompletion(ctx, req)
	s.metrics.RecordChat(time.Since(start), err)
	if err != nil {
		return "", services.WrapExternal("chat completion failed", err)
	}
	return resp.Content(), nil
}
