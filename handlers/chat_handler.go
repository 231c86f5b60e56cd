package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/upb/nse-market-bot/middleware"
	"github.com/upb/nse-market-bot/services"
	"github.com/upb/nse-market-bot/services/chat"
	"github.com/upb/nse-market-bot/services/providers"
	"github.com/upb/nse-market-bot/utils"
	"go.uber.org/zap"
)

const maxChatBodyBytes = 1 << 20

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1"`
}

// ChatMessage is one conversation turn as sent by the chat UI. Content is
// either a string or a list of parts like {"type":"text","text":"..."}.
type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Conversation converts the request into completion messages. Only the last
// message must have string content. Earlier turns are reduced to their text,
// and turns the completion API cannot replay (tool results, empty turns) are
// skipped.
func (r *ChatRequest) Conversation() ([]providers.Message, error) {
	if len(r.Messages) == 0 {
		return nil, services.ErrInvalidMessageFormat
	}

	last := r.Messages[len(r.Messages)-1]
	var question string
	if err := json.Unmarshal(last.Content, &question); err != nil {
		return nil, services.ErrInvalidMessageFormat
	}

	messages := make([]providers.Message, 0, len(r.Messages))
	for _, m := range r.Messages[:len(r.Messages)-1] {
		if !replayableRole(m.Role) {
			continue
		}
		text, ok := messageText(m.Content)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		messages = append(messages, providers.Message{Role: m.Role, Content: text})
	}

	role := last.Role
	if !replayableRole(role) {
		role = providers.RoleUser
	}
	return append(messages, providers.Message{Role: role, Content: question}), nil
}

func replayableRole(role string) bool {
	switch role {
	case providers.RoleSystem, providers.RoleUser, providers.RoleAssistant:
		return true
	}
	return false
}

// messageText returns string content as is and joins the text parts of
// multi-part content
func messageText(raw json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, true
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", false
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n"), true
}

// ChatService defines the chat operations the handler needs
type ChatService interface {
	Stream(ctx context.Context, messages []providers.Message, w chat.StreamWriter) error
}

// ChatHandler serves the streaming chat endpoint
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if h.service == nil {
		_ = utils.WriteServiceUnavailable(w, "Chat is not configured")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to parse chat request",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, services.ErrInvalidMessageFormat, h.logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("chat request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		invalid := services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidMessageFormat.Message, err)
		for field, msg := range utils.GetValidationFields(err) {
			invalid.WithDetail(field, msg)
		}
		HandleServiceError(w, invalid, h.logger)
		return
	}

	messages, err := req.Conversation()
	if err != nil {
		h.logger.Warn("last chat message is not a string",
			zap.String("request_id", requestID))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("processing chat turn",
		zap.String("request_id", requestID),
		zap.Int("messages", len(req.Messages)),
		zap.Int("replayed", len(messages)))

	if err := h.service.Stream(ctx, messages, chat.NewDataStreamWriter(w)); err != nil {
		h.logger.Error("failed to answer chat",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
	}
}
