package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/internal/observability"
	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/services"
	"github.com/upb/chat-fallback-router/services/providers"
	"github.com/upb/chat-fallback-router/services/routing"
	"github.com/upb/chat-fallback-router/utils"
)

// internalErrorMessage is the error field of every 500 from the chat API
const internalErrorMessage = "Internal server error"

// ChatRouter delivers a conversation to the first model that answers
type ChatRouter interface {
	Route(ctx context.Context, messages []providers.Message, preferredModel string) (*routing.Response, error)
}

// ChatHandler handles POST /api/chat
type ChatHandler struct {
	router ChatRouter
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(router ChatRouter, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		router: router,
		logger: logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	var chatReq models.ChatRequest
	if err := utils.DecodeJSON(r, &chatReq); err != nil {
		logger.Warn("failed to parse chat request", zap.Error(err))
		h.writeInternal(w, logger, err)
		return
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		logger.Warn("chat request validation failed", zap.Error(err))
		h.writeInternal(w, logger, err)
		return
	}

	messages := make([]providers.Message, len(chatReq.Messages))
	for i, m := range chatReq.Messages {
		messages[i] = providers.Message{Role: m.Role, Content: m.Content}
	}

	logger.Debug("routing chat request",
		zap.Int("messages", len(messages)),
		zap.String("preferred_model", chatReq.Model))

	resp, err := h.router.Route(ctx, messages, chatReq.Model)
	if err != nil {
		if services.IsExhaustedError(err) {
			logger.Warn("all candidate models failed",
				zap.Int("status", exhaustedStatus(err)),
				zap.Strings("attempted_models", routing.AttemptedModels(err)),
				zap.Error(err))
			HandleServiceError(w, err, logger)
			return
		}

		logger.Error("chat routing failed", zap.Error(err))
		h.writeInternal(w, logger, err)
		return
	}

	out := models.ChatResponse{
		Content:      resp.Content,
		UsedFallback: resp.UsedFallback,
		UsedModel:    resp.UsedModel,
	}
	if err := utils.WriteJSON(w, http.StatusOK, out); err != nil {
		logger.Error("failed to write chat response", zap.Error(err))
	}
}

// writeInternal reports an unexpected failure with its raw message
func (h *ChatHandler) writeInternal(w http.ResponseWriter, logger *zap.Logger, err error) {
	if err := writeChatError(w, http.StatusInternalServerError, internalErrorMessage, err.Error()); err != nil {
		logger.Error("failed to write chat error response", zap.Error(err))
	}
}

// writeChatError writes the {error, details} body the chat UI expects
func writeChatError(w http.ResponseWriter, status int, message, details string) error {
	return utils.WriteJSON(w, status, models.ChatErrorResponse{
		Error:   message,
		Details: details,
	})
}
