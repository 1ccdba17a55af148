package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/internal/observability"
	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/utils"
)

// ConversationStore defines the conversation operations the API exposes
type ConversationStore interface {
	Create(ctx context.Context, input models.ConversationInput) (*models.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context) ([]*models.Conversation, error)
	Update(ctx context.Context, id uuid.UUID, input models.ConversationInput) (*models.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConversationHandler handles /api/conversations
type ConversationHandler struct {
	store  ConversationStore
	logger *zap.Logger
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(store ConversationStore, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  store,
		logger: logger,
	}
}

// HandleList handles GET /api/conversations
func (h *ConversationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	convs, err := h.store.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}
	_ = utils.WriteOK(w, convs)
}

// HandleCreate handles POST /api/conversations
func (h *ConversationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	conv, err := h.store.Create(r.Context(), input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("conversation created", zap.String("conversation_id", conv.ID.String()))
	_ = utils.WriteCreated(w, conv)
}

// HandleGet handles GET /api/conversations/{id}
func (h *ConversationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	id, ok := h.parseID(w, r, logger)
	if !ok {
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}
	_ = utils.WriteOK(w, conv)
}

// HandleUpdate handles PUT /api/conversations/{id}
func (h *ConversationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	id, ok := h.parseID(w, r, logger)
	if !ok {
		return
	}

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	conv, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}
	_ = utils.WriteOK(w, conv)
}

// HandleDelete handles DELETE /api/conversations/{id}
func (h *ConversationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	id, ok := h.parseID(w, r, logger)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("conversation deleted", zap.String("conversation_id", id.String()))
	utils.WriteNoContent(w)
}

func (h *ConversationHandler) parseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (h *ConversationHandler) decodeInput(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.ConversationInput, bool) {
	var input models.ConversationInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		logger.Warn("failed to parse conversation body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return input, false
	}
	if err := utils.ValidateStruct(&input); err != nil {
		logger.Warn("conversation validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return input, false
	}
	return input, true
}
