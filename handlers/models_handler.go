package handlers

import (
	"net/http"

	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/services/routing"
	"github.com/upb/chat-fallback-router/utils"
)

// ModelsHandler reports the configured model candidates
type ModelsHandler struct {
	defaultModel string
	fallbacks    []string
}

// NewModelsHandler creates a new ModelsHandler
func NewModelsHandler(defaultModel string, fallbacks []string) *ModelsHandler {
	return &ModelsHandler{
		defaultModel: defaultModel,
		fallbacks:    fallbacks,
	}
}

// HandleListModels handles GET /api/models. An optional ?model= query
// previews the candidate order for that preferred model.
func (h *ModelsHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	fallbacks := h.fallbacks
	if fallbacks == nil {
		fallbacks = []string{}
	}

	_ = utils.WriteJSON(w, http.StatusOK, models.ModelsResponse{
		Default:    h.defaultModel,
		Fallbacks:  fallbacks,
		Candidates: routing.Candidates(r.URL.Query().Get("model"), h.defaultModel, h.fallbacks...),
	})
}
