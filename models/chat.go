package models

// Chat roles accepted from clients
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Model    string        `json:"model,omitempty" validate:"omitempty,max=200"`
}

// ChatResponse is the successful reply of POST /api/chat
type ChatResponse struct {
	Content      string `json:"content"`
	UsedFallback bool   `json:"usedFallback,omitempty"`
	UsedModel    string `json:"usedModel,omitempty"`
}

// ChatErrorResponse is returned when no model could answer
type ChatErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// ModelsResponse describes the configured candidate models
type ModelsResponse struct {
	Default    string   `json:"default"`
	Fallbacks  []string `json:"fallbacks"`
	Candidates []string `json:"candidates,omitempty"`
}
