package models

import (
	"time"

	"github.com/google/uuid"
)

// titleLength is how many characters of the first message make a title
const titleLength = 50

// DefaultConversationTitle is used when a conversation has no messages yet
const DefaultConversationTitle = "New conversation"

// Conversation is a saved chat history
type Conversation struct {
	ID       uuid.UUID     `json:"id"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
	Date     time.Time     `json:"date"`
	Model    string        `json:"model,omitempty"`
}

// ConversationInput is the body of conversation create and update calls
type ConversationInput struct {
	Title    string        `json:"title,omitempty" validate:"omitempty,max=200"`
	Messages []ChatMessage `json:"messages" validate:"dive"`
	Model    string        `json:"model,omitempty" validate:"omitempty,max=200"`
}

// NewConversation creates a Conversation with a fresh id and date. A blank
// title is derived from the first message.
func NewConversation(title string, messages []ChatMessage, model string) *Conversation {
	if title == "" {
		title = DeriveTitle(messages)
	}
	return &Conversation{
		ID:       uuid.New(),
		Title:    title,
		Messages: messages,
		Date:     time.Now().UTC(),
		Model:    model,
	}
}

// DeriveTitle returns the first 50 characters of the first message,
// followed by "..." when it was cut.
func DeriveTitle(messages []ChatMessage) string {
	if len(messages) == 0 || messages[0].Content == "" {
		return DefaultConversationTitle
	}

	runes := []rune(messages[0].Content)
	if len(runes) <= titleLength {
		return string(runes)
	}
	return string(runes[:titleLength]) + "..."
}

// Clone returns a deep copy
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Messages != nil {
		clone.Messages = make([]ChatMessage, len(c.Messages))
		copy(clone.Messages, c.Messages)
	}
	return &clone
}
