package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Conversation tests
func TestNewConversation(t *testing.T) {
	messages := []ChatMessage{{Role: RoleUser, Content: "How do goroutines work?"}}

	conv := NewConversation("", messages, "mistralai/mistral-7b-instruct:free")

	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.Equal(t, "How do goroutines work?", conv.Title)
	assert.Equal(t, messages, conv.Messages)
	assert.Equal(t, "mistralai/mistral-7b-instruct:free", conv.Model)
	assert.False(t, conv.Date.IsZero())
}

func TestNewConversation_ExplicitTitle(t *testing.T) {
	conv := NewConversation("Pinned", []ChatMessage{{Role: RoleUser, Content: "hi"}}, "")
	assert.Equal(t, "Pinned", conv.Title)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []ChatMessage
		want     string
	}{
		{"no messages", nil, DefaultConversationTitle},
		{"empty first message", []ChatMessage{{Role: RoleUser}}, DefaultConversationTitle},
		{"short", []ChatMessage{{Role: RoleUser, Content: "hello"}}, "hello"},
		{"exactly fifty", []ChatMessage{{Role: RoleUser, Content: strings.Repeat("a", 50)}}, strings.Repeat("a", 50)},
		{"long", []ChatMessage{{Role: RoleUser, Content: strings.Repeat("b", 51)}}, strings.Repeat("b", 50) + "..."},
		{"multibyte", []ChatMessage{{Role: RoleUser, Content: strings.Repeat("é", 60)}}, strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.messages))
		})
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation("", []ChatMessage{{Role: RoleUser, Content: "original"}}, "")

	clone := conv.Clone()
	clone.Messages[0].Content = "changed"
	clone.Title = "changed"

	assert.Equal(t, "original", conv.Messages[0].Content)
	assert.Equal(t, "original", conv.Title)

	var nilConv *Conversation
	assert.Nil(t, nilConv.Clone())
}

func TestChatResponse_JSONMarshaling(t *testing.T) {
	t.Run("preferred model omits fallback fields", func(t *testing.T) {
		data, err := json.Marshal(ChatResponse{Content: "hi"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":"hi"}`, string(data))
	})

	t.Run("fallback fields are camel case", func(t *testing.T) {
		data, err := json.Marshal(ChatResponse{Content: "hi", UsedFallback: true, UsedModel: "google/gemini-2.0-flash-exp:free"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":"hi","usedFallback":true,"usedModel":"google/gemini-2.0-flash-exp:free"}`, string(data))
	})
}
