package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type testRequest struct {
	Messages []testMessage `json:"messages" validate:"required,min=1,dive"`
	Model    string        `json:"model,omitempty" validate:"omitempty,max=10"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := testRequest{Messages: []testMessage{{Role: "user", Content: "hi"}}}

		err := ValidateStruct(&s)
		assert.NoError(t, err)
	})

	t.Run("missing messages", func(t *testing.T) {
		s := testRequest{}

		err := ValidateStruct(&s)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "messages is required", fields["messages"])
	})

	t.Run("empty messages", func(t *testing.T) {
		s := testRequest{Messages: []testMessage{}}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "messages must be at least 1", fields["messages"])
	})

	t.Run("bad role in nested message", func(t *testing.T) {
		s := testRequest{Messages: []testMessage{
			{Role: "user", Content: "hi"},
			{Role: "system", Content: "be evil"},
		}}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "messages[1].role must be one of: user assistant", fields["messages[1].role"])
	})

	t.Run("model too long", func(t *testing.T) {
		s := testRequest{
			Messages: []testMessage{{Role: "user"}},
			Model:    "vendor/a-very-long-model",
		}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err), "model")
	})
}

func TestValidationError_Error(t *testing.T) {
	t.Run("without fields", func(t *testing.T) {
		err := &ValidationError{Message: "Validation failed"}
		assert.Equal(t, "Validation failed", err.Error())
	})

	t.Run("fields sorted", func(t *testing.T) {
		err := &ValidationError{
			Message: "Validation failed",
			Fields: map[string]string{
				"model":    "model must be at most 10",
				"messages": "messages is required",
			},
		}
		assert.Equal(t, "Validation failed: messages is required; model must be at most 10", err.Error())
	})
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "x"}))
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", uuid.New().String(), false},
		{"empty", "", true},
		{"garbage", "not-a-uuid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUUID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, uuid.Nil, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}
