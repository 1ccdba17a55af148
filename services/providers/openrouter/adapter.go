package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/chat-fallback-router/services/providers"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// maxResponseSize caps how much of an upstream body is read
	maxResponseSize = 10 * 1024 * 1024

	// DefaultErrorMessage is used when an error body carries no readable message
	DefaultErrorMessage = "Error communicating with OpenRouter"
)

// Adapter implements the Provider interface for OpenRouter's
// OpenAI-compatible chat completions API.
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

var _ providers.Provider = (*Adapter)(nil)

// NewAdapter creates a new OpenRouter adapter
func NewAdapter(config providers.ProviderConfig) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "openrouter"
}

// ChatCompletion performs one chat completion request. It never retries;
// moving on to another model is the caller's decision.
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	reqBody, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeHTTPError, "HTTP request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeReadError, "Failed to read response", 0, true, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var orResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		// An undecodable success body is treated like a transport failure
		return nil, providers.NewProviderError(a.Name(), providers.CodeUnmarshalError, "Failed to unmarshal response", 0, true, err)
	}

	return a.convertToUnifiedResponse(&orResp, time.Since(startTime)), nil
}

// IsAvailable checks if the provider is currently available
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	return resp.StatusCode == http.StatusOK
}

func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
}

// buildRequest converts the unified request to the wire format
func (a *Adapter) buildRequest(req *providers.ChatRequest) *ChatCompletionRequest {
	orReq := &ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]Message, len(req.Messages)),
		Temperature: req.Temperature,
	}

	for i, msg := range req.Messages {
		orReq.Messages[i] = Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	if req.MaxTokens > 0 {
		orReq.MaxTokens = req.MaxTokens
	}

	return orReq
}

// convertToUnifiedResponse converts an OpenRouter response to unified format
func (a *Adapter) convertToUnifiedResponse(orResp *ChatCompletionResponse, latency time.Duration) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:       orResp.ID,
		Model:    orResp.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(orResp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     orResp.Usage.PromptTokens,
			CompletionTokens: orResp.Usage.CompletionTokens,
			TotalTokens:      orResp.Usage.TotalTokens,
		},
		Latency: latency,
		Created: time.Unix(orResp.Created, 0),
	}

	for i, choice := range orResp.Choices {
		resp.Choices[i] = providers.Choice{
			Index:        choice.Index,
			FinishReason: choice.FinishReason,
		}
		if choice.Message != nil {
			resp.Choices[i].Message = providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			}
		}
	}

	return resp
}

// handleErrorResponse turns a non-2xx reply into a ProviderError. The
// message prefers error.metadata.raw, then error.message, then a default.
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var code, message string
	switch statusCode {
	case http.StatusNotFound:
		code, message = providers.CodeNotFound, "Model unavailable"
	case http.StatusTooManyRequests:
		code, message = providers.CodeRateLimited, "Rate limit reached"
	default:
		code, message = providers.CodeUpstreamError, ExtractErrorMessage(body)
	}

	provErr := providers.NewProviderError(
		a.Name(),
		code,
		message,
		statusCode,
		true,
		fmt.Errorf("upstream returned HTTP %d", statusCode),
	)
	provErr.Body = string(body)
	return provErr
}

// ExtractErrorMessage pulls a human readable message out of an OpenRouter
// error body, falling back to DefaultErrorMessage.
func ExtractErrorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == nil {
		return DefaultErrorMessage
	}

	if errResp.Error.Metadata != nil {
		if raw := rawText(errResp.Error.Metadata.Raw); raw != "" {
			return raw
		}
	}
	if errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return DefaultErrorMessage
}

// rawText returns a JSON string's value, or the literal JSON for other kinds
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// OpenRouter wire types

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message"`
	FinishReason string   `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ErrorResponse struct {
	Error *Error `json:"error"`
}

type Error struct {
	Message  string          `json:"message"`
	Code     json.RawMessage `json:"code,omitempty"`
	Metadata *ErrorMetadata  `json:"metadata,omitempty"`
}

type ErrorMetadata struct {
	Raw          json.RawMessage `json:"raw,omitempty"`
	ProviderName string          `json:"provider_name,omitempty"`
}
