package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/services"
	"github.com/upb/chat-fallback-router/services/providers"
)

const (
	// NoResponsePlaceholder replaces an empty completion
	NoResponsePlaceholder = "No response"

	msgOverloaded  = "All models are temporarily overloaded. Please wait 30 seconds and try again."
	msgUnavailable = "The models are currently unavailable. Try again in a few moments."
	msgUnreachable = "Unable to reach the AI models. Check your connection and try again."
)

// Detail keys set on the exhaustion error
const (
	DetailAttemptedModels = "attempted_models"
	DetailAttempts        = "attempts"
)

// ChatCompleter is the slice of the upstream provider the router needs
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error)
}

// Config holds configuration for the routing service
type Config struct {
	// DefaultModel is used when the caller names no model
	DefaultModel string

	// FallbackModels are tried, in order, after the preferred model
	FallbackModels []string

	// AttemptDelay is the pause before every attempt but the first
	AttemptDelay time.Duration

	// AttemptTimeout bounds a single upstream call
	AttemptTimeout time.Duration

	// RequestDeadline bounds a whole Route call
	RequestDeadline time.Duration

	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the stock model list and timings
func DefaultConfig() Config {
	return Config{
		DefaultModel: "mistralai/mistral-7b-instruct:free",
		FallbackModels: []string{
			"google/gemini-2.0-flash-exp:free",
			"mistralai/mistral-7b-instruct:free",
		},
		AttemptDelay:    500 * time.Millisecond,
		AttemptTimeout:  30 * time.Second,
		RequestDeadline: 90 * time.Second,
		Temperature:     0.7,
		MaxTokens:       4000,
	}
}

// Outcome classifies a single attempt
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeRateLimited      Outcome = "rate_limited"
	OutcomeUpstreamError    Outcome = "upstream_error"
	OutcomeTransportError   Outcome = "transport_error"
	OutcomeDeadlineExceeded Outcome = "deadline_exceeded"
	OutcomeCancelled        Outcome = "cancelled"

	// OutcomeRequestError means the request could not be sent at all, so no
	// other model would fare better
	OutcomeRequestError Outcome = "request_error"
)

// AttemptResult records what happened when one candidate model was tried
type AttemptResult struct {
	Model      string        `json:"model"`
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Message    string        `json:"message,omitempty"`
	RawError   string        `json:"raw_error,omitempty"`
	Content    string        `json:"-"`
	Latency    time.Duration `json:"latency"`
}

// Succeeded reports whether the attempt produced a reply
func (r AttemptResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Attempt is one step of a routing plan
type Attempt struct {
	Model string
	Run   func(ctx context.Context) AttemptResult
}

// Response is the router's successful reply
type Response struct {
	Content      string `json:"content"`
	UsedFallback bool   `json:"usedFallback,omitempty"`
	UsedModel    string `json:"usedModel,omitempty"`

	// Attempts is the full attempt log, winner last
	Attempts []AttemptResult `json:"-"`
}

// Service forwards chat messages upstream, falling back across models.
// It keeps no state between calls and is safe for concurrent use.
type Service struct {
	config Config
	client ChatCompleter
	logger *zap.Logger
}

// NewService creates a new routing service
func NewService(config Config, client ChatCompleter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config: config,
		client: client,
		logger: logger,
	}
}

// Candidates builds the ordered, deduplicated model list. The preferred
// model, or defaultModel when preferred is blank, always comes first.
func Candidates(preferred, defaultModel string, backups ...string) []string {
	first := strings.TrimSpace(preferred)
	if first == "" {
		first = strings.TrimSpace(defaultModel)
	}

	seen := make(map[string]struct{}, len(backups)+1)
	models := make([]string, 0, len(backups)+1)
	for _, m := range append([]string{first}, backups...) {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		models = append(models, m)
	}
	return models
}

// ShortName returns the display form of a model id: the path segment
// after the vendor prefix, or the whole id when there is none.
func ShortName(model string) string {
	parts := strings.Split(model, "/")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return model
}

// Candidates returns the candidate list for a preferred model
func (s *Service) Candidates(preferred string) []string {
	return Candidates(preferred, s.config.DefaultModel, s.config.FallbackModels...)
}

// Plan turns the candidate list into attempts over the given history
func (s *Service) Plan(messages []providers.Message, preferred string) []Attempt {
	models := s.Candidates(preferred)
	plan := make([]Attempt, len(models))
	for i, model := range models {
		plan[i] = Attempt{
			Model: model,
			Run: func(ctx context.Context) AttemptResult {
				return s.try(ctx, model, messages)
			},
		}
	}
	return plan
}

// Route delivers messages through the first candidate model that answers
func (s *Service) Route(ctx context.Context, messages []providers.Message, preferred string) (*Response, error) {
	if len(messages) == 0 {
		return nil, services.ErrEmptyMessages
	}

	routeCtx := ctx
	if s.config.RequestDeadline > 0 {
		var cancel context.CancelFunc
		routeCtx, cancel = context.WithTimeout(ctx, s.config.RequestDeadline)
		defer cancel()
	}

	return s.Execute(routeCtx, s.Plan(messages, preferred))
}

// Execute walks a plan in order and returns on the first success. Failed
// attempts move on to the next step after the configured delay.
func (s *Service) Execute(ctx context.Context, plan []Attempt) (*Response, error) {
	results := make([]AttemptResult, 0, len(plan))

	for i, attempt := range plan {
		if i > 0 {
			if err := s.wait(ctx, s.config.AttemptDelay); err != nil {
				return nil, s.interrupted(ctx, results)
			}
		}

		s.logger.Debug("attempting model", zap.String("model", attempt.Model), zap.Int("attempt", i+1))
		result := attempt.Run(ctx)
		if result.Model == "" {
			result.Model = attempt.Model
		}
		results = append(results, result)

		if result.Succeeded() {
			resp := &Response{
				Content:  result.Content,
				Attempts: results,
			}
			if i > 0 {
				resp.UsedFallback = true
				resp.UsedModel = attempt.Model
				s.logger.Info("served by fallback model",
					zap.String("model", attempt.Model),
					zap.Int("attempts", len(results)),
				)
			} else {
				s.logger.Info("served by preferred model", zap.String("model", attempt.Model))
			}
			return resp, nil
		}

		s.logFailure(result)

		if result.Outcome == OutcomeRequestError {
			return nil, services.NewDomainError(services.ErrorTypeInternal,
				"upstream request could not be sent", errors.New(result.Message)).
				WithDetail(DetailAttempts, results)
		}
		if ctx.Err() != nil {
			return nil, s.interrupted(ctx, results)
		}
	}

	return nil, exhausted(results)
}

// try issues one upstream request and classifies its outcome
func (s *Service) try(ctx context.Context, model string, messages []providers.Message) AttemptResult {
	attemptCtx := ctx
	if s.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.config.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.ChatCompletion(attemptCtx, &providers.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	result := AttemptResult{Model: model, Latency: time.Since(start)}

	if err == nil {
		content := resp.FirstContent()
		if content == "" {
			content = NoResponsePlaceholder
		}
		result.Outcome = OutcomeSuccess
		result.StatusCode = http.StatusOK
		result.Content = Sanitize(content)
		return result
	}

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		result.Outcome = OutcomeCancelled
		result.Message = ctx.Err().Error()
		return result
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Outcome = OutcomeDeadlineExceeded
		result.StatusCode = http.StatusGatewayTimeout
		result.Message = "request deadline exceeded"
		return result
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		result.Outcome = OutcomeTransportError
		result.StatusCode = http.StatusInternalServerError
		result.Message = fmt.Sprintf("no response within %s", s.config.AttemptTimeout)
		return result
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) && !providers.IsRetryable(err) {
		result.Outcome = OutcomeRequestError
		result.Message = err.Error()
		return result
	}

	status := providers.StatusCode(err)
	if status == 0 {
		result.Outcome = OutcomeTransportError
		result.StatusCode = http.StatusInternalServerError
		result.Message = err.Error()
		return result
	}

	result.StatusCode = status
	result.Message = provErr.Message
	result.RawError = provErr.Body
	switch status {
	case http.StatusNotFound:
		result.Outcome = OutcomeNotFound
	case http.StatusTooManyRequests:
		result.Outcome = OutcomeRateLimited
	default:
		result.Outcome = OutcomeUpstreamError
	}
	return result
}

func (s *Service) logFailure(result AttemptResult) {
	fields := []zap.Field{
		zap.String("model", result.Model),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("status", result.StatusCode),
		zap.String("message", result.Message),
		zap.Duration("latency", result.Latency),
	}

	switch result.Outcome {
	case OutcomeNotFound:
		s.logger.Debug("model unavailable, trying next", fields...)
	case OutcomeRateLimited:
		s.logger.Warn("model rate limited, trying next", fields...)
	case OutcomeCancelled:
		s.logger.Debug("attempt abandoned", fields...)
	default:
		s.logger.Error("model attempt failed", append(fields, zap.String("raw_error", result.RawError))...)
	}
}

// wait pauses for d unless ctx finishes first
func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// interrupted reports why routing stopped early. A cancelled caller gets
// an internal error; an expired deadline ends as exhaustion.
func (s *Service) interrupted(ctx context.Context, results []AttemptResult) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		s.logger.Info("routing cancelled by caller", zap.Int("attempts", len(results)))
		return services.NewDomainError(services.ErrorTypeInternal, "request cancelled", ctx.Err())
	}

	s.logger.Warn("routing deadline exceeded", zap.Int("attempts", len(results)))
	return exhausted(results)
}

// exhausted builds the single user facing error once every candidate failed
func exhausted(results []AttemptResult) error {
	status := http.StatusServiceUnavailable
	lastMessage := "no model was attempted"
	if len(results) > 0 {
		last := results[len(results)-1]
		if last.StatusCode != 0 {
			status = last.StatusCode
		}
		lastMessage = last.Message
	}

	var message string
	switch status {
	case http.StatusTooManyRequests:
		message = msgOverloaded
	case http.StatusNotFound:
		message = msgUnavailable
	default:
		message = msgUnreachable
	}

	attempted := make([]string, len(results))
	for i, r := range results {
		attempted[i] = ShortName(r.Model)
	}

	return services.NewDomainError(
		services.ErrorTypeExhausted,
		message,
		fmt.Errorf("%d model(s) failed, last: %s", len(results), lastMessage),
	).
		WithStatus(status).
		WithDetail(DetailAttemptedModels, attempted).
		WithDetail(DetailAttempts, results)
}

// AttemptedModels returns the short model names recorded on an exhaustion error
func AttemptedModels(err error) []string {
	models, _ := services.GetErrorDetails(err)[DetailAttemptedModels].([]string)
	return models
}

// DescribeAttempts renders attempted models for the client
func DescribeAttempts(models []string) string {
	return "Models tried: " + strings.Join(models, ", ")
}
