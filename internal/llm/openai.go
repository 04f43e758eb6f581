package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"web-analysis-platform/internal/telemetry"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	// Rate-limit responses are retried with exponential backoff; every other
	// failure is returned to the caller, which fails the pipeline fast.
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

// ErrAPIKeyNotSet is returned when no credential is configured.
var ErrAPIKeyNotSet = errors.New("LLM API key not set")

// OpenAI is the chat-completion Client used in production.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds a client. baseURL may be empty for the default endpoint,
// or point at any OpenAI-compatible provider.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = defaultModel
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

// ExtractJSON sends the prompt pair and parses the completion as a JSON
// object, tolerating markdown code fences around the payload.
func (c *OpenAI) ExtractJSON(ctx context.Context, system, prompt string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.completeWithRetry(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	payload, err := ParseJSONResponse(content)
	if err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	return payload, nil
}

func (c *OpenAI) completeWithRetry(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		telemetry.LLMCalls.Inc()
		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0.7),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
			},
		})
		if err != nil {
			lastErr = err
			if isRateLimit(err) {
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// ParseJSONResponse extracts the JSON object from a completion, stripping a
// ```json fence or surrounding prose if the model added any.
func ParseJSONResponse(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			content = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion (first 120 chars: %.120s)", content)
	}
	candidate := content[start : end+1]

	var check json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &check); err != nil {
		return nil, fmt.Errorf("invalid JSON in completion: %w", err)
	}
	return json.RawMessage(candidate), nil
}

var _ Client = (*OpenAI)(nil)
