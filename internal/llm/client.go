// Package llm wraps the OpenAI-compatible chat-completion API the analysis
// stages call. Any provider exposing the same surface (Groq, DeepSeek) works
// by pointing the base URL at it.
package llm

import (
	"context"
	"encoding/json"
)

// Client produces structured JSON from a prompt pair.
type Client interface {
	ExtractJSON(ctx context.Context, system, prompt string) (json.RawMessage, error)
}
