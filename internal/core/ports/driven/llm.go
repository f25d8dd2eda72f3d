// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides chat-completion inference.
// This is an optional service - when nil, classification, summaries and
// query parsing degrade to their keyword fallbacks.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Any OpenAI-compatible endpoint (Azure OpenAI, Ollama /v1, LM Studio)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatJSON conducts a conversation constrained to a strict JSON schema.
	// The returned string is the raw JSON document produced by the model.
	ChatJSON(ctx context.Context, messages []ChatMessage, schema JSONSchema, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// JSONSchema is a named response contract for structured output.
// Schema is a JSON Schema object; strict mode requires every property to be
// listed in "required" and "additionalProperties" to be false.
type JSONSchema struct {
	Name   string
	Schema map[string]any
}
