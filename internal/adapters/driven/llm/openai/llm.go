// Package openai provides an LLM service adapter for OpenAI-compatible chat-completions APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 60 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// LLMService provides LLM operations using an OpenAI-compatible API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	cb      *gobreaker.CircuitBreaker
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat requests structured output.
type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &LLMService{
		client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		cb:      gobreaker.NewCircuitBreaker(breakerSettings("llm-api")),
	}, nil
}

// breakerSettings trips after five consecutive failures or a 60% failure
// ratio over at least ten requests, and probes again after 30s.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// Client errors and contract violations do not count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.execute(ctx, messages, opts, nil)
}

// ChatJSON conducts a conversation constrained to a strict JSON schema.
func (s *LLMService) ChatJSON(
	ctx context.Context,
	messages []driven.ChatMessage,
	schema driven.JSONSchema,
	opts driven.ChatOptions,
) (string, error) {
	if schema.Name == "" || schema.Schema == nil {
		return "", fmt.Errorf("openai: %w: schema name and body are required", domain.ErrInvalidInput)
	}
	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchemaSpec{
			Name:   schema.Name,
			Strict: true,
			Schema: schema.Schema,
		},
	}
	return s.execute(ctx, messages, opts, format)
}

// execute runs a completion inside the circuit breaker.
func (s *LLMService) execute(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	format *responseFormat,
) (string, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.chatCompletion(ctx, messages, opts, format)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("openai: %w: %w", domain.ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// chatCompletion is the internal implementation for Chat and ChatJSON.
func (s *LLMService) chatCompletion(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	format *responseFormat,
) (string, error) {
	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := chatCompletionRequest{
		Model:          s.model,
		Messages:       chatMessages,
		ResponseFormat: format,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", wrapTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", domain.ErrTransient, err)
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return "", err
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w: %w", domain.ErrContractViolation, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: no response choices returned", domain.ErrContractViolation)
	}

	choice := chatResp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("openai: %w: model refused: %s", domain.ErrContractViolation, choice.Message.Refusal)
	}
	if format != nil && choice.FinishReason == "length" {
		return "", fmt.Errorf("openai: %w: structured output truncated", domain.ErrContractViolation)
	}
	return choice.Message.Content, nil
}

// statusError maps non-2xx responses onto the error taxonomy.
func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("openai: %w (status %d)", domain.ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("openai: %w (status %d): %s", domain.ErrTransient, code, string(body))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("openai: %w (status %d)", domain.ErrConfigInvalid, code)
	default:
		return fmt.Errorf("openai error (status %d): %s", code, string(body))
	}
}

// wrapTransport marks timeouts and connection failures as transient.
func wrapTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("send request: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("send request: %w: %w", domain.ErrTransient, err)
	}
	return fmt.Errorf("send request: %w", err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// BreakerState returns the circuit breaker state name.
func (s *LLMService) BreakerState() string {
	return s.cb.State().String()
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
