package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LLMProvider selects the inference backend.
type LLMProvider string

// LLM providers.
const (
	// LLMProviderOpenAI is any OpenAI-compatible chat-completions endpoint.
	LLMProviderOpenAI LLMProvider = "openai"

	// LLMProviderNone disables inference; every stage uses its fallback.
	LLMProviderNone LLMProvider = "none"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir   string
	Verbose   bool
	Gmail     GmailConfig
	LLM       LLMConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
}

// GmailConfig configures the mailbox provider.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	// User is the mailbox owner, "me" for the authorised account.
	User         string
	DefaultQuery string
	DigestQuery  string
	// RequestsPerSecond and Burst feed the provider token bucket.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// LLMConfig configures the inference service.
type LLMConfig struct {
	Provider LLMProvider
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// IsConfigured returns true if inference is enabled.
func (c LLMConfig) IsConfigured() bool {
	return c.Provider != LLMProviderNone && c.Provider != ""
}

// SyncConfig tunes the sync coordinator.
type SyncConfig struct {
	// BatchSize is the number of messages processed concurrently per batch.
	BatchSize int
	// Parallelism bounds concurrent workers within a batch.
	Parallelism int
	// RequestsPerMinute is the inference budget shared by all workers.
	RequestsPerMinute int
	// BatchPause is the minimum gap between batches.
	BatchPause time.Duration
	MaxResults int
	// SummaryMinWords is the word count a body must exceed to be summarised.
	SummaryMinWords int
	// BodyPromptChars bounds the body prefix sent for classification.
	BodyPromptChars int
	// MaxRetries is how often transient per-message failures are retried after a batch.
	MaxRetries     int
	MessageTimeout time.Duration
}

// RedisConfig configures the optional cross-process message claims.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ClaimTTL time.Duration
}

// IsConfigured returns true if a redis address is set.
func (c RedisConfig) IsConfigured() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// HTTPConfig configures the status API.
type HTTPConfig struct {
	Addr string
}

// DefaultSyncConfig returns the default coordinator tuning.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchSize:         5,
		Parallelism:       5,
		RequestsPerMinute: 60,
		BatchPause:        time.Second,
		MaxResults:        DefaultSyncMaxResults,
		SummaryMinWords:   50,
		BodyPromptChars:   1000,
		MaxRetries:        1,
		MessageTimeout:    60 * time.Second,
	}
}

// Validate checks settings needed by every command.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case LLMProviderNone:
	case LLMProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: llm.api_key is required for provider %q (or set llm.provider = \"none\")",
				ErrConfigInvalid, c.LLM.Provider)
		}
		if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
			return fmt.Errorf("%w: llm.base_url: %v", ErrConfigInvalid, err)
		}
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrConfigInvalid, c.LLM.Provider)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("%w: sync.batch_size must be positive", ErrConfigInvalid)
	}
	if c.Sync.Parallelism <= 0 {
		return fmt.Errorf("%w: sync.parallelism must be positive", ErrConfigInvalid)
	}
	if c.Sync.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: sync.requests_per_minute must be positive", ErrConfigInvalid)
	}
	return nil
}

// ValidateMailbox checks settings needed to reach the mailbox provider.
func (c *Config) ValidateMailbox() error {
	if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
		return fmt.Errorf("%w: gmail.client_id and gmail.client_secret are required", ErrConfigInvalid)
	}
	return nil
}
