// Package config resolves the application configuration from defaults,
// the TOML file in the data directory and GUESTMAIL_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "GUESTMAIL"

// FileName is the configuration file inside the data directory.
const FileName = "config.toml"

// DefaultDir returns ~/.guestmail, or $GUESTMAIL_HOME when set.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home dir: %w", err)
	}
	return filepath.Join(home, ".guestmail"), nil
}

// Load reads the configuration rooted at dir. An empty dir means DefaultDir.
// A missing config file is not an error.
func Load(dir string) (*domain.Config, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, FileName))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigInvalid, FileName, err)
		}
	}

	cfg := &domain.Config{
		DataDir: dir,
		Verbose: v.GetBool("verbose"),
		Gmail: domain.GmailConfig{
			ClientID:          v.GetString("gmail.client_id"),
			ClientSecret:      v.GetString("gmail.client_secret"),
			User:              v.GetString("gmail.user"),
			DefaultQuery:      v.GetString("gmail.default_query"),
			DigestQuery:       v.GetString("gmail.digest_query"),
			RequestsPerSecond: v.GetFloat64("gmail.requests_per_second"),
			Burst:             v.GetInt("gmail.burst"),
			Timeout:           v.GetDuration("gmail.timeout"),
		},
		LLM: domain.LLMConfig{
			Provider: domain.LLMProvider(strings.ToLower(v.GetString("llm.provider"))),
			BaseURL:  v.GetString("llm.base_url"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
			Timeout:  v.GetDuration("llm.timeout"),
		},
		Sync: domain.SyncConfig{
			BatchSize:         v.GetInt("sync.batch_size"),
			Parallelism:       v.GetInt("sync.parallelism"),
			RequestsPerMinute: v.GetInt("sync.requests_per_minute"),
			BatchPause:        v.GetDuration("sync.batch_pause"),
			MaxResults:        domain.ClampMaxResults(v.GetInt("sync.max_results"), domain.DefaultSyncMaxResults),
			SummaryMinWords:   v.GetInt("sync.summary_min_words"),
			BodyPromptChars:   v.GetInt("sync.body_prompt_chars"),
			MaxRetries:        v.GetInt("sync.max_retries"),
			MessageTimeout:    v.GetDuration("sync.message_timeout"),
		},
		Scheduler: domain.SchedulerConfig{
			Enabled: v.GetBool("scheduler.enabled"),
			TaskConfigs: map[string]domain.TaskConfig{
				domain.TaskIDMailboxSync: {
					Enabled:  v.GetBool("scheduler.mailbox_sync.enabled"),
					Interval: v.GetDuration("scheduler.mailbox_sync.interval"),
				},
				domain.TaskIDDigestSync: {
					Enabled:  v.GetBool("scheduler.digest_sync.enabled"),
					Interval: v.GetDuration("scheduler.digest_sync.interval"),
				},
			},
		},
		Redis: domain.RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			ClaimTTL: v.GetDuration("redis.claim_ttl"),
		},
		HTTP: domain.HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	syncDefaults := domain.DefaultSyncConfig()
	sched := domain.DefaultSchedulerConfig()

	v.SetDefault("verbose", false)

	v.SetDefault("gmail.user", "me")
	v.SetDefault("gmail.default_query", domain.DefaultSyncQuery)
	v.SetDefault("gmail.digest_query", domain.DefaultDigestQuery)
	v.SetDefault("gmail.requests_per_second", 10.0)
	v.SetDefault("gmail.burst", 5)
	v.SetDefault("gmail.timeout", "30s")

	v.SetDefault("llm.provider", string(domain.LLMProviderOpenAI))
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("sync.batch_size", syncDefaults.BatchSize)
	v.SetDefault("sync.parallelism", syncDefaults.Parallelism)
	v.SetDefault("sync.requests_per_minute", syncDefaults.RequestsPerMinute)
	v.SetDefault("sync.batch_pause", syncDefaults.BatchPause.String())
	v.SetDefault("sync.max_results", syncDefaults.MaxResults)
	v.SetDefault("sync.summary_min_words", syncDefaults.SummaryMinWords)
	v.SetDefault("sync.body_prompt_chars", syncDefaults.BodyPromptChars)
	v.SetDefault("sync.max_retries", syncDefaults.MaxRetries)
	v.SetDefault("sync.message_timeout", syncDefaults.MessageTimeout.String())

	v.SetDefault("scheduler.enabled", sched.Enabled)
	for key, id := range map[string]string{
		"mailbox_sync": domain.TaskIDMailboxSync,
		"digest_sync":  domain.TaskIDDigestSync,
	} {
		task := sched.GetTaskConfig(id)
		v.SetDefault("scheduler."+key+".enabled", task.Enabled)
		v.SetDefault("scheduler."+key+".interval", task.Interval.String())
	}

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.claim_ttl", "1h")
	v.SetDefault("http.addr", "127.0.0.1:8787")
}

// Redact returns a copy of cfg with secrets masked, for display.
func Redact(cfg domain.Config) domain.Config {
	masked := cfg
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "****"
	}
	if masked.Gmail.ClientSecret != "" {
		masked.Gmail.ClientSecret = "****"
	}
	if masked.Redis.Password != "" {
		masked.Redis.Password = "****"
	}
	return masked
}
