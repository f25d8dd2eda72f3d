package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/guestmail/internal/adapters/driven/config"
	"github.com/custodia-labs/guestmail/internal/adapters/driven/config/file"
	redisdedup "github.com/custodia-labs/guestmail/internal/adapters/driven/dedup/redis"
	"github.com/custodia-labs/guestmail/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/guestmail/internal/adapters/driven/secrets"
	"github.com/custodia-labs/guestmail/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/guestmail/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/guestmail/internal/adapters/driving/cli"
	"github.com/custodia-labs/guestmail/internal/connectors/google"
	"github.com/custodia-labs/guestmail/internal/connectors/google/gmail"
	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/services"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 2 * time.Second

// app holds the wired services and what must be closed on exit.
type app struct {
	services cli.Services
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// wire builds every service. Only a failure to resolve the data directory
// or open the database is fatal; anything else leaves the pipeline
// unconfigured so the config and auth commands can repair it.
func wire(ctx context.Context) (*app, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return nil, err
	}

	a := &app{}

	var configStore driven.ConfigStore
	if fs, err := file.NewConfigStore(dir); err != nil {
		logger.Warn("config store unavailable, changes will not persist: %v", err)
		configStore = memory.NewConfigStore()
	} else {
		configStore = fs
	}
	a.services.Config = configStore

	cfg, cfgErr := config.Load(dir)
	if cfgErr != nil {
		a.services.PipelineErr = cfgErr
		cfg = &domain.Config{DataDir: dir}
	}
	logger.SetVerbose(cfg.Verbose)
	logger.Debug("config: %+v", config.Redact(*cfg))

	var secretStore driven.SecretStore
	if s, err := secrets.Open(dir); err != nil {
		logger.Warn("keyring unavailable: %v", err)
	} else {
		secretStore = s
		a.services.Secrets = s
	}

	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	var mailbox driven.MailboxClient
	if secretStore != nil {
		tokens := google.NewTokenStore(secretStore)
		a.services.Auth = &gmailAuth{cfg: cfg.Gmail, tokens: tokens}
		mailbox = openMailbox(ctx, cfg.Gmail, tokens)
	} else {
		mailbox = gmail.Unavailable(errors.New("keyring unavailable, no stored token"))
	}

	inference := services.NewInference(openLLM(cfg.LLM, secretStore), nil, cfg.Sync.RequestsPerMinute)
	inference.SetTimeout(cfg.LLM.Timeout)
	if prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts")); err != nil {
		logger.Warn("prompt store unavailable, using built-in prompts: %v", err)
	} else {
		inference.SetPromptStore(prompts)
	}

	summarizer := services.NewSummarizer(inference, cfg.Sync.SummaryMinWords)
	parser := services.NewQueryParser(inference)

	a.services.Inbox = services.NewInboxService(services.InboxDeps{
		Categorization: store.CategorizationStore(),
		Summaries:      store.SummaryStore(),
		Unsubscribes:   store.UnsubscribeStore(),
		Bookings:       store.BookingStore(),
		Digests:        store.DigestStore(),
		Mailbox:        mailbox,
		Parser:         parser,
		Summarizer:     summarizer,
	})

	if a.services.PipelineErr != nil {
		return a, nil
	}

	deduper, closeDeduper := openDeduper(ctx, cfg.Redis)
	if closeDeduper != nil {
		a.closers = append(a.closers, closeDeduper)
	}

	coordinator, err := services.NewSyncCoordinator(services.SyncDeps{
		Mailbox:        mailbox,
		Categorization: store.CategorizationStore(),
		Summaries:      store.SummaryStore(),
		Unsubscribes:   store.UnsubscribeStore(),
		Bookings:       store.BookingStore(),
		Digests:        store.DigestStore(),
		Runs:           store.SyncRunStore(),
		Deduper:        deduper,
		Classifier:     services.NewClassifier(inference, cfg.Sync.BodyPromptChars),
		Summarizer:     summarizer,
		Detector:       services.NewUnsubscribeDetector(),
		Extractor: services.NewCompositeExtractor(
			services.NewDigestExtractor(),
			services.NewBookingExtractor(inference),
		),
	}, cfg.Sync)
	if err != nil {
		a.services.PipelineErr = err
		return a, nil
	}
	coordinator.SetQueries(cfg.Gmail.DefaultQuery, cfg.Gmail.DigestQuery)
	coordinator.SetClaimTTL(cfg.Redis.ClaimTTL)

	a.services.Sync = coordinator
	a.services.Scheduler = services.NewScheduler(cfg.Scheduler, store.SchedulerStore(), coordinator)
	a.services.HTTPAddr = cfg.HTTP.Addr
	return a, nil
}

// openLLM returns the inference client, or nil when none is configured.
// A nil client makes every stage use its heuristic fallback.
func openLLM(cfg domain.LLMConfig, secretStore driven.SecretStore) driven.LLMService {
	if cfg.Provider == domain.LLMProviderNone {
		return nil
	}
	key := resolveAPIKey(cfg.APIKey, secretStore)
	if key == "" {
		logger.Info("no inference API key configured, using heuristics")
		return nil
	}
	llm, err := openai.NewLLMService(openai.LLMConfig{
		APIKey:  key,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		logger.Warn("inference unavailable, using heuristics: %v", err)
		return nil
	}
	return llm
}

// resolveAPIKey prefers the configured key over the keyring.
func resolveAPIKey(configured string, secretStore driven.SecretStore) string {
	if configured != "" || secretStore == nil {
		return configured
	}
	key, err := secretStore.Get(driven.SecretLLMAPIKey)
	if err != nil {
		if !errors.Is(err, driven.ErrSecretNotFound) {
			logger.Warn("read inference key from keyring: %v", err)
		}
		return ""
	}
	return string(key)
}

// openMailbox builds the Gmail client, or a mailbox that reports why it
// could not be built.
func openMailbox(ctx context.Context, cfg domain.GmailConfig, tokens *google.TokenStore) driven.MailboxClient {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return gmail.Unavailable(fmt.Errorf("%w: gmail.client_id and gmail.client_secret must be set",
			domain.ErrAuthRequired))
	}
	ts, err := google.NewTokenSource(ctx, google.OAuthConfig(cfg.ClientID, cfg.ClientSecret, ""), tokens)
	if err != nil {
		return gmail.Unavailable(err)
	}
	svc, err := google.NewGmailService(ctx, ts)
	if err != nil {
		return gmail.Unavailable(err)
	}
	return gmail.NewClient(svc, gmail.ConfigFrom(cfg))
}

// openDeduper uses Redis when an address is configured and reachable,
// otherwise a process-local deduper.
func openDeduper(ctx context.Context, cfg domain.RedisConfig) (driven.Deduper, func() error) {
	if cfg.Addr == "" {
		return memory.NewDeduper(), nil
	}
	d := redisdedup.NewDeduper(redisdedup.NewClient(cfg))
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		logger.Warn("redis %s unreachable, deduplicating in process: %v", cfg.Addr, err)
		_ = d.Close()
		return memory.NewDeduper(), nil
	}
	logger.Debug("deduplicating through redis at %s", cfg.Addr)
	return d, d.Close
}
