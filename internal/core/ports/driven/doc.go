// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - MailboxClient: Searches, fetches and flags mailbox messages
//   - CategorizationStore, SummaryStore, UnsubscribeStore: Per-message records
//   - BookingStore, DigestStore: Extracted reservations and daily reports
//   - SyncRunStore: Append-only run log
//   - SchedulerStore: Scheduled task state
//   - ConfigStore: Writable config.toml keys
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Inference. Without it every stage uses its deterministic fallback.
//   - PromptStore: Prompt templates. Without it adapters use built-in prompts.
//   - Deduper: Cross-process message claims. Without it store uniqueness alone dedups.
//   - SecretStore: Credential storage. Without it credentials come from configuration.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
