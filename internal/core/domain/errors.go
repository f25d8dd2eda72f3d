package domain

import (
	"context"
	"errors"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrLLMUnavailable indicates the inference service is not configured.
	// Classification, summaries and query parsing use their fallbacks.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrContractViolation indicates model output or extracted data did not
	// satisfy the expected schema. Callers treat it as "no result".
	ErrContractViolation = errors.New("contract violation")

	// ErrDuplicate indicates a unique key was already present.
	// Expected during re-syncs and counted, not reported.
	ErrDuplicate = errors.New("duplicate")

	// ErrConfigInvalid indicates missing or malformed configuration.
	ErrConfigInvalid = errors.New("invalid configuration")

	// Provider errors.

	// ErrTransient indicates a temporary provider failure worth retrying.
	ErrTransient = errors.New("transient provider error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCircuitOpen indicates calls are being rejected after repeated failures.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrMailboxUnavailable indicates the mailbox client is not configured.
	ErrMailboxUnavailable = errors.New("mailbox unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates no mailbox credentials are stored.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the authentication has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")
)

// IsTransient reports whether err is worth retrying at a batch boundary.
// Cancellation of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.DeadlineExceeded)
}
