package domain

import "time"

// RunStatus is the terminal status of a sync run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunState is the coordinator's position within a run.
type RunState string

// Run states.
const (
	RunStateFetching   RunState = "fetching"
	RunStateProcessing RunState = "processing"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
)

// RunCounts are the per-run counters.
type RunCounts struct {
	Fetched     int
	Categorized int
	Summarized  int
	// Skipped counts messages and bookings rejected as already seen.
	Skipped int
	Errored int

	BookingsExtracted  int
	DigestsExtracted   int
	ExtractionFailures int
	UnsubscribeFlagged int
}

// SyncRun is the append-only audit record of one coordinator invocation.
type SyncRun struct {
	ID        string
	Query     string
	StartedAt time.Time
	EndedAt   time.Time
	Counts    RunCounts
	Status    RunStatus
	Error     string
}

// Duration returns how long the run took, or zero while running.
func (r *SyncRun) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// SyncRequest parameterises a run.
type SyncRequest struct {
	// Query is the provider search query. Empty means the configured default.
	Query string

	// MaxResults bounds the number of messages fetched. Zero means the configured default.
	MaxResults int

	// MarkRead removes the unread flag from messages whose records were written.
	MarkRead bool
}

// Limits for SyncRequest.MaxResults.
const (
	DefaultSyncMaxResults = 50
	MaxSyncMaxResults     = 500
	DefaultSyncQuery      = "newer_than:7d"
	DefaultDigestQuery    = `is:unread (subject:otelms OR subject:ოტელმს OR subject:"daily report")`
)

// ClampMaxResults bounds n to [1,500], substituting def when n is not positive.
func ClampMaxResults(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n <= 0 {
		n = DefaultSyncMaxResults
	}
	if n > MaxSyncMaxResults {
		n = MaxSyncMaxResults
	}
	return n
}

// SyncStatus is the operator view of sync health.
type SyncStatus struct {
	Running bool
	State   RunState

	// Current holds live counters while a run is in progress.
	Current *SyncRun

	LastRun        *SyncRun
	LastSuccessful *SyncRun

	// Staleness is the time since the last successful run; zero if none.
	Staleness time.Duration
}
