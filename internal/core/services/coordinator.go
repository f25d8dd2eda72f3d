package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
	"github.com/custodia-labs/guestmail/internal/logger"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// Ensure SyncCoordinator implements the interface.
var _ driving.SyncService = (*SyncCoordinator)(nil)

// Pipeline stage names, used as metric labels.
const (
	stageFetch       = "fetch"
	stageClassify    = "classify"
	stageSummarise   = "summarise"
	stageUnsubscribe = "unsubscribe"
	stageExtract     = "extract"
)

// finaliseTimeout bounds the run-log write after the caller's context ends.
const finaliseTimeout = 10 * time.Second

// SyncDeps are the collaborators of a SyncCoordinator. Deduper is optional.
type SyncDeps struct {
	Mailbox        driven.MailboxClient
	Categorization driven.CategorizationStore
	Summaries      driven.SummaryStore
	Unsubscribes   driven.UnsubscribeStore
	Bookings       driven.BookingStore
	Digests        driven.DigestStore
	Runs           driven.SyncRunStore
	Deduper        driven.Deduper

	Classifier *Classifier
	Summarizer *Summarizer
	Detector   *UnsubscribeDetector
	Extractor  Extractor
}

// Validate checks that every required collaborator is present.
func (d SyncDeps) Validate() error {
	switch {
	case d.Mailbox == nil:
		return domain.ErrMailboxUnavailable
	case d.Categorization == nil, d.Summaries == nil, d.Unsubscribes == nil,
		d.Bookings == nil, d.Digests == nil, d.Runs == nil:
		return fmt.Errorf("%w: sync coordinator requires every store", domain.ErrConfigInvalid)
	case d.Classifier == nil, d.Summarizer == nil, d.Detector == nil, d.Extractor == nil:
		return fmt.Errorf("%w: sync coordinator requires every pipeline stage", domain.ErrConfigInvalid)
	}
	return nil
}

// SyncCoordinator runs the ingestion pipeline: fetch a page of messages,
// then classify, summarise, check for unsubscribe signals and extract
// records from each, in fixed-size concurrent batches.
type SyncCoordinator struct {
	deps SyncDeps
	cfg  domain.SyncConfig

	defaultQuery string
	digestQuery  string
	claimTTL     time.Duration
	retryBackoff time.Duration

	running atomic.Bool

	// Status tracking
	mu      sync.RWMutex
	state   domain.RunState
	current *domain.SyncRun
	counts  *runCounters
}

// NewSyncCoordinator creates a coordinator. Zero values in cfg take the
// defaults from domain.DefaultSyncConfig.
func NewSyncCoordinator(deps SyncDeps, cfg domain.SyncConfig) (*SyncCoordinator, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	def := domain.DefaultSyncConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = def.MessageTimeout
	}
	return &SyncCoordinator{
		deps:         deps,
		cfg:          cfg,
		defaultQuery: domain.DefaultSyncQuery,
		digestQuery:  domain.DefaultDigestQuery,
		claimTTL:     time.Hour,
		retryBackoff: time.Second,
	}, nil
}

// SetQueries overrides the default mailbox and digest queries.
func (c *SyncCoordinator) SetQueries(defaultQuery, digestQuery string) {
	if defaultQuery != "" {
		c.defaultQuery = defaultQuery
	}
	if digestQuery != "" {
		c.digestQuery = digestQuery
	}
}

// SetClaimTTL sets how long a cross-process message claim is held.
func (c *SyncCoordinator) SetClaimTTL(ttl time.Duration) {
	if ttl > 0 {
		c.claimTTL = ttl
	}
}

// SyncDigests runs the pipeline over unread vendor reports and marks
// them read.
func (c *SyncCoordinator) SyncDigests(ctx context.Context) (*domain.SyncRun, error) {
	return c.Run(ctx, domain.SyncRequest{Query: c.digestQuery, MarkRead: true})
}

// Run executes one sync. Per-message failures are counted, never returned.
// The returned error is non-nil only when the fetch step fails or ctx is
// cancelled; the run record is finalised as failed in both cases.
func (c *SyncCoordinator) Run(ctx context.Context, req domain.SyncRequest) (*domain.SyncRun, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer c.running.Store(false)

	if req.Query == "" {
		req.Query = c.defaultQuery
	}
	req.MaxResults = domain.ClampMaxResults(req.MaxResults, c.cfg.MaxResults)

	run := domain.SyncRun{
		ID:        uuid.New().String(),
		Query:     req.Query,
		StartedAt: time.Now().UTC(),
		Status:    domain.RunStatusRunning,
	}
	if err := c.deps.Runs.Append(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	counters := &runCounters{}
	c.begin(&run, counters)
	defer c.end()

	logger.Info("Starting sync %s (query %q, max %d)", run.ID, req.Query, req.MaxResults)

	ids, err := c.fetchIDs(ctx, req.Query, req.MaxResults)
	if err != nil {
		metrics.RecordStage(stageFetch, metrics.ResultError)
		return c.finish(ctx, &run, counters, fmt.Errorf("fetch messages: %w", err))
	}
	metrics.RecordStage(stageFetch, metrics.ResultOK)
	counters.fetched.Add(int64(len(ids)))

	c.setState(domain.RunStateProcessing)
	c.processAll(ctx, ids, req, counters)

	if err := ctx.Err(); err != nil {
		return c.finish(ctx, &run, counters, fmt.Errorf("sync abandoned: %w", err))
	}
	return c.finish(ctx, &run, counters, nil)
}

// Status reports the current run, if any, and the run-log history.
func (c *SyncCoordinator) Status(ctx context.Context) (*domain.SyncStatus, error) {
	status := &domain.SyncStatus{}

	c.mu.RLock()
	if c.current != nil {
		snapshot := *c.current
		snapshot.Counts = c.counts.snapshot()
		status.Running = true
		status.State = c.state
		status.Current = &snapshot
	}
	c.mu.RUnlock()

	last, err := c.deps.Runs.Latest(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	status.LastRun = last
	if !status.Running && last != nil {
		status.State = runStateFor(last.Status)
	}

	ok, err := c.deps.Runs.LatestSuccessful(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("latest successful run: %w", err)
	}
	status.LastSuccessful = ok
	if ok != nil && !ok.EndedAt.IsZero() {
		status.Staleness = time.Since(ok.EndedAt)
	}
	return status, nil
}

// Runs returns recent run records, newest first.
func (c *SyncCoordinator) Runs(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	return c.deps.Runs.List(ctx, limit)
}

// fetchIDs pages through the mailbox until maxResults ids are collected.
// Each page is retried on transient errors.
func (c *SyncCoordinator) fetchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	var (
		ids       []string
		pageToken string
	)
	for len(ids) < maxResults {
		page, err := c.fetchPage(ctx, query, maxResults-len(ids), pageToken)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" || len(page.IDs) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (c *SyncCoordinator) fetchPage(ctx context.Context, query string, n int, token string) (*domain.MessagePage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryBackoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
			logger.Debug("retrying mailbox search (attempt %d): %v", attempt+1, lastErr)
		}
		page, err := c.deps.Mailbox.Search(ctx, query, n, token)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			break
		}
	}
	return nil, lastErr
}

// processAll walks ids in fixed-size batches. Transient per-message
// failures are retried once the batch completes; a pause separates
// batches.
func (c *SyncCoordinator) processAll(ctx context.Context, ids []string, req domain.SyncRequest, counters *runCounters) {
	for start := 0; start < len(ids); start += c.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}
		if start > 0 && c.cfg.BatchPause > 0 {
			if sleepCtx(ctx, c.cfg.BatchPause) != nil {
				return
			}
		}

		end := min(start+c.cfg.BatchSize, len(ids))
		pending := c.processBatch(ctx, ids[start:end], req, counters)
		for attempt := 1; attempt <= c.cfg.MaxRetries && len(pending) > 0; attempt++ {
			if sleepCtx(ctx, c.retryBackoff*time.Duration(attempt)) != nil {
				return
			}
			logger.Debug("retrying %d messages after transient failures", len(pending))
			pending = c.processBatch(ctx, pending, req, counters)
		}
		// Whatever is still failing is counted once, after the last attempt.
		counters.errored.Add(int64(len(pending)))
	}
}

// processBatch runs messages concurrently, bounded by Parallelism, and
// returns the ids that failed transiently.
func (c *SyncCoordinator) processBatch(ctx context.Context, ids []string, req domain.SyncRequest, counters *runCounters) []string {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		pending []string
		sem     = make(chan struct{}, c.cfg.Parallelism)
	)
	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := c.processMessage(ctx, id, req, counters)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				// Abandoned; the message is neither an error nor retried.
			case domain.IsTransient(err):
				logger.Debug("message %s: transient failure: %v", id, err)
				mu.Lock()
				pending = append(pending, id)
				mu.Unlock()
			default:
				logger.Warn("message %s: %v", id, err)
				counters.errored.Add(1)
			}
		}(id)
	}
	wg.Wait()
	return pending
}

// processMessage takes one message through the pipeline. The categorization
// record is written before the dependent records; once it exists later runs
// skip the message.
//
//nolint:gocyclo // Sequential pipeline stages with per-stage accounting
func (c *SyncCoordinator) processMessage(
	ctx context.Context,
	id string,
	req domain.SyncRequest,
	counters *runCounters,
) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MessageTimeout)
	defer cancel()

	exists, err := c.deps.Categorization.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}
	if exists {
		counters.skipped.Add(1)
		metrics.RecordStage(stageClassify, metrics.ResultSkipped)
		return nil
	}

	if c.deps.Deduper != nil {
		claimed, claimErr := c.deps.Deduper.Claim(ctx, claimKey(id), c.claimTTL)
		if claimErr != nil {
			logger.Warn("claim %s: %v (continuing without claim)", id, claimErr)
		} else if !claimed {
			counters.skipped.Add(1)
			return nil
		} else {
			defer func() {
				if err != nil {
					// Let a retry or another worker pick it up.
					if rerr := c.deps.Deduper.Release(context.WithoutCancel(ctx), claimKey(id)); rerr != nil {
						logger.Debug("release claim %s: %v", id, rerr)
					}
				}
			}()
		}
	}

	msg, err := c.deps.Mailbox.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	classification, err := c.deps.Classifier.Classify(ctx, msg)
	if err != nil {
		return err
	}

	// Extraction may fail transiently; it runs before anything is written
	// so a retry starts from a clean slate.
	extraction, extractErr := c.deps.Extractor.Extract(ctx, msg, classification.Category)
	if extractErr != nil && (domain.IsTransient(extractErr) || ctx.Err() != nil) {
		return fmt.Errorf("extract: %w", extractErr)
	}

	var summary *domain.Summary
	if c.deps.Summarizer.NeedsSummary(msg) {
		s, err := c.deps.Summarizer.Summarize(ctx, msg)
		if err != nil {
			return err
		}
		summary = &s
	}

	record := domain.NewCategorizationRecord(msg, classification)
	if err := c.deps.Categorization.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			counters.skipped.Add(1)
			metrics.RecordStage(stageClassify, metrics.ResultDuplicate)
			return nil
		}
		metrics.RecordStage(stageClassify, metrics.ResultError)
		return fmt.Errorf("store categorization: %w", err)
	}
	counters.categorized.Add(1)
	if classification.Fallback {
		metrics.RecordStage(stageClassify, metrics.ResultFallback)
	} else {
		metrics.RecordStage(stageClassify, metrics.ResultOK)
	}

	// From here on every write is independent; failures are counted and the
	// remaining stages still run.
	var failed error

	if summary != nil {
		now := time.Now().UTC()
		rec := domain.SummaryRecord{MessageID: msg.ID, Summary: *summary, CreatedAt: now, UpdatedAt: now}
		if err := c.deps.Summaries.Upsert(ctx, rec); err != nil {
			metrics.RecordStage(stageSummarise, metrics.ResultError)
			failed = errors.Join(failed, fmt.Errorf("store summary: %w", err))
		} else if !summary.Trivial {
			counters.summarized.Add(1)
			metrics.RecordStage(stageSummarise, metrics.ResultOK)
		} else {
			metrics.RecordStage(stageSummarise, metrics.ResultFallback)
		}
	} else {
		metrics.RecordStage(stageSummarise, metrics.ResultSkipped)
	}

	signal := c.deps.Detector.Detect(msg)
	if c.deps.Detector.ShouldFlag(classification.Category, signal) {
		candidate := c.deps.Detector.Candidate(msg, signal)
		if err := c.deps.Unsubscribes.Upsert(ctx, candidate); err != nil {
			metrics.RecordStage(stageUnsubscribe, metrics.ResultError)
			failed = errors.Join(failed, fmt.Errorf("store unsubscribe candidate: %w", err))
		} else {
			counters.unsubscribeFlagged.Add(1)
			metrics.RecordStage(stageUnsubscribe, metrics.ResultOK)
		}
	}

	switch {
	case extractErr != nil:
		counters.extractionFailures.Add(1)
		metrics.RecordStage(stageExtract, metrics.ResultError)
		logger.Debug("extract %s: %v", msg.ID, extractErr)
	case extraction != nil:
		if err := c.storeExtraction(ctx, extraction, counters); err != nil {
			failed = errors.Join(failed, err)
		}
	}

	if req.MarkRead && failed == nil {
		if err := c.deps.Mailbox.MarkRead(ctx, msg.ID); err != nil {
			logger.Warn("mark %s read: %v", msg.ID, err)
		}
	}

	// Permanent: the categorization record exists, so a retry would skip.
	return failed
}

// storeExtraction persists a booking or digest. Duplicates are expected
// across overlapping runs and counted as skipped.
func (c *SyncCoordinator) storeExtraction(ctx context.Context, ex *domain.Extraction, counters *runCounters) error {
	var err error
	switch ex.Kind {
	case domain.ExtractionBooking:
		err = c.deps.Bookings.Insert(ctx, *ex.Booking)
		if err == nil {
			counters.bookingsExtracted.Add(1)
		}
	case domain.ExtractionDigest:
		err = c.deps.Digests.Insert(ctx, *ex.Digest)
		if err == nil {
			counters.digestsExtracted.Add(1)
		}
	default:
		return fmt.Errorf("unknown extraction kind %q", ex.Kind)
	}

	switch {
	case err == nil:
		metrics.RecordStage(stageExtract, metrics.ResultOK)
		return nil
	case errors.Is(err, domain.ErrDuplicate):
		counters.skipped.Add(1)
		metrics.RecordStage(stageExtract, metrics.ResultDuplicate)
		return nil
	default:
		metrics.RecordStage(stageExtract, metrics.ResultError)
		return fmt.Errorf("store %s: %w", ex.Kind, err)
	}
}

// finish finalises the run record. A nil cause marks the run successful.
func (c *SyncCoordinator) finish(
	ctx context.Context,
	run *domain.SyncRun,
	counters *runCounters,
	cause error,
) (*domain.SyncRun, error) {
	run.EndedAt = time.Now().UTC()
	run.Counts = counters.snapshot()
	if cause != nil {
		run.Status = domain.RunStatusFailed
		run.Error = cause.Error()
		c.setState(domain.RunStateFailed)
	} else {
		run.Status = domain.RunStatusSuccess
		c.setState(domain.RunStateCompleted)
	}

	// The caller's context may already be cancelled; the record must still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finaliseTimeout)
	defer cancel()
	if err := c.deps.Runs.Finish(writeCtx, *run); err != nil {
		logger.Error("finalise run %s: %v", run.ID, err)
	}

	metrics.RecordRun(string(run.Status), run.Duration())
	n := run.Counts
	logger.Info("Sync %s %s: fetched=%d categorized=%d summarized=%d skipped=%d errored=%d bookings=%d digests=%d",
		run.ID, run.Status, n.Fetched, n.Categorized, n.Summarized, n.Skipped, n.Errored,
		n.BookingsExtracted, n.DigestsExtracted)

	return run, cause
}

func (c *SyncCoordinator) begin(run *domain.SyncRun, counters *runCounters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = run
	c.counts = counters
	c.state = domain.RunStateFetching
}

func (c *SyncCoordinator) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.counts = nil
}

func (c *SyncCoordinator) setState(state domain.RunState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func runStateFor(status domain.RunStatus) domain.RunState {
	switch status {
	case domain.RunStatusSuccess:
		return domain.RunStateCompleted
	case domain.RunStatusFailed:
		return domain.RunStateFailed
	default:
		return domain.RunStateProcessing
	}
}

func claimKey(id string) string {
	return "guestmail:message:" + id
}

// runCounters are shared by every worker of a run.
type runCounters struct {
	fetched            atomic.Int64
	categorized        atomic.Int64
	summarized         atomic.Int64
	skipped            atomic.Int64
	errored            atomic.Int64
	bookingsExtracted  atomic.Int64
	digestsExtracted   atomic.Int64
	extractionFailures atomic.Int64
	unsubscribeFlagged atomic.Int64
}

func (r *runCounters) snapshot() domain.RunCounts {
	if r == nil {
		return domain.RunCounts{}
	}
	return domain.RunCounts{
		Fetched:            int(r.fetched.Load()),
		Categorized:        int(r.categorized.Load()),
		Summarized:         int(r.summarized.Load()),
		Skipped:            int(r.skipped.Load()),
		Errored:            int(r.errored.Load()),
		BookingsExtracted:  int(r.bookingsExtracted.Load()),
		DigestsExtracted:   int(r.digestsExtracted.Load()),
		ExtractionFailures: int(r.extractionFailures.Load()),
		UnsubscribeFlagged: int(r.unsubscribeFlagged.Load()),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
