package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyPerTask is how many task results are kept.
const historyPerTask = 100

// Scheduler runs the mailbox and digest syncs on their intervals.
// It is a pure core service with no external control API.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	sync   driving.SyncService
	tick   time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncService driving.SyncService,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		sync:     syncService,
		tick:     time.Minute,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or ctx
// ends, and returns at once when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Info("scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}
	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures every built-in task exists in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDMailboxSync, domain.TaskIDDigestSync} {
		cfg := s.config.GetTaskConfig(id)
		if err := s.ensureTask(ctx, id, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. A task removed from
// configuration is kept but disabled so its history stays visible.
func (s *Scheduler) ensureTask(ctx context.Context, id string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		if !cfg.Enabled {
			return nil
		}
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     domain.TaskName(id),
			Interval: cfg.Interval,
			Enabled:  true,
			// Run once shortly after start, then on the interval.
			NextRun: time.Now(),
		}
	} else {
		if cfg.Enabled && task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if task.Due(now) {
			s.runTask(ctx, &task)
		}
	}
}

// runTask executes a single task unless it is still running from a
// previous tick.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var (
			run *domain.SyncRun
			err error
		)
		switch task.ID {
		case domain.TaskIDMailboxSync:
			run, err = s.sync.Run(ctx, domain.SyncRequest{})
		case domain.TaskIDDigestSync:
			run, err = s.sync.SyncDigests(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		if errors.Is(err, domain.ErrSyncInProgress) {
			// Another run holds the pipeline; try again on the next tick.
			logger.Debug("scheduler: %s deferred, sync in progress", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if run != nil {
			result.RunID = run.ID
			result.Categorized = run.Counts.Categorized
		}
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// The loop context may be done by now; bookkeeping still lands.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(saveCtx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(saveCtx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(saveCtx, historyPerTask); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// Tasks returns every stored task with its most recent result.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.TaskStatus, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	statuses := make([]domain.TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		status := domain.TaskStatus{Task: task}
		history, err := s.store.History(ctx, task.ID, 1)
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", task.ID, err)
		}
		if len(history) > 0 {
			status.LastResult = &history[0]
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
