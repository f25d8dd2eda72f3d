package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu      sync.RWMutex
	tasks   map[string]*domain.ScheduledTask
	results map[string][]domain.TaskResult
	getErr  error
	listErr error
	pruned  int
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	out := make([]domain.TaskResult, 0, len(results))
	for i := len(results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, results[i])
	}
	return out, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return nil
}

func (m *mockSchedulerStore) task(id string) domain.ScheduledTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		return *t
	}
	return domain.ScheduledTask{}
}

func (m *mockSchedulerStore) history(id string) []domain.TaskResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TaskResult(nil), m.results[id]...)
}

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	mu         sync.Mutex
	runs       int
	digestRuns int
	runErr     error
	counts     domain.RunCounts
}

func (m *mockSyncService) Run(_ context.Context, _ domain.SyncRequest) (*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	return &domain.SyncRun{ID: "run-mail", Counts: m.counts}, m.runErr
}

func (m *mockSyncService) SyncDigests(_ context.Context) (*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digestRuns++
	return &domain.SyncRun{Counts: m.counts}, m.runErr
}

func (m *mockSyncService) Status(_ context.Context) (*domain.SyncStatus, error) {
	return &domain.SyncStatus{}, nil
}

func (m *mockSyncService) Runs(_ context.Context, _ int) ([]domain.SyncRun, error) {
	return nil, nil
}

func (m *mockSyncService) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, m.digestRuns
}

var (
	_ driven.SchedulerStore = (*mockSchedulerStore)(nil)
	_ driving.SyncService   = (*mockSyncService)(nil)
)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	scheduler := NewScheduler(config, newMockSchedulerStore(), &mockSyncService{})

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
	assert.Equal(t, time.Minute, scheduler.tick)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockSyncService{})
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_StartRunsDueTasks(t *testing.T) {
	store := newMockSchedulerStore()
	syncSvc := &mockSyncService{counts: domain.RunCounts{Fetched: 4, Categorized: 3}}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(store.history(domain.TaskIDMailboxSync)) == 1 &&
			len(store.history(domain.TaskIDDigestSync)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	wg.Wait()

	runs, digestRuns := syncSvc.calls()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, digestRuns)

	result := store.history(domain.TaskIDMailboxSync)[0]
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Categorized)
	assert.Equal(t, "run-mail", result.RunID)

	task := store.task(domain.TaskIDMailboxSync)
	assert.Equal(t, "Mailbox Sync", task.Name)
	assert.False(t, task.LastSuccess.IsZero())
	assert.True(t, task.NextRun.After(time.Now().Add(29*time.Minute)))

	digestTask := store.task(domain.TaskIDDigestSync)
	assert.Equal(t, "Daily Report Sync", digestTask.Name)
	assert.Equal(t, 6*time.Hour, digestTask.Interval)
}

func TestScheduler_ContextCancelStops(t *testing.T) {
	scheduler := NewScheduler(domain.SchedulerConfig{Enabled: true}, newMockSchedulerStore(), &mockSyncService{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_EnsureTask(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled task is not created", func(t *testing.T) {
		store := newMockSchedulerStore()
		scheduler := NewScheduler(domain.SchedulerConfig{}, store, &mockSyncService{})

		require.NoError(t, scheduler.ensureTask(ctx, domain.TaskIDDigestSync, domain.TaskConfig{}))
		task, err := store.GetTask(ctx, domain.TaskIDDigestSync)
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("interval change reschedules", func(t *testing.T) {
		store := newMockSchedulerStore()
		require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
			ID:       domain.TaskIDMailboxSync,
			Interval: time.Hour,
			Enabled:  true,
		}))
		scheduler := NewScheduler(domain.SchedulerConfig{}, store, &mockSyncService{})

		cfg := domain.TaskConfig{Enabled: true, Interval: 10 * time.Minute}
		require.NoError(t, scheduler.ensureTask(ctx, domain.TaskIDMailboxSync, cfg))

		task := store.task(domain.TaskIDMailboxSync)
		assert.Equal(t, 10*time.Minute, task.Interval)
		assert.True(t, task.NextRun.After(time.Now()))
	})

	t.Run("removed from config disables", func(t *testing.T) {
		store := newMockSchedulerStore()
		require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
			ID:       domain.TaskIDDigestSync,
			Interval: time.Hour,
			Enabled:  true,
		}))
		scheduler := NewScheduler(domain.SchedulerConfig{}, store, &mockSyncService{})

		require.NoError(t, scheduler.ensureTask(ctx, domain.TaskIDDigestSync, domain.TaskConfig{}))
		assert.False(t, store.task(domain.TaskIDDigestSync).Enabled)
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockSchedulerStore()
		store.getErr = errors.New("disk gone")
		scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncService{})

		assert.Error(t, scheduler.initialiseTasks(ctx))
	})
}

func TestScheduler_RunTaskFailureRecorded(t *testing.T) {
	store := newMockSchedulerStore()
	syncSvc := &mockSyncService{runErr: domain.ErrMailboxUnavailable}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncSvc)

	task := &domain.ScheduledTask{ID: domain.TaskIDMailboxSync, Interval: time.Minute, Enabled: true}
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()

	history := store.history(domain.TaskIDMailboxSync)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Error, "mailbox")
	assert.NotEmpty(t, store.task(domain.TaskIDMailboxSync).LastError)
	assert.Equal(t, 1, store.pruned)
}

func TestScheduler_RunTaskDeferredWhileSyncInProgress(t *testing.T) {
	store := newMockSchedulerStore()
	syncSvc := &mockSyncService{runErr: domain.ErrSyncInProgress}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncSvc)

	task := &domain.ScheduledTask{ID: domain.TaskIDDigestSync, Interval: time.Hour, Enabled: true}
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()

	_, digestRuns := syncSvc.calls()
	assert.Equal(t, 1, digestRuns)
	assert.Empty(t, store.history(domain.TaskIDDigestSync))
	assert.Empty(t, store.task(domain.TaskIDDigestSync).ID)
}

func TestScheduler_DisabledTaskSkipped(t *testing.T) {
	ctx := context.Background()
	store := newMockSchedulerStore()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:      domain.TaskIDMailboxSync,
		NextRun: time.Now().Add(-time.Minute),
	}))
	syncSvc := &mockSyncService{}
	scheduler := NewScheduler(domain.SchedulerConfig{}, store, syncSvc)

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	runs, _ := syncSvc.calls()
	assert.Zero(t, runs)
}

func TestScheduler_ListErrorIsLogged(t *testing.T) {
	store := newMockSchedulerStore()
	store.listErr = errors.New("locked")
	syncSvc := &mockSyncService{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncSvc)

	scheduler.checkAndRunDueTasks(context.Background())
	scheduler.wg.Wait()

	runs, digestRuns := syncSvc.calls()
	assert.Zero(t, runs+digestRuns)
}

func TestScheduler_DisabledReturnsImmediately(t *testing.T) {
	store := newMockSchedulerStore()
	syncSvc := &mockSyncService{}
	scheduler := NewScheduler(domain.SchedulerConfig{Enabled: false}, store, syncSvc)

	require.NoError(t, scheduler.Start(context.Background()))

	runs, digestRuns := syncSvc.calls()
	assert.Zero(t, runs+digestRuns)
	assert.Empty(t, store.tasks)
}

func TestScheduler_Tasks(t *testing.T) {
	ctx := context.Background()
	store := newMockSchedulerStore()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDMailboxSync, Enabled: true}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDDigestSync, Enabled: true}))
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{TaskID: domain.TaskIDMailboxSync, RunID: "old"}))
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{TaskID: domain.TaskIDMailboxSync, RunID: "new"}))

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncService{})
	statuses, err := scheduler.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byID := make(map[string]domain.TaskStatus)
	for _, s := range statuses {
		byID[s.Task.ID] = s
	}
	require.NotNil(t, byID[domain.TaskIDMailboxSync].LastResult)
	assert.Equal(t, "new", byID[domain.TaskIDMailboxSync].LastResult.RunID)
	assert.Nil(t, byID[domain.TaskIDDigestSync].LastResult)
}

func TestScheduler_TasksListError(t *testing.T) {
	store := newMockSchedulerStore()
	store.listErr = errors.New("locked")
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncService{})

	_, err := scheduler.Tasks(context.Background())
	assert.ErrorContains(t, err, "locked")
}
