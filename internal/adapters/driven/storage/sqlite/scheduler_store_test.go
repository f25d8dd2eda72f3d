package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	tasks := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDMailboxSync,
		Name:        domain.TaskName(domain.TaskIDMailboxSync),
		Interval:    30 * time.Minute,
		LastRun:     now.Add(-30 * time.Minute),
		NextRun:     now,
		LastSuccess: now.Add(-30 * time.Minute),
		Enabled:     true,
	}
	require.NoError(t, tasks.SaveTask(ctx, task))

	got, err := tasks.GetTask(ctx, domain.TaskIDMailboxSync)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mailbox Sync", got.Name)
	assert.Equal(t, 30*time.Minute, got.Interval)
	assert.True(t, got.Enabled)
	assert.WithinDuration(t, task.LastRun, got.LastRun, time.Second)
	assert.WithinDuration(t, task.NextRun, got.NextRun, time.Second)
	assert.WithinDuration(t, task.LastSuccess, got.LastSuccess, time.Second)

	missing, err := tasks.GetTask(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSchedulerStore_UpdateTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	tasks := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: domain.TaskIDDigestSync, Name: "Daily Report Sync", Interval: 6 * time.Hour, Enabled: true}
	require.NoError(t, tasks.SaveTask(ctx, task))
	require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDMailboxSync, Name: "Mailbox Sync"}))

	task.Interval = 12 * time.Hour
	task.LastError = "mailbox unavailable"
	task.Enabled = false
	require.NoError(t, tasks.SaveTask(ctx, task))

	got, err := tasks.GetTask(ctx, domain.TaskIDDigestSync)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, got.Interval)
	assert.Equal(t, "mailbox unavailable", got.LastError)
	assert.False(t, got.Enabled)
	assert.True(t, got.LastRun.IsZero())

	all, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.TaskIDDigestSync, all[0].ID, "ordered by id")
	assert.Equal(t, domain.TaskIDMailboxSync, all[1].ID)

	assert.ErrorIs(t, tasks.SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, tasks.RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_HistoryAndPrune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	tasks := store.SchedulerStore()

	for _, id := range []string{domain.TaskIDMailboxSync, domain.TaskIDDigestSync} {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: domain.TaskName(id), Enabled: true}))
	}

	start := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 6; i++ {
		result := &domain.TaskResult{
			TaskID:      domain.TaskIDMailboxSync,
			RunID:       "run-" + string(rune('a'+i)),
			StartedAt:   start.Add(time.Duration(i) * time.Minute),
			EndedAt:     start.Add(time.Duration(i)*time.Minute + 20*time.Second),
			Success:     i%2 == 0,
			Categorized: i + 1,
		}
		if !result.Success {
			result.Error = "rate limited"
		}
		require.NoError(t, tasks.RecordResult(ctx, result))
	}
	require.NoError(t, tasks.RecordResult(ctx, &domain.TaskResult{
		TaskID:    domain.TaskIDDigestSync,
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
		Success:   true,
	}))

	history, err := tasks.History(ctx, domain.TaskIDMailboxSync, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 6, history[0].Categorized)
	assert.Equal(t, "run-f", history[0].RunID)
	assert.Equal(t, "rate limited", history[0].Error)
	assert.False(t, history[0].Success)
	assert.True(t, history[1].Success)

	require.NoError(t, tasks.PruneHistory(ctx, 2))

	history, err = tasks.History(ctx, domain.TaskIDMailboxSync, 100)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 6, history[0].Categorized)
	assert.Equal(t, 5, history[1].Categorized)

	digestHistory, err := tasks.History(ctx, domain.TaskIDDigestSync, 100)
	require.NoError(t, err)
	require.Len(t, digestHistory, 1, "pruning is per task")
	assert.Empty(t, digestHistory[0].RunID)
}

func TestSchedulerStore_ResultRequiresTask(t *testing.T) {
	store := setupTestStore(t)
	err := store.SchedulerStore().RecordResult(context.Background(), &domain.TaskResult{
		TaskID:    "unknown",
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
	})
	assert.Error(t, err)
}
