package domain

import "time"

// Task IDs for built-in tasks.
const (
	TaskIDMailboxSync = "mailbox-sync"
	TaskIDDigestSync  = "digest-sync"
)

// Default task intervals.
const (
	DefaultMailboxSyncInterval = 30 * time.Minute
	DefaultDigestSyncInterval  = 6 * time.Hour
)

// ScheduledTask is a recurring sync and its schedule state. It survives
// restarts so a task that is overdue runs shortly after start.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is the failure of the most recent run, empty after a success.
	LastError string
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult records one scheduled execution and the sync run it started.
type TaskResult struct {
	TaskID    string
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// Categorized is the number of messages the run categorised.
	Categorized int
}

// TaskStatus pairs a task with its most recent result, if any.
type TaskStatus struct {
	Task       ScheduledTask
	LastResult *TaskResult
}

// SchedulerConfig enables the scheduler and each of its tasks.
type SchedulerConfig struct {
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig is the configured schedule of one task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration of a task, or a disabled zero
// value when the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig runs both syncs on their default intervals.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDMailboxSync: {Enabled: true, Interval: DefaultMailboxSyncInterval},
			TaskIDDigestSync:  {Enabled: true, Interval: DefaultDigestSyncInterval},
		},
	}
}

// TaskName returns the display name of a built-in task.
func TaskName(id string) string {
	switch id {
	case TaskIDMailboxSync:
		return "Mailbox Sync"
	case TaskIDDigestSync:
		return "Daily Report Sync"
	default:
		return id
	}
}
