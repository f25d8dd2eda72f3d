package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// TriggerSyncInput is the input schema for the trigger_sync tool.
type TriggerSyncInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Gmail search query (default: the configured sync query)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum messages to fetch (1-500)"`
	MarkRead   bool   `json:"mark_read,omitempty" jsonschema:"mark processed messages as read"`
}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	Running          bool       `json:"running"`
	State            string     `json:"state,omitempty"`
	Current          *RunOutput `json:"current,omitempty"`
	LastRun          *RunOutput `json:"last_run,omitempty"`
	LastSuccessful   *RunOutput `json:"last_successful,omitempty"`
	StalenessSeconds int64      `json:"staleness_seconds"`
}

// RunsOutput is the output schema for the list_runs tool.
type RunsOutput struct {
	Runs  []RunOutput `json:"runs"`
	Count int         `json:"count"`
}

func (s *Server) registerSyncTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trigger_sync",
		Description: "Fetch and process new mail now; fails if a sync is already running",
	}, s.handleTriggerSync)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_digests",
		Description: "Process unread daily property management reports and mark them read",
	}, s.handleSyncDigests)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Show whether a sync is running and how stale the data is",
	}, s.handleSyncStatus)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent sync runs, newest first",
	}, s.handleListRuns)
}

func (s *Server) handleTriggerSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TriggerSyncInput,
) (*mcp.CallToolResult, RunOutput, error) {
	if s.ports.Sync == nil {
		return nil, RunOutput{}, ErrSyncUnavailable
	}
	run, err := s.ports.Sync.Run(ctx, domain.SyncRequest{
		Query:      input.Query,
		MaxResults: input.MaxResults,
		MarkRead:   input.MarkRead,
	})
	return runResult(run, err)
}

func (s *Server) handleSyncDigests(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, RunOutput, error) {
	if s.ports.Sync == nil {
		return nil, RunOutput{}, ErrSyncUnavailable
	}
	return runResult(s.ports.Sync.SyncDigests(ctx))
}

// runResult reports a failed run as its record when one was written, so the
// caller still sees the counts.
func runResult(run *domain.SyncRun, err error) (*mcp.CallToolResult, RunOutput, error) {
	if run == nil {
		return nil, RunOutput{}, err
	}
	out := toRunOutput(run)
	if err != nil && out.Error == "" {
		out.Error = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncStatusOutput{}, ErrSyncUnavailable
	}
	status, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, err
	}

	output := SyncStatusOutput{
		Running:          status.Running,
		State:            string(status.State),
		Current:          runPtr(status.Current),
		LastRun:          runPtr(status.LastRun),
		LastSuccessful:   runPtr(status.LastSuccessful),
		StalenessSeconds: int64(status.Staleness.Seconds()),
	}
	return nil, output, nil
}

func (s *Server) handleListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LimitInput,
) (*mcp.CallToolResult, RunsOutput, error) {
	if s.ports.Sync == nil {
		return nil, RunsOutput{}, ErrSyncUnavailable
	}
	runs, err := s.ports.Sync.Runs(ctx, input.Limit)
	if err != nil {
		return nil, RunsOutput{}, err
	}

	output := RunsOutput{Runs: make([]RunOutput, len(runs)), Count: len(runs)}
	for i := range runs {
		output.Runs[i] = toRunOutput(&runs[i])
	}
	return nil, output, nil
}

func runPtr(r *domain.SyncRun) *RunOutput {
	if r == nil {
		return nil
	}
	out := toRunOutput(r)
	return &out
}
