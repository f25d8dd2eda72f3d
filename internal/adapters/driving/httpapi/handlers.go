package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/logger"
)

type runView struct {
	ID                 string    `json:"id"`
	Query              string    `json:"query"`
	Status             string    `json:"status"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at,omitzero"`
	Fetched            int       `json:"fetched"`
	Categorized        int       `json:"categorized"`
	Summarized         int       `json:"summarized"`
	Skipped            int       `json:"skipped"`
	Errored            int       `json:"errored"`
	BookingsExtracted  int       `json:"bookings_extracted"`
	DigestsExtracted   int       `json:"digests_extracted"`
	ExtractionFailures int       `json:"extraction_failures"`
	UnsubscribeFlagged int       `json:"unsubscribe_flagged"`
	Error              string    `json:"error,omitempty"`
}

type statusView struct {
	Running          bool     `json:"running"`
	State            string   `json:"state,omitempty"`
	Current          *runView `json:"current,omitempty"`
	LastRun          *runView `json:"last_run,omitempty"`
	LastSuccessful   *runView `json:"last_successful,omitempty"`
	StalenessSeconds int64    `json:"staleness_seconds"`
}

type syncRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	MarkRead   bool   `json:"mark_read"`
}

type errorBody struct {
	Error string `json:"error"`
}

func toRunView(r *domain.SyncRun) *runView {
	if r == nil {
		return nil
	}
	return &runView{
		ID:                 r.ID,
		Query:              r.Query,
		Status:             string(r.Status),
		StartedAt:          r.StartedAt,
		EndedAt:            r.EndedAt,
		Fetched:            r.Counts.Fetched,
		Categorized:        r.Counts.Categorized,
		Summarized:         r.Counts.Summarized,
		Skipped:            r.Counts.Skipped,
		Errored:            r.Counts.Errored,
		BookingsExtracted:  r.Counts.BookingsExtracted,
		DigestsExtracted:   r.Counts.DigestsExtracted,
		ExtractionFailures: r.Counts.ExtractionFailures,
		UnsubscribeFlagged: r.Counts.UnsubscribeFlagged,
		Error:              r.Error,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sync.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusView{
		Running:          status.Running,
		State:            string(status.State),
		Current:          toRunView(status.Current),
		LastRun:          toRunView(status.LastRun),
		LastSuccessful:   toRunView(status.LastSuccessful),
		StalenessSeconds: int64(status.Staleness.Seconds()),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, domain.ErrInvalidInput)
			return
		}
		limit = n
	}

	runs, err := s.sync.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]*runView, len(runs))
	for i := range runs {
		views[i] = toRunView(&runs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": views, "count": len(views)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "inbox service not configured"})
		return
	}
	stats, err := s.inbox.CategoryStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	type statView struct {
		Category          string  `json:"category"`
		Count             int     `json:"count"`
		AverageConfidence float64 `json:"average_confidence"`
	}
	views := make([]statView, len(stats.Categories))
	for i, c := range stats.Categories {
		views[i] = statView{Category: string(c.Category), Count: c.Count, AverageConfidence: c.AverageConfidence}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": views, "total": stats.Total})
}

type taskView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Enabled     bool      `json:"enabled"`
	Interval    string    `json:"interval"`
	LastRun     time.Time `json:"last_run,omitzero"`
	NextRun     time.Time `json:"next_run,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastRunID   string    `json:"last_run_id,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "scheduler not configured"})
		return
	}
	tasks, err := s.scheduler.Tasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]taskView, len(tasks))
	for i, ts := range tasks {
		views[i] = taskView{
			ID:          ts.Task.ID,
			Name:        ts.Task.Name,
			Enabled:     ts.Task.Enabled,
			Interval:    ts.Task.Interval.String(),
			LastRun:     ts.Task.LastRun,
			NextRun:     ts.Task.NextRun,
			LastSuccess: ts.Task.LastSuccess,
			LastError:   ts.Task.LastError,
		}
		if ts.LastResult != nil {
			views[i].LastRunID = ts.LastResult.RunID
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": views})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, domain.ErrInvalidInput)
			return
		}
	}

	run, err := s.sync.Run(r.Context(), domain.SyncRequest{
		Query:      req.Query,
		MaxResults: req.MaxResults,
		MarkRead:   req.MarkRead,
	})
	writeRun(w, run, err)
}

func (s *Server) handleSyncDigests(w http.ResponseWriter, r *http.Request) {
	run, err := s.sync.SyncDigests(r.Context())
	writeRun(w, run, err)
}

// writeRun answers with the run record when one exists, even for failed runs.
func writeRun(w http.ResponseWriter, run *domain.SyncRun, err error) {
	if run == nil {
		writeError(w, err)
		return
	}
	code := http.StatusOK
	if err != nil {
		code = statusFor(err)
	}
	writeJSON(w, code, toRunView(run))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMailboxUnavailable),
		errors.Is(err, domain.ErrAuthRequired),
		errors.Is(err, domain.ErrAuthExpired),
		domain.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error("httpapi: %v", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("httpapi: encode response: %v", err)
	}
}
