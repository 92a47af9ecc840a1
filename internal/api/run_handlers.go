package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunHandler exposes read-only run history endpoints.
type RunHandler struct {
	repo    ingest.RunStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunHandler wires the run store and logger.
func NewRunHandler(repo ingest.RunStore, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{
		repo:    repo,
		timeout: historyTimeout,
		logger:  logger,
	}
}

// ListRuns handles GET /runs?status=&limit=&offset=. It returns {"runs": [...]} on
// success, 400 for invalid filters, 503 when no store is configured, or 500 on store errors.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run history unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status *ingest.RunStatus
	if statusParam := strings.TrimSpace(r.URL.Query().Get("status")); statusParam != "" {
		parsed, parseErr := parseStatus(statusParam)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		status = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.repo.ListRuns(ctx, status, limit, offset)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": toRunDTOs(runs)})
}

// GetRun handles GET /runs/{run_id}. It returns {"run": {...}} on success, 404 when
// the store reports ingest.ErrRunNotFound, 503 without a store, or 500 otherwise.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run history unavailable")
		return
	}
	runID := strings.TrimSpace(chi.URLParam(r, "run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, ingest.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": toRunDTO(run)})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(val, maxLimit)
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStatus(input string) (ingest.RunStatus, error) {
	switch strings.ToLower(input) {
	case "succeeded", "success":
		return ingest.RunSucceeded, nil
	case "failed", "error", "failure":
		return ingest.RunFailed, nil
	default:
		return "", errors.New("invalid status")
	}
}

type runDTO struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Cursor       string    `json:"cursor"`
	NextCursor   string    `json:"next_cursor"`
	ItemsFetched int       `json:"items_fetched"`
	RowsInserted int       `json:"rows_inserted"`
	FailedStage  string    `json:"failed_stage,omitempty"`
	Error        *string   `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func toRunDTOs(in []ingest.RunRecord) []runDTO {
	out := make([]runDTO, 0, len(in))
	for _, run := range in {
		out = append(out, toRunDTO(run))
	}
	return out
}

func toRunDTO(run ingest.RunRecord) runDTO {
	return runDTO{
		ID:           run.ID,
		Status:       string(run.Status),
		Cursor:       run.Cursor,
		NextCursor:   run.NextCursor,
		ItemsFetched: run.ItemsFetched,
		RowsInserted: run.RowsInserted,
		FailedStage:  run.FailedStage,
		Error:        run.ErrorMessage,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}
