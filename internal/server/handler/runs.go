package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// RunHandler serves run history from the database. Registered only when
// the history store is configured.
type RunHandler struct {
	history domain.RunHistoryStore
	logger  *slog.Logger
}

// NewRunHandler creates a RunHandler over the given history store.
func NewRunHandler(history domain.RunHistoryStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{history: history, logger: logger}
}

// ListRuns returns the most recent runs, newest first.
// GET /api/runs?limit=50
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	runs, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

// RunStats returns run counts per outcome over a trailing window.
// GET /api/runs/stats?hours=24
func (h *RunHandler) RunStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	counts, err := h.history.CountByOutcome(r.Context(), since)
	if err != nil {
		h.logger.Error("run stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	byOutcome := make(map[string]int64, len(counts))
	var total int64
	for outcome, n := range counts {
		byOutcome[string(outcome)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":      since.UTC().Format(time.RFC3339),
		"total":      total,
		"by_outcome": byOutcome,
	})
}
