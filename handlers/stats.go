// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/middleware"
	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/store"
)

type StatsHandler struct {
	store *store.Store
	cfg   cliparse.Config
}

func NewStatsHandler(db *sql.DB, cfg cliparse.Config) *StatsHandler {
	return &StatsHandler{store: store.New(db), cfg: cfg}
}

// GetStats handles GET /research/{researchId}/quota/stats
//
// Returns per-cell fill levels for a research study. The snapshot is
// best-effort: validations racing the scan may move counts.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	researchID := r.PathValue("researchId")
	if researchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "researchId is required")
		return
	}

	stats, err := h.store.Stats(r.Context(), researchID)
	if err != nil {
		slog.Error("failed to query quota stats", "error", err, "research_id", researchID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var totalCount, totalCap int64
	for _, cs := range stats {
		totalCount += int64(cs.Count)
		totalCap += int64(cs.Cap)
	}

	middleware.JSONResponse(w, http.StatusOK, models.StatsResponse{
		ResearchID:    researchID,
		Stats:         stats,
		TotalCounters: len(stats),
		Summary: fmt.Sprintf("%s of %s slots filled",
			humanize.Comma(totalCount), humanize.Comma(totalCap)),
	})
}

// Reset handles POST /quota/reset
//
// Bulk-zeroes every counter for a research study. Destructive, so it fails
// fast unless the request carries confirmReset=true. Quota configuration is
// left untouched, and resetting an already-zeroed study is a no-op.
func (h *StatsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ResearchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "researchId is required")
		return
	}
	if !req.ConfirmReset {
		middleware.ErrorResponse(w, http.StatusBadRequest, "confirmReset must be true to reset counters")
		return
	}

	n, err := h.store.Reset(r.Context(), req.ResearchID)
	if err != nil {
		slog.Error("failed to reset quota counters", "error", err, "research_id", req.ResearchID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("quota counters reset", "research_id", req.ResearchID, "counters", n)

	middleware.JSONResponse(w, http.StatusOK, models.ResetResponse{
		ResearchID:    req.ResearchID,
		CountersReset: n,
		Message:       fmt.Sprintf("Reset %d quota counters", n),
	})
}
