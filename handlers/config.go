// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/middleware"
	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/store"
)

type ConfigHandler struct {
	store *store.Store
	cfg   cliparse.Config
}

func NewConfigHandler(db *sql.DB, cfg cliparse.Config) *ConfigHandler {
	return &ConfigHandler{store: store.New(db), cfg: cfg}
}

// SaveConfig handles PUT /research/{researchId}/quota-config
//
// Upserts a study's quota configuration and replaces its rule set. This is
// the study-setup write path; validation only ever reads configuration.
func (h *ConfigHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	researchID := r.PathValue("researchId")
	if researchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "researchId is required")
		return
	}

	var req models.SaveQuotaConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	mode := req.CombinationMode
	if mode == "" {
		mode = models.ModePerDimension
	}
	if mode != models.ModePerDimension && mode != models.ModeCrossProduct {
		middleware.ErrorResponse(w, http.StatusBadRequest, "combinationMode must be PER_DIMENSION or CROSS_PRODUCT")
		return
	}

	if req.ParticipantLimit < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "participantLimit must not be negative")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rules := make([]models.QuotaRule, 0, len(req.Rules))
	seen := map[string]bool{}
	for _, in := range req.Rules {
		if !models.ValidDimension(in.Dimension) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "unknown dimension: "+in.Dimension)
			return
		}
		if in.Value == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "rule value is required for dimension "+in.Dimension)
			return
		}
		if in.Cap < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "cap must not be negative for "+in.Dimension+"="+in.Value)
			return
		}
		quotaType := in.QuotaType
		if quotaType == "" {
			quotaType = models.QuotaTypeAbsolute
		}
		if quotaType != models.QuotaTypeAbsolute && quotaType != models.QuotaTypePercentage {
			middleware.ErrorResponse(w, http.StatusBadRequest, "quotaType must be absolute or percentage")
			return
		}
		key := in.Dimension + "=" + in.Value
		if seen[key] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "duplicate rule: "+key)
			return
		}
		seen[key] = true

		isActive := true
		if in.IsActive != nil {
			isActive = *in.IsActive
		}

		rules = append(rules, models.QuotaRule{
			ID:        uuid.NewString(),
			Dimension: models.QuotaDimension(in.Dimension),
			Value:     in.Value,
			Cap:       in.Cap,
			QuotaType: quotaType,
			IsActive:  isActive,
		})
	}

	config := models.QuotaConfig{
		ResearchID:       researchID,
		CombinationMode:  mode,
		Enabled:          enabled,
		ParticipantLimit: req.ParticipantLimit,
		Rules:            rules,
	}

	if err := h.store.SaveQuotaConfig(r.Context(), &config); err != nil {
		slog.Error("failed to save quota config", "error", err, "research_id", researchID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	saved, err := h.store.GetQuotaConfig(r.Context(), researchID)
	if err != nil {
		slog.Error("failed to reload quota config", "error", err, "research_id", researchID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("quota config saved", "research_id", researchID, "rules", len(rules), "mode", mode)

	middleware.JSONResponse(w, http.StatusOK, saved)
}

// GetConfig handles GET /research/{researchId}/quota-config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	researchID := r.PathValue("researchId")
	if researchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "researchId is required")
		return
	}

	config, err := h.store.GetQuotaConfig(r.Context(), researchID)
	if errors.Is(err, store.ErrConfigNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No quota config for this research")
		return
	}
	if err != nil {
		slog.Error("failed to query quota config", "error", err, "research_id", researchID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, config)
}
