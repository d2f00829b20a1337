// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/middleware"
	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/quota"
	"github.com/danielhkuo/quota-gate/store"
)

type ValidationHandler struct {
	validator *quota.Validator
}

func NewValidationHandler(db *sql.DB, cfg cliparse.Config) *ValidationHandler {
	return &ValidationHandler{
		validator: quota.NewValidator(store.New(db), cfg),
	}
}

// Validate handles POST /quota/validate
//
// Decides in real time whether a participant may proceed. The response
// status is one of QUALIFIED, NO_CONFIG, OVERQUOTA or ERROR; NO_CONFIG is
// an admit-through decision, not an error.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ResearchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "researchId is required")
		return
	}
	if req.Demographics == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "demographics is required and must be an object")
		return
	}

	result := h.validator.Validate(r.Context(), req.ResearchID, req.Demographics)

	if result.Status == models.StatusError {
		middleware.JSONResponse(w, http.StatusInternalServerError, result)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, result)
}
