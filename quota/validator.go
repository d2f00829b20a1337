// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/store"
)

const retryBaseDelay = 100 * time.Millisecond

// Validator is the admission controller: it decides whether a participant
// may proceed by acquiring every quota cell they match, all or nothing.
type Validator struct {
	store   *store.Store
	timeout time.Duration
	retries int
}

func NewValidator(s *store.Store, cfg cliparse.Config) *Validator {
	return &Validator{
		store:   s,
		timeout: cfg.ValidateTimeout,
		retries: cfg.StoreRetries,
	}
}

// Validate decides admission for one participant. Cells are acquired
// strictly sequentially in match order; on any failure every increment
// already acquired in this call is undone before returning, so no partial
// admission is ever left visible. Store failures surface as StatusError
// after bounded retries and rollback.
func (v *Validator) Validate(ctx context.Context, researchID string, demographics map[string]string) models.ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	result := models.ValidationResult{
		MatchedCells: []models.MatchedCell{},
		ResearchID:   researchID,
		Timestamp:    time.Now(),
	}

	cfg, err := v.store.GetQuotaConfig(ctx, researchID)
	if errors.Is(err, store.ErrConfigNotFound) {
		result.Status = models.StatusNoConfig
		return result
	}
	if err != nil {
		slog.Error("failed to load quota config", "error", err, "research_id", researchID)
		result.Status = models.StatusError
		return result
	}
	if !cfg.Enabled {
		result.Status = models.StatusNoConfig
		return result
	}

	cells := MatchCells(NormalizeDemographics(demographics), cfg)
	if cfg.ParticipantLimit > 0 {
		// The research-wide total is acquired first so that a study never
		// admits past its participant limit even when no rule matches.
		cells = append([]models.QuotaCell{TotalCell(cfg.ParticipantLimit)}, cells...)
	}
	if len(cells) == 0 {
		result.Status = models.StatusNoConfig
		return result
	}

	acquired := []models.QuotaCell{}
	for _, cell := range cells {
		var res store.IncrementResult
		incErr := retryBackoff(ctx, v.retries, retryBaseDelay, func() error {
			var opErr error
			res, opErr = v.store.IncrementIfBelowCap(ctx, researchID, cell)
			return opErr
		})
		if incErr != nil {
			slog.Error("quota increment failed", "error", incErr,
				"research_id", researchID, "cell_key", cell.Key)
			v.rollback(ctx, researchID, acquired)
			result.Status = models.StatusError
			result.MatchedCells = []models.MatchedCell{}
			return result
		}
		if !res.OK {
			if rbErr := v.rollback(ctx, researchID, acquired); rbErr != nil {
				result.Status = models.StatusError
				result.MatchedCells = []models.MatchedCell{}
				return result
			}
			slog.Info("participant over quota", "research_id", researchID, "cell_key", cell.Key)
			result.Status = models.StatusOverquota
			result.MatchedCells = []models.MatchedCell{{
				CellKey:   cell.Key,
				Dimension: cell.Dimension,
				Value:     cell.Value,
				Remaining: 0,
			}}
			return result
		}
		acquired = append(acquired, cell)
		result.MatchedCells = append(result.MatchedCells, models.MatchedCell{
			CellKey:   cell.Key,
			Dimension: cell.Dimension,
			Value:     cell.Value,
			Remaining: cell.Cap - res.NewCount,
		})
	}

	slog.Info("participant qualified", "research_id", researchID, "cells", len(acquired))
	result.Status = models.StatusQualified
	return result
}

// rollback undoes this call's own increments, most recent first. It runs on
// a context detached from the caller's cancellation: a cancelled validate
// must still finish its rollback or the cells stay over-counted forever.
// A decrement that keeps failing after bounded retries is logged for
// out-of-band reconciliation, never silently dropped.
func (v *Validator) rollback(ctx context.Context, researchID string, acquired []models.QuotaCell) error {
	if len(acquired) == 0 {
		return nil
	}

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
	defer cancel()

	var failed error
	for i := len(acquired) - 1; i >= 0; i-- {
		cell := acquired[i]
		err := retryBackoff(rbCtx, v.retries, retryBaseDelay, func() error {
			return v.store.Decrement(rbCtx, researchID, cell.Key)
		})
		if err != nil {
			slog.Error("quota rollback failed", "error", err,
				"research_id", researchID, "cell_key", cell.Key)
			failed = err
		}
	}
	return failed
}
