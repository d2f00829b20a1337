// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danielhkuo/quota-gate/models"
)

var ErrConfigNotFound = errors.New("quota config not found")

// Store provides access to quota configuration and admission counters.
// Counters are mutated only through IncrementIfBelowCap, Decrement and
// Reset; no other code path writes them.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// IncrementResult reports the outcome of one conditional increment.
type IncrementResult struct {
	OK       bool
	NewCount int
}

// IncrementIfBelowCap atomically increments the counter for a cell, but only
// if its current count is strictly below the cell's cap. The counter row is
// created with count=1 on first reference. The whole operation is a single
// conditional write; it is never decomposed into a read followed by a write.
//
// A result with OK == false means the cell is at capacity.
func (s *Store) IncrementIfBelowCap(ctx context.Context, researchID string, cell models.QuotaCell) (IncrementResult, error) {
	// The insert arm cannot carry the cap condition, so zero-cap cells are
	// rejected before touching the row. A rule with cap 0 always rejects.
	if cell.Cap <= 0 {
		return IncrementResult{OK: false, NewCount: 0}, nil
	}

	// No row from RETURNING means the guard failed: the cell is at cap.
	const incrementQry = `
		INSERT INTO quota_counter (research_id, cell_key, dimension, value, count, cap, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (research_id, cell_key) DO UPDATE
		SET count = quota_counter.count + 1, cap = excluded.cap, updated_at = excluded.updated_at
		WHERE quota_counter.count < excluded.cap
		RETURNING count`

	var newCount int
	err := s.db.QueryRowContext(ctx, incrementQry,
		researchID, cell.Key, cell.Dimension, cell.Value, cell.Cap, time.Now(),
	).Scan(&newCount)

	if err == sql.ErrNoRows {
		return IncrementResult{OK: false}, nil
	}
	if err != nil {
		return IncrementResult{}, fmt.Errorf("failed to increment counter %s/%s: %w", researchID, cell.Key, err)
	}

	return IncrementResult{OK: true, NewCount: newCount}, nil
}

// Decrement unconditionally decrements a cell's counter, clamped at zero.
// It exists solely to roll back this process's own prior increment; it is
// not a general "release a slot" operation.
func (s *Store) Decrement(ctx context.Context, researchID, cellKey string) error {
	const decrementQry = `
		UPDATE quota_counter
		SET count = CASE WHEN count > 0 THEN count - 1 ELSE 0 END, updated_at = $1
		WHERE research_id = $2 AND cell_key = $3`

	_, err := s.db.ExecContext(ctx, decrementQry, time.Now(), researchID, cellKey)
	if err != nil {
		return fmt.Errorf("failed to decrement counter %s/%s: %w", researchID, cellKey, err)
	}

	return nil
}

// Count returns the current count for a cell, or 0 if the cell has never
// been incremented.
func (s *Store) Count(ctx context.Context, researchID, cellKey string) (int, error) {
	const countQry = `SELECT count FROM quota_counter WHERE research_id = $1 AND cell_key = $2`

	var count int
	err := s.db.QueryRowContext(ctx, countQry, researchID, cellKey).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s/%s: %w", researchID, cellKey, err)
	}

	return count, nil
}

// Stats returns a best-effort snapshot of every counter for a research
// study. Concurrent validations may move counts while the scan runs; stats
// are informational and not part of the admission decision path.
func (s *Store) Stats(ctx context.Context, researchID string) ([]models.CellStats, error) {
	const statsQry = `
		SELECT cell_key, dimension, value, count, cap
		FROM quota_counter
		WHERE research_id = $1
		ORDER BY cell_key`

	rows, err := s.db.QueryContext(ctx, statsQry, researchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query counters for %s: %w", researchID, err)
	}
	defer rows.Close()

	stats := []models.CellStats{}
	for rows.Next() {
		var cs models.CellStats
		if err := rows.Scan(&cs.CellKey, &cs.Dimension, &cs.Value, &cs.Count, &cs.Cap); err != nil {
			return nil, fmt.Errorf("failed to scan counter row: %w", err)
		}
		if cs.Cap > 0 {
			cs.Percent = math.Round(float64(cs.Count)/float64(cs.Cap)*1000) / 10
		}
		stats = append(stats, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counter rows: %w", err)
	}

	return stats, nil
}

// Reset zeroes every counter belonging to a research study and returns the
// number of counters touched. Quota configuration is left untouched. The
// update is not atomic across cells as one unit; validations racing a reset
// may observe a mix of old and zeroed counters, which is acceptable for an
// administrative operation off the serving path.
func (s *Store) Reset(ctx context.Context, researchID string) (int, error) {
	const resetQry = `
		UPDATE quota_counter
		SET count = 0, updated_at = $1
		WHERE research_id = $2`

	result, err := s.db.ExecContext(ctx, resetQry, time.Now(), researchID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset counters for %s: %w", researchID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset rows: %w", err)
	}

	return int(affected), nil
}
