// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/quota-gate/models"
)

// GetQuotaConfig loads the quota configuration for a research study,
// including its rules in author order. Returns ErrConfigNotFound when the
// study has no configuration.
func (s *Store) GetQuotaConfig(ctx context.Context, researchID string) (*models.QuotaConfig, error) {
	const configQry = `
		SELECT research_id, combination_mode, enabled, participant_limit, created_at, updated_at
		FROM quota_config
		WHERE research_id = $1`

	var cfg models.QuotaConfig
	err := s.db.QueryRowContext(ctx, configQry, researchID).Scan(
		&cfg.ResearchID, &cfg.CombinationMode, &cfg.Enabled,
		&cfg.ParticipantLimit, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query quota config for %s: %w", researchID, err)
	}

	const rulesQry = `
		SELECT id, dimension, value, cap, quota_type, is_active
		FROM quota_rule
		WHERE research_id = $1
		ORDER BY ordinal`

	rows, err := s.db.QueryContext(ctx, rulesQry, researchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quota rules for %s: %w", researchID, err)
	}
	defer rows.Close()

	cfg.Rules = []models.QuotaRule{}
	for rows.Next() {
		var rule models.QuotaRule
		if err := rows.Scan(&rule.ID, &rule.Dimension, &rule.Value, &rule.Cap, &rule.QuotaType, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan quota rule: %w", err)
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quota rules: %w", err)
	}

	return &cfg, nil
}

// SaveQuotaConfig upserts a study's configuration and replaces its rule set
// in one transaction. Rule ordinals follow slice order.
func (s *Store) SaveQuotaConfig(ctx context.Context, cfg *models.QuotaConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	const upsertQry = `
		INSERT INTO quota_config (research_id, combination_mode, enabled, participant_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (research_id) DO UPDATE
		SET combination_mode = excluded.combination_mode,
		    enabled = excluded.enabled,
		    participant_limit = excluded.participant_limit,
		    updated_at = excluded.updated_at`

	_, err = tx.ExecContext(ctx, upsertQry,
		cfg.ResearchID, cfg.CombinationMode, cfg.Enabled, cfg.ParticipantLimit, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert quota config for %s: %w", cfg.ResearchID, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM quota_rule WHERE research_id = $1`, cfg.ResearchID)
	if err != nil {
		return fmt.Errorf("failed to clear quota rules for %s: %w", cfg.ResearchID, err)
	}

	const insertRuleQry = `
		INSERT INTO quota_rule (id, research_id, dimension, value, cap, quota_type, is_active, ordinal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i, rule := range cfg.Rules {
		_, err = tx.ExecContext(ctx, insertRuleQry,
			rule.ID, cfg.ResearchID, string(rule.Dimension), rule.Value,
			rule.Cap, rule.QuotaType, rule.IsActive, i)
		if err != nil {
			return fmt.Errorf("failed to insert quota rule %s=%s: %w", rule.Dimension, rule.Value, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quota config for %s: %w", cfg.ResearchID, err)
	}

	return nil
}
