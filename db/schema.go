// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The schema sticks to the SQL subset that both Postgres and sqlite accept:
// no NOW() defaults (timestamps are supplied by the application), no
// engine-specific column types.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Quota configuration, one row per research study
CREATE TABLE IF NOT EXISTS quota_config (
    research_id TEXT PRIMARY KEY,
    combination_mode TEXT NOT NULL DEFAULT 'PER_DIMENSION' CHECK (combination_mode IN ('PER_DIMENSION', 'CROSS_PRODUCT')),
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    participant_limit INTEGER NOT NULL DEFAULT 0 CHECK (participant_limit >= 0),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

-- Quota rules: one admissible value per dimension with its cap.
-- ordinal preserves the author's rule order, which fixes match order.
CREATE TABLE IF NOT EXISTS quota_rule (
    id TEXT PRIMARY KEY,
    research_id TEXT NOT NULL REFERENCES quota_config(research_id) ON DELETE CASCADE,
    dimension TEXT NOT NULL,
    value TEXT NOT NULL,
    cap INTEGER NOT NULL CHECK (cap >= 0),
    quota_type TEXT NOT NULL DEFAULT 'absolute' CHECK (quota_type IN ('absolute', 'percentage')),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    ordinal INTEGER NOT NULL,
    UNIQUE (research_id, dimension, value)
);

CREATE INDEX IF NOT EXISTS idx_quota_rule_research ON quota_rule(research_id);

-- Quota counters: materialized on first increment, mutated only through the
-- conditional-increment / rollback-decrement statements in the store package.
CREATE TABLE IF NOT EXISTS quota_counter (
    research_id TEXT NOT NULL,
    cell_key TEXT NOT NULL,
    dimension TEXT NOT NULL,
    value TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    cap INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (research_id, cell_key)
);

CREATE INDEX IF NOT EXISTS idx_quota_counter_research ON quota_counter(research_id);
`
