// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - quota_config: Per-study quota settings (combination mode, enabled flag,
    participant limit)
  - quota_rule: One admissible demographic value per row with its cap
  - quota_counter: Admission counters, one row per quota cell

# Relationships

	quota_config 1──* quota_rule

quota_counter rows are derived from config at validation time and keyed by
(research_id, cell_key); they carry no foreign key so that counters survive a
config rewrite and can be reconciled or reset explicitly.

# Portability

Both supported drivers (lib/pq and modernc.org/sqlite) run the same schema:
timestamps are written by the application instead of NOW(), and parameters in
all queries use $N placeholders numbered in order of first appearance.
*/
package db
