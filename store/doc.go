// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store provides durable access to quota configuration and admission
counters over database/sql.

# Counter Store

The core primitive is IncrementIfBelowCap: a single conditional write that
increments a cell's counter only while count < cap, creating the row with
count=1 on first reference. Correctness under concurrent validators rests
entirely on this statement being one atomic operation in the database - there
is no application-level locking, because requests for the same cell may run
in different processes.

An absent row from the statement's RETURNING clause signals that the cap
condition failed, the same rows-affected idiom used for optimistic
compare-and-swap updates elsewhere.

Decrement is the rollback half of the protocol: a plain clamped decrement a
validator applies only to cells it just incremented itself.

# Configuration Store

GetQuotaConfig and SaveQuotaConfig read and write per-study quota settings.
Configuration is read-mostly; writes happen only during study setup, and a
save replaces the rule set transactionally.

# Backends

Both lib/pq (Postgres) and modernc.org/sqlite run the same statements. All
queries use $N placeholders numbered in order of first appearance, which
both drivers bind positionally.
*/
package store
