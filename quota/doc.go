// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package quota implements the admission control engine: cell matching and the
all-or-nothing acquisition protocol.

# Matching

MatchCells is a pure function from (demographics, config) to the ordered
list of quota cells the participant belongs to. PER_DIMENSION configurations
yield one cell per matched rule; CROSS_PRODUCT configurations collapse the
matched tuple into a single composite cell capped at the minimum
contributing cap.

# Admission

Validator.Validate acquires each candidate cell through the store's
conditional increment, strictly in match order. The possible outcomes:

  - QUALIFIED: every cell acquired; the result carries each cell's
    remaining capacity.
  - NO_CONFIG: the study has no enabled configuration, or nothing
    constrains this participant. Callers treat this as admit-through.
  - OVERQUOTA: some cell was at capacity; increments already acquired in
    this call were rolled back, and the result names the exhausted cell.
  - ERROR: the store failed past bounded retries, or a rollback decrement
    could not be applied (logged for reconciliation).

Two concurrent validations may interleave arbitrarily; the count <= cap
invariant holds regardless because the only mutation path is the store's
atomic conditional increment.
*/
package quota
