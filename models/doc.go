// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types.

# Domain Model

A research study owns at most one QuotaConfig. A config carries an ordered
list of QuotaRule entries - one admissible value for one demographic
dimension, with a cap - plus a combination mode deciding whether matched
rules are enforced independently (PER_DIMENSION) or as a single composite
cell (CROSS_PRODUCT), and an optional study-wide participant limit.

QuotaCell is the unit counters are keyed on; cells are derived from config
at validation time and materialized in storage on first increment. The core
invariant is count <= cap for every cell at all times, under any number of
concurrent writers.

# Wire Conventions

Demographic keys in a validate request use the camelCase dimension names
(age, country, gender, educationLevel, householdIncome, employmentStatus,
dailyHoursOnline, technicalProficiency). Unrecognized keys are ignored.
Validation responses carry one of QUALIFIED, NO_CONFIG, OVERQUOTA or ERROR.
*/
package models
