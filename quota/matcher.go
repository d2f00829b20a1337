// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quota

import (
	"sort"
	"strings"

	"github.com/danielhkuo/quota-gate/models"
)

// NormalizeDemographics filters a raw demographics map down to the known
// dimensions. Unrecognized keys and empty values are ignored, not rejected.
func NormalizeDemographics(raw map[string]string) map[models.QuotaDimension]string {
	out := make(map[models.QuotaDimension]string, len(raw))
	for key, value := range raw {
		if value == "" || !models.ValidDimension(key) {
			continue
		}
		out[models.QuotaDimension(key)] = value
	}
	return out
}

// EffectiveCap resolves a rule's configured cap to an absolute participant
// count. Percentage rules are taken relative to the study's participant
// limit, rounded up; with no limit configured the base defaults to 100, so
// a 40% rule caps at 40.
func EffectiveCap(rule models.QuotaRule, participantLimit int) int {
	if rule.QuotaType != models.QuotaTypePercentage {
		return rule.Cap
	}
	base := participantLimit
	if base <= 0 {
		base = 100
	}
	return (rule.Cap*base + 99) / 100
}

// TotalCell is the reserved research-wide cell enforcing the study's
// participant limit through the same counter machinery as rule cells.
func TotalCell(participantLimit int) models.QuotaCell {
	return models.QuotaCell{
		Key:       models.CellKeyTotal,
		Dimension: models.CellKeyTotal,
		Value:     "",
		Cap:       participantLimit,
	}
}

// MatchCells maps a participant's demographics plus a quota configuration to
// the ordered list of candidate cells the participant belongs to. It is a
// pure function: given the same inputs it always returns the same cells in
// the same order, which fixes the increment attempt order and therefore the
// rollback order during validation.
//
// Under PER_DIMENSION each active rule whose value equals the participant's
// value for that dimension yields one cell, in rule order. Dimensions the
// participant left out, or rules the participant doesn't match, contribute
// nothing: unconstrained dimensions never block admission.
//
// Under CROSS_PRODUCT the matched (dimension, value) pairs collapse into one
// composite cell keyed by the pairs sorted by dimension name, capped at the
// minimum effective cap among the contributing rules. If any dimension that
// carries an active rule has no participant value, no cell cap can be
// evaluated and the result is empty.
func MatchCells(demographics map[models.QuotaDimension]string, cfg *models.QuotaConfig) []models.QuotaCell {
	if cfg.CombinationMode == models.ModeCrossProduct {
		return matchCrossProduct(demographics, cfg)
	}
	return matchPerDimension(demographics, cfg)
}

func matchPerDimension(demographics map[models.QuotaDimension]string, cfg *models.QuotaConfig) []models.QuotaCell {
	var cells []models.QuotaCell
	for _, rule := range cfg.Rules {
		if !rule.IsActive {
			continue
		}
		if demographics[rule.Dimension] != rule.Value {
			continue
		}
		cells = append(cells, models.QuotaCell{
			Key:       string(rule.Dimension) + "=" + rule.Value,
			Dimension: string(rule.Dimension),
			Value:     rule.Value,
			Cap:       EffectiveCap(rule, cfg.ParticipantLimit),
		})
	}
	return cells
}

func matchCrossProduct(demographics map[models.QuotaDimension]string, cfg *models.QuotaConfig) []models.QuotaCell {
	ruled := map[models.QuotaDimension]bool{}
	for _, rule := range cfg.Rules {
		if rule.IsActive {
			ruled[rule.Dimension] = true
		}
	}
	for dim := range ruled {
		if _, ok := demographics[dim]; !ok {
			// A ruled dimension without a participant value leaves the
			// composite cell undefined.
			return nil
		}
	}

	type contribution struct {
		dimension models.QuotaDimension
		value     string
		cap       int
	}
	var matched []contribution
	for _, rule := range cfg.Rules {
		if !rule.IsActive || demographics[rule.Dimension] != rule.Value {
			continue
		}
		matched = append(matched, contribution{
			dimension: rule.Dimension,
			value:     rule.Value,
			cap:       EffectiveCap(rule, cfg.ParticipantLimit),
		})
	}
	if len(matched) == 0 {
		return nil
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].dimension < matched[j].dimension })

	parts := make([]string, 0, len(matched))
	dims := make([]string, 0, len(matched))
	values := make([]string, 0, len(matched))
	minCap := matched[0].cap
	for _, m := range matched {
		parts = append(parts, string(m.dimension)+"="+m.value)
		dims = append(dims, string(m.dimension))
		values = append(values, m.value)
		if m.cap < minCap {
			minCap = m.cap
		}
	}

	return []models.QuotaCell{{
		Key:       strings.Join(parts, "&"),
		Dimension: strings.Join(dims, "&"),
		Value:     strings.Join(values, "&"),
		Cap:       minCap,
	}}
}
