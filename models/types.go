// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// QuotaDimension identifies one demographic axis a quota can constrain.
type QuotaDimension string

// Demographic dimensions. The values double as the wire keys accepted in
// the demographics map of a validate request.
const (
	DimensionAge                  QuotaDimension = "age"
	DimensionCountry              QuotaDimension = "country"
	DimensionGender               QuotaDimension = "gender"
	DimensionEducationLevel       QuotaDimension = "educationLevel"
	DimensionHouseholdIncome      QuotaDimension = "householdIncome"
	DimensionEmploymentStatus     QuotaDimension = "employmentStatus"
	DimensionDailyHoursOnline     QuotaDimension = "dailyHoursOnline"
	DimensionTechnicalProficiency QuotaDimension = "technicalProficiency"
)

// Dimensions lists every known dimension in a fixed order.
var Dimensions = []QuotaDimension{
	DimensionAge,
	DimensionCountry,
	DimensionGender,
	DimensionEducationLevel,
	DimensionHouseholdIncome,
	DimensionEmploymentStatus,
	DimensionDailyHoursOnline,
	DimensionTechnicalProficiency,
}

// ValidDimension reports whether key names a known demographic dimension.
func ValidDimension(key string) bool {
	for _, d := range Dimensions {
		if string(d) == key {
			return true
		}
	}
	return false
}

// Combination mode constants
const (
	ModePerDimension = "PER_DIMENSION"
	ModeCrossProduct = "CROSS_PRODUCT"
)

// Quota type constants
const (
	QuotaTypeAbsolute   = "absolute"
	QuotaTypePercentage = "percentage"
)

// Validation status constants
const (
	StatusQualified = "QUALIFIED"
	StatusNoConfig  = "NO_CONFIG"
	StatusOverquota = "OVERQUOTA"
	StatusError     = "ERROR"
)

// CellKeyTotal is the reserved cell key for the study-wide participant limit.
const CellKeyTotal = "total"

// Domain types

type QuotaRule struct {
	ID        string         `json:"id"`
	Dimension QuotaDimension `json:"dimension"`
	Value     string         `json:"value"`
	Cap       int            `json:"cap"`
	QuotaType string         `json:"quotaType"`
	IsActive  bool           `json:"isActive"`
}

type QuotaConfig struct {
	ResearchID       string      `json:"researchId"`
	CombinationMode  string      `json:"combinationMode"`
	Enabled          bool        `json:"enabled"`
	ParticipantLimit int         `json:"participantLimit"`
	Rules            []QuotaRule `json:"rules"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// QuotaCell is the unit of capacity enforcement: one demographic value, one
// composite tuple, or the reserved study-wide total.
type QuotaCell struct {
	Key       string `json:"cellKey"`
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
	Cap       int    `json:"cap"`
}

type MatchedCell struct {
	CellKey   string `json:"cellKey"`
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
	Remaining int    `json:"remaining"`
}

type ValidationResult struct {
	Status       string        `json:"status"`
	MatchedCells []MatchedCell `json:"matchedCells"`
	ResearchID   string        `json:"researchId"`
	Timestamp    time.Time     `json:"timestamp"`
}

type CellStats struct {
	CellKey   string  `json:"cellKey"`
	Dimension string  `json:"dimension"`
	Value     string  `json:"value"`
	Count     int     `json:"count"`
	Cap       int     `json:"cap"`
	Percent   float64 `json:"percent"`
}

// Request types

type ValidateRequest struct {
	ResearchID   string            `json:"researchId"`
	Demographics map[string]string `json:"demographics"`
}

type ResetRequest struct {
	ResearchID   string `json:"researchId"`
	ConfirmReset bool   `json:"confirmReset"`
}

type QuotaRuleInput struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
	Cap       int    `json:"cap"`
	QuotaType string `json:"quotaType,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

type SaveQuotaConfigRequest struct {
	CombinationMode  string           `json:"combinationMode,omitempty"`
	Enabled          *bool            `json:"enabled,omitempty"`
	ParticipantLimit int              `json:"participantLimit,omitempty"`
	Rules            []QuotaRuleInput `json:"rules"`
}

// Response types

type StatsResponse struct {
	ResearchID    string      `json:"researchId"`
	Stats         []CellStats `json:"stats"`
	TotalCounters int         `json:"totalCounters"`
	Summary       string      `json:"summary"`
}

type ResetResponse struct {
	ResearchID    string `json:"researchId"`
	CountersReset int    `json:"countersReset"`
	Message       string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
