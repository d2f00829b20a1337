// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/db"
	"github.com/danielhkuo/quota-gate/models"
)

// SetupTestDB creates a fresh in-memory sqlite database with the full
// schema. Each call gets its own database, so tests are isolated without an
// external server.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// One shared handle: the in-memory database lives only while a
	// connection holds it open, and a single connection keeps concurrent
	// statements serialized without SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            8090,
		DatabaseURL:     "file:test?mode=memory",
		DatabaseType:    "sqlite",
		ValidateTimeout: 5 * time.Second,
		StoreRetries:    3,
	}
}

// Rule builds an active absolute quota rule for tests
func Rule(dimension models.QuotaDimension, value string, cap int) models.QuotaRule {
	return models.QuotaRule{
		ID:        uuid.NewString(),
		Dimension: dimension,
		Value:     value,
		Cap:       cap,
		QuotaType: models.QuotaTypeAbsolute,
		IsActive:  true,
	}
}

// CreateTestQuotaConfig inserts an enabled quota config with the given rules
// and returns the generated research ID
func CreateTestQuotaConfig(t *testing.T, conn *sql.DB, mode string, participantLimit int, rules []models.QuotaRule) string {
	t.Helper()

	researchID := uuid.NewString()
	now := time.Now()

	_, err := conn.Exec(`
		INSERT INTO quota_config (research_id, combination_mode, enabled, participant_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, researchID, mode, true, participantLimit, now, now)
	if err != nil {
		t.Fatalf("Failed to create test quota config: %v", err)
	}

	for i, rule := range rules {
		_, err := conn.Exec(`
			INSERT INTO quota_rule (id, research_id, dimension, value, cap, quota_type, is_active, ordinal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rule.ID, researchID, string(rule.Dimension), rule.Value, rule.Cap, rule.QuotaType, rule.IsActive, i)
		if err != nil {
			t.Fatalf("Failed to create test quota rule: %v", err)
		}
	}

	return researchID
}

// DisableQuotaConfig flips a config's enabled flag off
func DisableQuotaConfig(t *testing.T, conn *sql.DB, researchID string) {
	t.Helper()

	_, err := conn.Exec(`UPDATE quota_config SET enabled = $1 WHERE research_id = $2`, false, researchID)
	if err != nil {
		t.Fatalf("Failed to disable quota config: %v", err)
	}
}

// CounterCount reads the stored count for a cell, or 0 if the cell was
// never incremented
func CounterCount(t *testing.T, conn *sql.DB, researchID, cellKey string) int {
	t.Helper()

	var count int
	err := conn.QueryRow(`
		SELECT count FROM quota_counter WHERE research_id = $1 AND cell_key = $2
	`, researchID, cellKey).Scan(&count)
	if err == sql.ErrNoRows {
		return 0
	}
	if err != nil {
		t.Fatalf("Failed to read counter: %v", err)
	}

	return count
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return req
}
