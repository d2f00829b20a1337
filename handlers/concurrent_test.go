// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/testutil"
)

// TestConcurrentValidations verifies that simultaneous validations racing for
// the same quota cell admit exactly cap participants and never oversell
func TestConcurrentValidations(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	validationHandler := NewValidationHandler(conn, cfg)

	researchID := testutil.CreateTestQuotaConfig(t, conn, models.ModePerDimension, 0,
		[]models.QuotaRule{testutil.Rule(models.DimensionAge, "18-24", 3)})

	numParticipants := 10
	var qualified, overquota atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numParticipants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(models.ValidateRequest{
				ResearchID:   researchID,
				Demographics: map[string]string{"age": "18-24"},
			})
			req := httptest.NewRequest("POST", "/quota/validate", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			validationHandler.Validate(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
				return
			}

			var result models.ValidationResult
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Errorf("Failed to decode response: %v", err)
				return
			}
			switch result.Status {
			case models.StatusQualified:
				qualified.Add(1)
			case models.StatusOverquota:
				overquota.Add(1)
			default:
				t.Errorf("Unexpected status %s", result.Status)
			}
		}()
	}

	wg.Wait()

	// Exactly cap participants get in, the rest are turned away
	if qualified.Load() != 3 {
		t.Errorf("Expected exactly 3 QUALIFIED, got %d", qualified.Load())
	}
	if overquota.Load() != 7 {
		t.Errorf("Expected 7 OVERQUOTA, got %d", overquota.Load())
	}

	if count := testutil.CounterCount(t, conn, researchID, "age=18-24"); count != 3 {
		t.Errorf("Stored count = %d, want 3", count)
	}
}

// TestConcurrentValidationsAllOrNothing verifies that when a later cell
// rejects a participant, the earlier cells they touched are released even
// under contention. With age effectively unlimited and country capped at 3,
// the age counter must settle at exactly the number of admitted participants.
func TestConcurrentValidationsAllOrNothing(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	validationHandler := NewValidationHandler(conn, cfg)

	researchID := testutil.CreateTestQuotaConfig(t, conn, models.ModePerDimension, 0,
		[]models.QuotaRule{
			testutil.Rule(models.DimensionAge, "18-24", 100),
			testutil.Rule(models.DimensionCountry, "ES", 3),
		})

	numParticipants := 10
	var qualified atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numParticipants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(models.ValidateRequest{
				ResearchID:   researchID,
				Demographics: map[string]string{"age": "18-24", "country": "ES"},
			})
			req := httptest.NewRequest("POST", "/quota/validate", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			validationHandler.Validate(w, req)

			var result models.ValidationResult
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Errorf("Failed to decode response: %v", err)
				return
			}
			if result.Status == models.StatusQualified {
				qualified.Add(1)
			}
		}()
	}

	wg.Wait()

	if qualified.Load() != 3 {
		t.Errorf("Expected exactly 3 QUALIFIED, got %d", qualified.Load())
	}

	// Rejected participants must not leave phantom age reservations behind
	if count := testutil.CounterCount(t, conn, researchID, "age=18-24"); count != 3 {
		t.Errorf("Age count = %d, want 3 (rollback leaked reservations)", count)
	}
	if count := testutil.CounterCount(t, conn, researchID, "country=ES"); count != 3 {
		t.Errorf("Country count = %d, want 3", count)
	}
}

// TestParallelStudies verifies that validations against different studies
// don't interfere with each other's counters
func TestParallelStudies(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	validationHandler := NewValidationHandler(conn, cfg)

	numStudies := 5
	studyIDs := make([]string, numStudies)
	for i := 0; i < numStudies; i++ {
		studyIDs[i] = testutil.CreateTestQuotaConfig(t, conn, models.ModePerDimension, 0,
			[]models.QuotaRule{testutil.Rule(models.DimensionGender, "female", 2)})
	}

	var wg sync.WaitGroup
	for i := 0; i < numStudies; i++ {
		wg.Add(1)
		go func(studyIdx int) {
			defer wg.Done()

			// Fill the study's single cell exactly to cap
			for j := 0; j < 2; j++ {
				body, _ := json.Marshal(models.ValidateRequest{
					ResearchID:   studyIDs[studyIdx],
					Demographics: map[string]string{"gender": "female"},
				})
				req := httptest.NewRequest("POST", "/quota/validate", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()

				validationHandler.Validate(w, req)

				var result models.ValidationResult
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("Study %d: failed to decode response: %v", studyIdx, err)
					return
				}
				if result.Status != models.StatusQualified {
					t.Errorf("Study %d admission %d: status %s, want QUALIFIED", studyIdx, j, result.Status)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	for i, id := range studyIDs {
		if count := testutil.CounterCount(t, conn, id, "gender=female"); count != 2 {
			t.Errorf("Study %d count = %d, want 2", i, count)
		}
	}
}
