// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/quota-gate/models"
	"github.com/danielhkuo/quota-gate/testutil"
)

func testCell(key string, cap int) models.QuotaCell {
	return models.QuotaCell{Key: key, Dimension: "age", Value: "18-24", Cap: cap}
}

func TestIncrementIfBelowCap(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()
	cell := testCell("age=18-24", 2)

	// First reference creates the counter with count=1
	res, err := s.IncrementIfBelowCap(ctx, "research-1", cell)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if !res.OK || res.NewCount != 1 {
		t.Errorf("First increment = %+v, want OK with count 1", res)
	}

	res, err = s.IncrementIfBelowCap(ctx, "research-1", cell)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if !res.OK || res.NewCount != 2 {
		t.Errorf("Second increment = %+v, want OK with count 2", res)
	}

	// At cap now: the conditional write must refuse
	res, err = s.IncrementIfBelowCap(ctx, "research-1", cell)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if res.OK {
		t.Errorf("Third increment succeeded past cap: %+v", res)
	}

	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 2 {
		t.Errorf("Stored count = %d, want 2", count)
	}
}

func TestIncrementIfBelowCap_ZeroCap(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)

	res, err := s.IncrementIfBelowCap(context.Background(), "research-1", testCell("age=18-24", 0))
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if res.OK {
		t.Error("Zero-cap cell admitted a participant")
	}

	// No row should have been materialized
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 0 {
		t.Errorf("Stored count = %d, want 0", count)
	}
}

func TestIncrementIfBelowCap_Concurrent(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	cell := testCell("age=18-24", 5)

	numWriters := 20
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.IncrementIfBelowCap(context.Background(), "research-1", cell)
			if err != nil {
				t.Errorf("Increment failed: %v", err)
				return
			}
			if res.OK {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Exactly cap increments may win, regardless of arrival order
	if successCount.Load() != 5 {
		t.Errorf("Expected exactly 5 successful increments, got %d", successCount.Load())
	}
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 5 {
		t.Errorf("Stored count = %d, want 5 (count must never exceed cap)", count)
	}
}

func TestDecrement(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()
	cell := testCell("age=18-24", 5)

	for i := 0; i < 2; i++ {
		if _, err := s.IncrementIfBelowCap(ctx, "research-1", cell); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	if err := s.Decrement(ctx, "research-1", "age=18-24"); err != nil {
		t.Fatalf("Decrement failed: %v", err)
	}
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 1 {
		t.Errorf("Count after decrement = %d, want 1", count)
	}

	// Clamped at zero
	if err := s.Decrement(ctx, "research-1", "age=18-24"); err != nil {
		t.Fatalf("Decrement failed: %v", err)
	}
	if err := s.Decrement(ctx, "research-1", "age=18-24"); err != nil {
		t.Fatalf("Decrement at zero failed: %v", err)
	}
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 0 {
		t.Errorf("Count after clamped decrement = %d, want 0", count)
	}

	// Decrementing a cell that never existed is a no-op, not an error
	if err := s.Decrement(ctx, "research-1", "country=ES"); err != nil {
		t.Errorf("Decrement on missing cell failed: %v", err)
	}
}

func TestCount(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()

	count, err := s.Count(ctx, "research-1", "age=18-24")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count for missing cell = %d, want 0", count)
	}

	if _, err := s.IncrementIfBelowCap(ctx, "research-1", testCell("age=18-24", 5)); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	count, err = s.Count(ctx, "research-1", "age=18-24")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestStats(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()

	ageCell := testCell("age=18-24", 4)
	countryCell := models.QuotaCell{Key: "country=ES", Dimension: "country", Value: "ES", Cap: 10}

	for i := 0; i < 3; i++ {
		if _, err := s.IncrementIfBelowCap(ctx, "research-1", ageCell); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}
	if _, err := s.IncrementIfBelowCap(ctx, "research-1", countryCell); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	// A different study must not show up in research-1's stats
	if _, err := s.IncrementIfBelowCap(ctx, "research-2", ageCell); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	stats, err := s.Stats(ctx, "research-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if len(stats) != 2 {
		t.Fatalf("Expected 2 stats rows, got %d", len(stats))
	}
	// Ordered by cell key
	if stats[0].CellKey != "age=18-24" || stats[1].CellKey != "country=ES" {
		t.Errorf("Stats order = [%s, %s], want [age=18-24, country=ES]", stats[0].CellKey, stats[1].CellKey)
	}
	if stats[0].Count != 3 || stats[0].Cap != 4 || stats[0].Percent != 75.0 {
		t.Errorf("Age stats = %+v, want count 3 cap 4 percent 75", stats[0])
	}
	if stats[1].Count != 1 || stats[1].Cap != 10 || stats[1].Percent != 10.0 {
		t.Errorf("Country stats = %+v, want count 1 cap 10 percent 10", stats[1])
	}
}

func TestReset(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.IncrementIfBelowCap(ctx, "research-1", testCell("age=18-24", 5)); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}
	if _, err := s.IncrementIfBelowCap(ctx, "research-2", testCell("age=18-24", 5)); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	n, err := s.Reset(ctx, "research-1")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Reset touched %d counters, want 1", n)
	}
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 0 {
		t.Errorf("Count after reset = %d, want 0", count)
	}

	// Other studies untouched
	if count := testutil.CounterCount(t, conn, "research-2", "age=18-24"); count != 1 {
		t.Errorf("Other study's count = %d, want 1", count)
	}

	// Idempotent: a second reset leaves everything at zero
	if _, err := s.Reset(ctx, "research-1"); err != nil {
		t.Fatalf("Second reset failed: %v", err)
	}
	if count := testutil.CounterCount(t, conn, "research-1", "age=18-24"); count != 0 {
		t.Errorf("Count after second reset = %d, want 0", count)
	}
}

func TestQuotaConfigRoundTrip(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	s := New(conn)
	ctx := context.Background()

	_, err := s.GetQuotaConfig(ctx, "missing")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	cfg := &models.QuotaConfig{
		ResearchID:       "research-1",
		CombinationMode:  models.ModePerDimension,
		Enabled:          true,
		ParticipantLimit: 30,
		Rules: []models.QuotaRule{
			testutil.Rule(models.DimensionGender, "female", 3),
			testutil.Rule(models.DimensionAge, "18-24", 2),
		},
	}
	if err := s.SaveQuotaConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveQuotaConfig failed: %v", err)
	}

	loaded, err := s.GetQuotaConfig(ctx, "research-1")
	if err != nil {
		t.Fatalf("GetQuotaConfig failed: %v", err)
	}
	if loaded.CombinationMode != models.ModePerDimension || !loaded.Enabled || loaded.ParticipantLimit != 30 {
		t.Errorf("Loaded config = %+v", loaded)
	}
	if len(loaded.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(loaded.Rules))
	}
	// Author order preserved via ordinal
	if loaded.Rules[0].Dimension != models.DimensionGender || loaded.Rules[1].Dimension != models.DimensionAge {
		t.Errorf("Rule order = [%s, %s], want [gender, age]", loaded.Rules[0].Dimension, loaded.Rules[1].Dimension)
	}

	// Saving again replaces the rule set
	cfg.Rules = []models.QuotaRule{testutil.Rule(models.DimensionCountry, "ES", 7)}
	cfg.Enabled = false
	if err := s.SaveQuotaConfig(ctx, cfg); err != nil {
		t.Fatalf("Second SaveQuotaConfig failed: %v", err)
	}

	loaded, err = s.GetQuotaConfig(ctx, "research-1")
	if err != nil {
		t.Fatalf("GetQuotaConfig failed: %v", err)
	}
	if loaded.Enabled {
		t.Error("Expected config to be disabled after update")
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].Dimension != models.DimensionCountry {
		t.Errorf("Rules after replace = %+v, want single country rule", loaded.Rules)
	}
}
