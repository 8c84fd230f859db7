// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package study

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/AleutianAI/bestarm/pkg/bandit"
)

// -----------------------------------------------------------------------------
// Runner Construction Tests
// -----------------------------------------------------------------------------

func TestNewRunner_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewRunner(nil)
		if !errors.Is(err, bandit.ErrNoArms) {
			t.Errorf("expected ErrNoArms, got %v", err)
		}
	})

	t.Run("no arms", func(t *testing.T) {
		_, err := NewRunner(&Config{})
		if !errors.Is(err, bandit.ErrNoArms) {
			t.Errorf("expected ErrNoArms, got %v", err)
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		_, err := NewRunner(&Config{TrueRates: []float64{0.5, 1.5}})
		if !errors.Is(err, bandit.ErrInvalidRate) {
			t.Errorf("expected ErrInvalidRate, got %v", err)
		}
	})

	t.Run("invalid delta", func(t *testing.T) {
		for _, delta := range []float64{-0.1, 1, 2.5} {
			_, err := NewRunner(&Config{TrueRates: []float64{0.5, 0.6}, Delta: delta})
			if !errors.Is(err, bandit.ErrInvalidDelta) {
				t.Errorf("delta %v: expected ErrInvalidDelta, got %v", delta, err)
			}
		}
	})

	t.Run("zero delta means default", func(t *testing.T) {
		_, err := NewRunner(&Config{TrueRates: []float64{0.5, 0.6}})
		if err != nil {
			t.Errorf("unexpected error for zero delta: %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// Study Tests
// -----------------------------------------------------------------------------

func TestRunner_Run_Reproducible(t *testing.T) {
	run := func() *Result {
		cfg := DefaultConfig([]float64{0.9, 0.1})
		cfg.Replications = 10
		cfg.BaseSeed = 77
		cfg.Parallelism = 4
		cfg.Logger = discardLogger()

		runner, err := NewRunner(cfg)
		if err != nil {
			t.Fatalf("NewRunner failed: %v", err)
		}
		result, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if first.CorrectRate != second.CorrectRate {
		t.Errorf("correct rates diverged: %v vs %v", first.CorrectRate, second.CorrectRate)
	}
	if first.Pulls.Mean != second.Pulls.Mean {
		t.Errorf("mean pulls diverged: %v vs %v", first.Pulls.Mean, second.Pulls.Mean)
	}
	for i := range first.Wins {
		if first.Wins[i] != second.Wins[i] {
			t.Errorf("arm %d wins diverged: %d vs %d", i, first.Wins[i], second.Wins[i])
		}
	}
}

func TestRunner_Run_IdentifiesBestArm(t *testing.T) {
	cfg := DefaultConfig([]float64{0.2, 0.8})
	cfg.Replications = 30
	cfg.BaseSeed = 42
	cfg.Logger = discardLogger()

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TrueBestArm != 1 {
		t.Errorf("TrueBestArm = %d, want 1", result.TrueBestArm)
	}
	if result.CorrectRate < 0.9 {
		t.Errorf("correct rate %.2f below 0.9 on a wide gap", result.CorrectRate)
	}
	if result.StoppedCount <= result.CappedCount {
		t.Errorf("expected most replications to stop: stopped=%d capped=%d",
			result.StoppedCount, result.CappedCount)
	}

	totalWins := 0
	for _, w := range result.Wins {
		totalWins += w
	}
	if totalWins != cfg.Replications {
		t.Errorf("wins sum to %d, want %d", totalWins, cfg.Replications)
	}

	if !result.CorrectCI.Contains(result.CorrectRate) {
		t.Errorf("Wilson interval [%.3f, %.3f] does not contain the rate %.3f",
			result.CorrectCI.Lower, result.CorrectCI.Upper, result.CorrectRate)
	}

	shareSum := 0.0
	for _, s := range result.PullShares {
		shareSum += s
	}
	if math.Abs(shareSum-1) > 1e-9 {
		t.Errorf("pull shares sum to %v, want 1", shareSum)
	}

	if result.Pulls.Count != cfg.Replications {
		t.Errorf("pull sample count = %d, want %d", result.Pulls.Count, cfg.Replications)
	}
	if result.Elapsed <= 0 {
		t.Error("elapsed duration not recorded")
	}
}

func TestRunner_Run_CappedStudy(t *testing.T) {
	cfg := DefaultConfig([]float64{0.5, 0.5})
	cfg.Replications = 10
	cfg.BaseSeed = 3
	cfg.MaxSteps = 50
	cfg.Delta = 0.001 // keep noise from firing the rule inside 50 steps
	cfg.Logger = discardLogger()

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.CappedCount != 10 || result.StoppedCount != 0 {
		t.Errorf("expected 10 capped / 0 stopped, got %d / %d",
			result.CappedCount, result.StoppedCount)
	}
	if result.Pulls.Min != 50 || result.Pulls.Max != 50 {
		t.Errorf("expected every replication to use exactly 50 pulls, got min=%.0f max=%.0f",
			result.Pulls.Min, result.Pulls.Max)
	}
}

func TestRunner_Run_HonorsContext(t *testing.T) {
	cfg := DefaultConfig([]float64{0.5, 0.5})
	cfg.Replications = 5
	cfg.Logger = discardLogger()

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Helper Tests
// -----------------------------------------------------------------------------

func TestTrueBestArm(t *testing.T) {
	tests := []struct {
		rates    []float64
		expected int
	}{
		{[]float64{0.1}, 0},
		{[]float64{0.9, 0.1}, 0},
		{[]float64{0.3, 0.9, 0.9}, 1}, // ties break low
		{[]float64{0.55, 0.45, 0.72, 0.48}, 2},
	}
	for _, tt := range tests {
		if got := trueBestArm(tt.rates); got != tt.expected {
			t.Errorf("trueBestArm(%v) = %d, want %d", tt.rates, got, tt.expected)
		}
	}
}

// discardLogger silences study output in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
