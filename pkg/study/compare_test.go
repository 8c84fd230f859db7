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
	"testing"

	"github.com/AleutianAI/bestarm/pkg/bandit"
)

// -----------------------------------------------------------------------------
// Mode Comparison Tests
// -----------------------------------------------------------------------------

func TestCompareModes_ContestedField(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical end-to-end test")
	}

	// One strong arm, one close rival, two stragglers. Adaptive
	// allocation starves the stragglers and resolves the contest with
	// fewer total pulls than an even split.
	cfg := DefaultConfig([]float64{0.72, 0.55, 0.45, 0.48})
	cfg.Replications = 40
	cfg.BaseSeed = 7
	cfg.Logger = discardLogger()

	comparison, err := CompareModes(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CompareModes failed: %v", err)
	}

	if comparison.Adaptive.Mode != bandit.ModeAdaptive {
		t.Errorf("adaptive leg ran mode %v", comparison.Adaptive.Mode)
	}
	if comparison.Uniform.Mode != bandit.ModeUniform {
		t.Errorf("uniform leg ran mode %v", comparison.Uniform.Mode)
	}

	if comparison.Adaptive.Pulls.Mean >= comparison.Uniform.Pulls.Mean {
		t.Errorf("adaptive mean pulls %.0f not below uniform %.0f",
			comparison.Adaptive.Pulls.Mean, comparison.Uniform.Pulls.Mean)
	}
	if comparison.PullsTest == nil {
		t.Fatal("expected a pull-count t-test")
	}
	if !comparison.PullsTest.Significant {
		t.Errorf("expected a significant difference, got p=%.4f", comparison.PullsTest.PValue)
	}
	if comparison.EffectD >= 0 {
		t.Errorf("expected negative effect size, got %.2f", comparison.EffectD)
	}
	if comparison.Recommendation != RecommendAdaptive {
		t.Errorf("recommendation = %v, want adaptive", comparison.Recommendation)
	}
	if comparison.PullsDiff == nil || comparison.PullsDiff.Upper >= 0 {
		t.Errorf("expected mean difference interval entirely below zero, got %+v",
			comparison.PullsDiff)
	}
	if comparison.Power <= 0 || comparison.Power > 1 {
		t.Errorf("power %.2f out of range", comparison.Power)
	}
}

func TestCompareModes_TiedArmsInconclusive(t *testing.T) {
	// Tied arms cap both legs at the same step count, which leaves zero
	// variance: no test is possible and the verdict must say so.
	cfg := DefaultConfig([]float64{0.5, 0.5})
	cfg.Replications = 8
	cfg.BaseSeed = 11
	cfg.MaxSteps = 60
	cfg.Delta = 0.001
	cfg.Logger = discardLogger()

	comparison, err := CompareModes(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CompareModes failed: %v", err)
	}

	if comparison.PullsTest != nil {
		t.Errorf("expected no t-test on zero-variance samples, got %+v", comparison.PullsTest)
	}
	if comparison.Recommendation != RecommendInconclusive {
		t.Errorf("recommendation = %v, want inconclusive", comparison.Recommendation)
	}
	if comparison.Adaptive.CappedCount != 8 || comparison.Uniform.CappedCount != 8 {
		t.Errorf("expected all replications capped, got %d / %d",
			comparison.Adaptive.CappedCount, comparison.Uniform.CappedCount)
	}
}

func TestCompareModes_NilConfig(t *testing.T) {
	if _, err := CompareModes(context.Background(), nil); err == nil {
		t.Error("expected an error for nil config")
	}
}

func TestDecideMode(t *testing.T) {
	significant := &TTestResult{Significant: true}
	insignificant := &TTestResult{Significant: false}

	tests := []struct {
		name     string
		test     *TTestResult
		d        float64
		expected ModeRecommendation
	}{
		{"no test", nil, -1.0, RecommendInconclusive},
		{"not significant", insignificant, -1.0, RecommendInconclusive},
		{"significant but negligible", significant, -0.1, RecommendInconclusive},
		{"adaptive cheaper", significant, -0.8, RecommendAdaptive},
		{"uniform cheaper", significant, 0.8, RecommendUniform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideMode(tt.test, tt.d); got != tt.expected {
				t.Errorf("decideMode(%+v, %.1f) = %v, want %v", tt.test, tt.d, got, tt.expected)
			}
		})
	}
}

func TestModeRecommendation_String(t *testing.T) {
	tests := []struct {
		recommendation ModeRecommendation
		expected       string
	}{
		{RecommendInconclusive, "inconclusive"},
		{RecommendAdaptive, "adaptive"},
		{RecommendUniform, "uniform"},
		{ModeRecommendation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.recommendation.String(); got != tt.expected {
			t.Errorf("%d.String(): expected %s, got %s", tt.recommendation, tt.expected, got)
		}
	}
}
