// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bandit

import (
	"errors"
	"math"
	"testing"
)

func mustStoppingRule(t *testing.T, delta float64, warmup int) *StoppingRule {
	t.Helper()
	rule, err := NewStoppingRule(delta, warmup, nil)
	if err != nil {
		t.Fatalf("NewStoppingRule(%v, %d) failed: %v", delta, warmup, err)
	}
	return rule
}

func TestNewStoppingRule_RejectsInvalidDelta(t *testing.T) {
	for _, delta := range []float64{0, 1, -0.5, 1.5} {
		_, err := NewStoppingRule(delta, DefaultStoppingWarmup, nil)
		if !errors.Is(err, ErrInvalidDelta) {
			t.Errorf("NewStoppingRule(delta=%v) error = %v, want ErrInvalidDelta", delta, err)
		}
	}
}

func TestNewStoppingRule_ClampsNegativeWarmup(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, -1)
	if got := rule.WarmupPulls(); got != DefaultStoppingWarmup {
		t.Errorf("WarmupPulls() = %d, want default %d", got, DefaultStoppingWarmup)
	}
}

func TestStoppingRule_Threshold_KnownValue(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, DefaultStoppingWarmup)
	// threshold(0) = ln((ln(e) + 1) / delta) = ln(2/0.05) = ln(40)
	want := math.Log(40)
	if got := rule.Threshold(0); math.Abs(got-want) > 1e-12 {
		t.Errorf("Threshold(0) = %v, want %v", got, want)
	}
}

func TestStoppingRule_Threshold_DecreasesWithDelta(t *testing.T) {
	strict := mustStoppingRule(t, 0.01, DefaultStoppingWarmup)
	loose := mustStoppingRule(t, 0.10, DefaultStoppingWarmup)

	for _, totalPulls := range []int{0, 1, 10, 100, 5000, 1000000} {
		s, l := strict.Threshold(totalPulls), loose.Threshold(totalPulls)
		if s <= l {
			t.Errorf("Threshold(t=%d): delta=0.01 gives %v, delta=0.10 gives %v; want strictly larger at smaller delta",
				totalPulls, s, l)
		}
	}
}

func TestStoppingRule_Threshold_GrowsWithTime(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, DefaultStoppingWarmup)
	previous := rule.Threshold(0)
	for _, totalPulls := range []int{10, 100, 1000, 100000} {
		current := rule.Threshold(totalPulls)
		if current <= previous {
			t.Errorf("Threshold(%d) = %v, want above threshold at earlier time %v",
				totalPulls, current, previous)
		}
		previous = current
	}
}

func TestStoppingRule_NoStopBelowWarmup(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	// Overwhelming separation, but one arm has only 11 pulls.
	arms := []*Arm{
		trainArm(0.95, 200, 190),
		trainArm(0.05, 11, 0),
	}

	if rule.ShouldStop(arms, 211) {
		t.Error("ShouldStop fired below the per-arm warm-up floor")
	}
}

func TestStoppingRule_StopsOnClearEvidence(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	arms := []*Arm{
		trainArm(0.9, 100, 90),
		trainArm(0.1, 100, 10),
	}

	if !rule.ShouldStop(arms, 200) {
		t.Error("ShouldStop = false despite overwhelming evidence against the only challenger")
	}
}

func TestStoppingRule_HoldsOnTiedEstimates(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	arms := []*Arm{
		trainArm(0.5, 500, 250),
		trainArm(0.5, 500, 250),
	}

	if rule.ShouldStop(arms, 1000) {
		t.Error("ShouldStop fired with zero evidence (tied estimates)")
	}
}

func TestStoppingRule_EveryChallengerMustBeRejected(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	// The distant challenger is clearly rejected; the close one is not.
	arms := []*Arm{
		trainArm(0.52, 100, 52),
		trainArm(0.50, 100, 50),
		trainArm(0.05, 100, 5),
	}

	if rule.ShouldStop(arms, 300) {
		t.Error("ShouldStop fired while the closest challenger was not rejected")
	}
}

func TestStoppingRule_SingleArmStopsAfterWarmup(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	arm := trainArm(0.6, 12, 7)

	if !rule.ShouldStop([]*Arm{arm}, 12) {
		t.Error("single-arm experiment should stop once the warm-up floor is met")
	}
	if rule.ShouldStop([]*Arm{trainArm(0.6, 11, 7)}, 11) {
		t.Error("single-arm experiment stopped below the warm-up floor")
	}
}

func TestStoppingRule_EmptyArms(t *testing.T) {
	rule := mustStoppingRule(t, 0.05, 12)
	if rule.ShouldStop(nil, 0) {
		t.Error("ShouldStop(nil) = true, want false")
	}
}
