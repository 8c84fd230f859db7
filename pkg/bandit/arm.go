// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bandit implements fixed-confidence best-arm identification for
// Bernoulli bandits: per-arm trial statistics, Bernoulli KL divergence, a
// generalized likelihood-ratio stopping test with an anytime-valid
// threshold, and the Track-and-Stop allocation rule, driven step by step
// by an Experiment state machine.
package bandit

// Arm tracks the observed trial history for one variant.
//
// Description:
//
//	An Arm holds cumulative pull and success counts plus the hidden true
//	success rate used to simulate trial outcomes. The true rate is ground
//	truth for the simulation only; the decision algorithm never reads it.
//
// Thread Safety: NOT safe for concurrent use. Arms are owned and
// serialized by their Experiment.
type Arm struct {
	trueRate  float64
	pulls     int
	successes int
}

// NewArm creates an arm with the given true success rate.
//
// Inputs:
//   - trueRate: Probability a pull succeeds. Clamped to [0, 1].
//
// Outputs:
//   - *Arm: The new arm with zero pulls. Never nil.
func NewArm(trueRate float64) *Arm {
	if trueRate < 0 {
		trueRate = 0
	}
	if trueRate > 1 {
		trueRate = 1
	}
	return &Arm{trueRate: trueRate}
}

// RecordTrial records one pull and its outcome.
func (a *Arm) RecordTrial(success bool) {
	a.pulls++
	if success {
		a.successes++
	}
}

// MeanEstimate returns the empirical success rate.
//
// Outputs:
//   - float64: successes/pulls, or 0.5 when the arm has never been pulled
//     (an uninformative prior keeps early comparisons well-defined).
func (a *Arm) MeanEstimate() float64 {
	if a.pulls == 0 {
		return 0.5
	}
	return float64(a.successes) / float64(a.pulls)
}

// Pulls returns the cumulative pull count.
func (a *Arm) Pulls() int {
	return a.pulls
}

// Successes returns the cumulative success count.
func (a *Arm) Successes() int {
	return a.successes
}

// TrueRate returns the hidden ground-truth success rate.
func (a *Arm) TrueRate() float64 {
	return a.trueRate
}

// Reset zeroes the pull and success counts. The true rate is kept.
func (a *Arm) Reset() {
	a.pulls = 0
	a.successes = 0
}

// ArmStats is a read-only snapshot of one arm, safe to retain.
type ArmStats struct {
	// Index is the arm's position in the experiment.
	Index int

	// Pulls is the cumulative pull count.
	Pulls int

	// Successes is the cumulative success count.
	Successes int

	// Estimate is the empirical success rate (0.5 at zero pulls).
	Estimate float64

	// TrueRate is the simulation ground truth.
	TrueRate float64
}

// bestArmIndex returns the index of the arm with the highest mean
// estimate. Ties break to the lowest index (first maximum in a
// left-to-right scan).
func bestArmIndex(arms []*Arm) int {
	best := 0
	for i := 1; i < len(arms); i++ {
		if arms[i].MeanEstimate() > arms[best].MeanEstimate() {
			best = i
		}
	}
	return best
}

// minPulls returns the smallest pull count across arms.
func minPulls(arms []*Arm) int {
	if len(arms) == 0 {
		return 0
	}
	min := arms[0].Pulls()
	for _, arm := range arms[1:] {
		if arm.Pulls() < min {
			min = arm.Pulls()
		}
	}
	return min
}
