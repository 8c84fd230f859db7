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
	"log/slog"
	"math"
)

const (
	// DefaultStoppingWarmup is the minimum per-arm pull count before the
	// stopping test may fire. Mirrors the allocator's warm-up so the test
	// cannot trigger on early noise.
	DefaultStoppingWarmup = 12

	// DefaultDelta is the default error tolerance: the acceptable
	// probability of declaring the wrong arm the winner.
	DefaultDelta = 0.05
)

// ErrInvalidDelta indicates an error tolerance outside (0, 1).
var ErrInvalidDelta = errors.New("error tolerance delta must be in (0, 1)")

// StoppingRule decides when enough evidence exists to declare a winner.
//
// Description:
//
//	The rule compares every challenger's GLRT statistic against an
//	anytime-valid threshold
//
//	    threshold(t) = ln((ln(t + e) + 1) / delta)
//
//	where t is the total pull count and e is Euler's number. The bound is
//	of law-of-iterated-logarithm shape: it grows slowly enough that the
//	false-stop probability across ALL repeated evaluations stays below
//	delta. A fixed-sample-size threshold must not be substituted here,
//	because the test runs again after every step.
//
//	The rule fires only when EVERY challenger is rejected at once. With a
//	single arm there are no challengers, so it fires as soon as the
//	warm-up floor is met.
//
// Thread Safety: Stateless after construction; safe for concurrent use.
type StoppingRule struct {
	delta       float64
	warmupPulls int
	logger      *slog.Logger
}

// NewStoppingRule creates a stopping rule.
//
// Inputs:
//   - delta: Error tolerance in (0, 1). Smaller values demand more
//     evidence before stopping.
//   - warmupPulls: Per-arm pull floor before the test may fire. Negative
//     values fall back to DefaultStoppingWarmup.
//   - logger: Structured logger. If nil, uses slog.Default().
//
// Outputs:
//   - *StoppingRule: The new rule.
//   - error: ErrInvalidDelta if delta is outside (0, 1).
func NewStoppingRule(delta float64, warmupPulls int, logger *slog.Logger) (*StoppingRule, error) {
	if delta <= 0 || delta >= 1 {
		return nil, ErrInvalidDelta
	}
	if warmupPulls < 0 {
		warmupPulls = DefaultStoppingWarmup
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoppingRule{
		delta:       delta,
		warmupPulls: warmupPulls,
		logger:      logger,
	}, nil
}

// Delta returns the configured error tolerance.
func (r *StoppingRule) Delta() float64 {
	return r.delta
}

// WarmupPulls returns the configured warm-up floor.
func (r *StoppingRule) WarmupPulls() int {
	return r.warmupPulls
}

// Threshold returns the anytime-valid stopping threshold at the given
// total pull count. Monotone non-increasing in delta at fixed t.
func (r *StoppingRule) Threshold(totalPulls int) float64 {
	t := float64(totalPulls)
	return math.Log((math.Log(t+math.E) + 1) / r.delta)
}

// ShouldStop reports whether the evidence simultaneously rejects every
// challenger to the current best arm.
//
// Inputs:
//   - arms: The experiment's arms.
//   - totalPulls: Cumulative pulls across all arms.
//
// Outputs:
//   - bool: true only when every challenger's GLRT statistic is at or
//     above Threshold(totalPulls). Always false while any arm is below
//     the warm-up floor.
func (r *StoppingRule) ShouldStop(arms []*Arm, totalPulls int) bool {
	if len(arms) == 0 {
		return false
	}
	if minPulls(arms) < r.warmupPulls {
		return false
	}

	best := bestArmIndex(arms)
	threshold := r.Threshold(totalPulls)
	for i, arm := range arms {
		if i == best {
			continue
		}
		if GLRT(arms[best], arm) < threshold {
			return false
		}
	}

	r.logger.Debug("stopping test fired",
		slog.Int("best_arm", best),
		slog.Int("total_pulls", totalPulls),
		slog.Float64("threshold", threshold),
	)
	return true
}
