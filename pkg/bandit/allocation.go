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
	"fmt"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Allocation Modes
// -----------------------------------------------------------------------------

// Mode selects the sampling rule used to spread pulls across arms.
type Mode int

const (
	// ModeAdaptive is the Track-and-Stop rule: pulls concentrate on the
	// leader and its closest competitors, weighted by 1/gap².
	ModeAdaptive Mode = iota

	// ModeUniform spreads pulls evenly across all arms.
	ModeUniform
)

// String returns the string representation.
func (m Mode) String() string {
	switch m {
	case ModeAdaptive:
		return "adaptive"
	case ModeUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// ParseMode converts a config string to a Mode.
//
// Inputs:
//   - s: "adaptive" or "uniform".
//
// Outputs:
//   - Mode: The parsed mode.
//   - error: Non-nil if s names no known mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "adaptive":
		return ModeAdaptive, nil
	case "uniform":
		return ModeUniform, nil
	default:
		return ModeAdaptive, fmt.Errorf("unknown allocation mode %q", s)
	}
}

// -----------------------------------------------------------------------------
// Allocator
// -----------------------------------------------------------------------------

const (
	// DefaultAllocationWarmup is the minimum per-arm pull count before
	// adaptive weighting engages. Below it estimates are too noisy to
	// weight meaningfully, so the allocation stays uniform.
	DefaultAllocationWarmup = 6

	// gapFloor bounds the estimate gap away from zero so near-ties do
	// not produce unbounded 1/gap² weights.
	gapFloor = 0.005

	// leaderWeightFloor keeps the leading arm's unnormalized weight
	// strictly positive even when it has no challengers.
	leaderWeightFloor = 0.01
)

// Allocator computes the target sampling distribution over arms.
//
// Description:
//
//	In uniform mode every arm receives probability 1/K. In adaptive mode
//	the allocator identifies the current leader (ties break to the lowest
//	index) and weights every challenger by 1/gap², gap floored at 0.005.
//	The leader's weight is the challengers' weight sum, floored at 0.01,
//	so it keeps receiving traffic proportional to the total contest among
//	the rest. Weights are normalized to sum to 1; every entry stays
//	strictly positive, so no arm can starve.
//
// Thread Safety: Stateless after construction; safe for concurrent use.
type Allocator struct {
	warmupPulls int
	logger      *slog.Logger
}

// NewAllocator creates an allocator.
//
// Inputs:
//   - warmupPulls: Per-arm pull floor before adaptive weighting engages.
//     Negative values fall back to DefaultAllocationWarmup.
//   - logger: Structured logger. If nil, uses slog.Default().
//
// Outputs:
//   - *Allocator: The new allocator. Never nil.
func NewAllocator(warmupPulls int, logger *slog.Logger) *Allocator {
	if warmupPulls < 0 {
		warmupPulls = DefaultAllocationWarmup
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		warmupPulls: warmupPulls,
		logger:      logger,
	}
}

// WarmupPulls returns the configured warm-up floor.
func (al *Allocator) WarmupPulls() int {
	return al.warmupPulls
}

// Allocation returns the target sampling distribution for the next pull.
//
// Inputs:
//   - arms: The experiment's arms. Must not be empty.
//   - mode: ModeAdaptive or ModeUniform.
//
// Outputs:
//   - []float64: K probabilities, each strictly positive, summing to 1
//     within floating tolerance. Nil when arms is empty. The slice is
//     freshly allocated on every call.
func (al *Allocator) Allocation(arms []*Arm, mode Mode) []float64 {
	k := len(arms)
	if k == 0 {
		return nil
	}
	if mode == ModeUniform {
		return uniformAllocation(k)
	}
	if minPulls(arms) < al.warmupPulls {
		return uniformAllocation(k)
	}

	best := bestArmIndex(arms)
	meanBest := arms[best].MeanEstimate()

	weights := make([]float64, k)
	othersSum := 0.0
	for i, arm := range arms {
		if i == best {
			continue
		}
		gap := meanBest - arm.MeanEstimate()
		if gap < gapFloor {
			gap = gapFloor
		}
		weights[i] = 1 / (gap * gap)
		othersSum += weights[i]
	}

	weights[best] = othersSum
	if weights[best] < leaderWeightFloor {
		weights[best] = leaderWeightFloor
	}

	total := weights[best] + othersSum
	for i := range weights {
		weights[i] /= total
	}

	al.logger.Debug("computed adaptive allocation",
		slog.Int("best_arm", best),
		slog.Float64("best_mean", meanBest),
		slog.Float64("best_share", weights[best]),
	)
	return weights
}

// uniformAllocation returns K equal probabilities.
func uniformAllocation(k int) []float64 {
	allocation := make([]float64, k)
	share := 1 / float64(k)
	for i := range allocation {
		allocation[i] = share
	}
	return allocation
}
