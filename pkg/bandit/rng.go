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

// RNG is the source of randomness for an experiment.
//
// Description:
//
//	Two draws are taken from the source on every step: one to sample an
//	arm index from the allocation distribution and one for the Bernoulli
//	trial outcome. Callers inject a seeded source for reproducible runs;
//	*rand.Rand from math/rand/v2 satisfies the interface directly.
//
// Thread Safety: Implementations are NOT required to be safe for
// concurrent use. Every Experiment owns its own source.
type RNG interface {
	// Float64 returns a uniformly distributed value in [0, 1).
	Float64() float64
}

// seededRNG is a splitmix64 generator.
//
// Small state, full 64-bit period, and good avalanche behavior make it a
// solid default for simulation workloads where reproducibility matters
// more than cryptographic strength.
type seededRNG struct {
	state uint64
}

// NewSeededRNG returns a deterministic RNG for the given seed.
//
// Inputs:
//   - seed: Any value, including zero. Equal seeds produce equal streams.
//
// Outputs:
//   - RNG: The seeded source. Never nil.
func NewSeededRNG(seed uint64) RNG {
	return &seededRNG{state: seed}
}

// Float64 returns the next value in [0, 1).
func (r *seededRNG) Float64() float64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	// Keep the top 53 bits so the result is uniform on [0, 1).
	return float64(z>>11) / (1 << 53)
}

// Ensure seededRNG implements RNG.
var _ RNG = (*seededRNG)(nil)
