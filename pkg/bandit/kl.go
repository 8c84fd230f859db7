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

import "math"

// klEpsilon bounds probabilities away from 0 and 1 before taking logs.
const klEpsilon = 1e-9

// clampProbability clamps p to [klEpsilon, 1-klEpsilon].
func clampProbability(p float64) float64 {
	if p < klEpsilon {
		return klEpsilon
	}
	if p > 1-klEpsilon {
		return 1 - klEpsilon
	}
	return p
}

// KLBernoulli returns the Kullback-Leibler divergence KL(p || q) between
// two Bernoulli distributions, in nats.
//
// Description:
//
//	Computes p*ln(p/q) + (1-p)*ln((1-p)/(1-q)) with both inputs clamped
//	to [1e-9, 1-1e-9], so estimates of exactly 0 or 1 never produce
//	log(0) or a division by zero. The result is non-negative and zero
//	iff the clamped inputs are equal. Not symmetric: KL(p,q) != KL(q,p)
//	in general.
//
// Inputs:
//   - p: Success rate of the reference distribution.
//   - q: Success rate of the alternative distribution.
//
// Outputs:
//   - float64: The divergence in nats. Always >= 0.
//
// Thread Safety: Pure function, safe for concurrent use.
func KLBernoulli(p, q float64) float64 {
	p = clampProbability(p)
	q = clampProbability(q)
	return p*math.Log(p/q) + (1-p)*math.Log((1-p)/(1-q))
}
