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

// GLRT returns the generalized likelihood-ratio statistic, in nats, for
// the hypothesis that best's true rate exceeds challenger's.
//
// Description:
//
//	The statistic weighs each side's KL divergence by its sample count:
//
//	    pulls_best * KL(mean_best, mean_challenger) +
//	    pulls_challenger * KL(mean_challenger, mean_best)
//
//	It is zero when either arm has no data, or when best's estimate does
//	not actually exceed the challenger's (no evidence against the
//	challenger exists at the current estimates).
//
// Inputs:
//   - best: The presumed leading arm.
//   - challenger: The arm being tested against the leader.
//
// Outputs:
//   - float64: Evidence in nats. Always >= 0.
//
// Thread Safety: Read-only on both arms; safe under the owning
// experiment's serialization.
func GLRT(best, challenger *Arm) float64 {
	if best == nil || challenger == nil {
		return 0
	}
	if best.Pulls() == 0 || challenger.Pulls() == 0 {
		return 0
	}
	meanBest := best.MeanEstimate()
	meanChallenger := challenger.MeanEstimate()
	if meanBest <= meanChallenger {
		return 0
	}
	return float64(best.Pulls())*KLBernoulli(meanBest, meanChallenger) +
		float64(challenger.Pulls())*KLBernoulli(meanChallenger, meanBest)
}
