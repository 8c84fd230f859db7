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
	"errors"
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientSamples indicates not enough samples for analysis.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates a sample set has zero variance.
	ErrZeroVariance = errors.New("sample set has zero variance")
)

// -----------------------------------------------------------------------------
// Summary Statistics
// -----------------------------------------------------------------------------

// SummaryStats describes a sample of replication measurements.
type SummaryStats struct {
	// Count is the number of samples.
	Count int

	// Mean is the arithmetic mean.
	Mean float64

	// StdDev is the sample standard deviation.
	StdDev float64

	// Min is the smallest sample.
	Min float64

	// Max is the largest sample.
	Max float64

	// P50, P90, and P99 are nearest-rank percentiles.
	P50 float64
	P90 float64
	P99 float64
}

// Summarize computes summary statistics over a sample set.
//
// Inputs:
//   - samples: Measurements to summarize. Must not be empty.
//
// Outputs:
//   - *SummaryStats: The summary. Never nil on success.
//   - error: ErrInsufficientSamples for an empty sample set.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func Summarize(samples []float64) (*SummaryStats, error) {
	if len(samples) == 0 {
		return nil, ErrInsufficientSamples
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	m := mean(samples)
	return &SummaryStats{
		Count:  len(samples),
		Mean:   m,
		StdDev: math.Sqrt(sampleVariance(samples, m)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P50:    percentile(sorted, 50),
		P90:    percentile(sorted, 90),
		P99:    percentile(sorted, 99),
	}, nil
}

// -----------------------------------------------------------------------------
// Confidence Intervals
// -----------------------------------------------------------------------------

// ConfidenceInterval represents a statistical confidence interval.
type ConfidenceInterval struct {
	// Lower is the lower bound.
	Lower float64

	// Upper is the upper bound.
	Upper float64

	// Level is the confidence level (e.g., 0.95).
	Level float64

	// Center is the point estimate.
	Center float64
}

// Contains returns true if the interval contains the value.
func (ci *ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Lower && v <= ci.Upper
}

// Width returns the interval width.
func (ci *ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// WilsonInterval computes the Wilson score interval for a binomial
// proportion.
//
// Description:
//
//	Unlike the normal approximation, the Wilson interval stays within
//	[0, 1] and behaves sensibly near 0% and 100%, which is exactly where
//	identification rates live. Used to report how often a study found
//	the true best arm.
//
// Inputs:
//   - successes: Number of successes. Must be within [0, trials].
//   - trials: Number of trials. Must be at least 1.
//   - level: Confidence level (e.g., 0.95).
//
// Outputs:
//   - *ConfidenceInterval: The interval around successes/trials.
//   - error: ErrInsufficientSamples if trials < 1.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WilsonInterval(successes, trials int, level float64) (*ConfidenceInterval, error) {
	if trials < 1 {
		return nil, ErrInsufficientSamples
	}
	if successes < 0 {
		successes = 0
	}
	if successes > trials {
		successes = trials
	}

	n := float64(trials)
	p := float64(successes) / n
	z := zScore((1 + level) / 2)
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom

	lower := center - half
	upper := center + half
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return &ConfidenceInterval{
		Lower:  lower,
		Upper:  upper,
		Level:  level,
		Center: p,
	}, nil
}

// MeanDifferenceCI calculates a confidence interval for the difference
// between two sample means.
//
// Description:
//
//	Uses Welch's method, which does not assume the two samples share a
//	variance. The interval is for mean(samples1) - mean(samples2).
//
// Inputs:
//   - samples1: First sample set. Must have at least 2 samples.
//   - samples2: Second sample set. Must have at least 2 samples.
//   - level: Confidence level (e.g., 0.95 for 95% CI).
//
// Outputs:
//   - *ConfidenceInterval: The confidence interval for mean1 - mean2.
//   - error: Non-nil if samples are insufficient.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func MeanDifferenceCI(samples1, samples2 []float64, level float64) (*ConfidenceInterval, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(samples1)
	mean2 := mean(samples2)
	meanDiff := mean1 - mean2

	var1 := sampleVariance(samples1, mean1)
	var2 := sampleVariance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	// Standard error of the difference
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		// No variance, return point estimate
		return &ConfidenceInterval{
			Lower:  meanDiff,
			Upper:  meanDiff,
			Level:  level,
			Center: meanDiff,
		}, nil
	}

	// Degrees of freedom (Welch-Satterthwaite)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	df := num / denom

	tCrit := tCriticalValue(int(math.Round(df)), level)

	margin := tCrit * se
	return &ConfidenceInterval{
		Lower:  meanDiff - margin,
		Upper:  meanDiff + margin,
		Level:  level,
		Center: meanDiff,
	}, nil
}

// -----------------------------------------------------------------------------
// Hypothesis Testing
// -----------------------------------------------------------------------------

// TTestResult holds the results of a t-test.
type TTestResult struct {
	// TStatistic is the computed t-statistic.
	TStatistic float64

	// PValue is the two-tailed p-value.
	PValue float64

	// DegreesOfFreedom is the Welch-Satterthwaite df.
	DegreesOfFreedom float64

	// Significant is true if PValue < significance level.
	Significant bool

	// SignificanceLevel is the alpha used (e.g., 0.05).
	SignificanceLevel float64
}

// WelchTTest performs Welch's t-test for two sample sets.
//
// Description:
//
//	Welch's t-test is used when the two samples may have unequal variances.
//	It does not assume equal population variances, making it more robust
//	than Student's t-test. Stop-time distributions frequently have very
//	different spreads across allocation modes, so this is the right test
//	for mode comparisons.
//
// Inputs:
//   - samples1: First sample set. Must have at least 2 samples.
//   - samples2: Second sample set. Must have at least 2 samples.
//   - alpha: Significance level (e.g., 0.05 for 95% confidence).
//
// Outputs:
//   - *TTestResult: Test results with t-statistic, p-value, and significance.
//   - error: Non-nil if samples are insufficient or have no variance.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WelchTTest(samples1, samples2 []float64, alpha float64) (*TTestResult, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(samples1)
	mean2 := mean(samples2)

	var1 := sampleVariance(samples1, mean1)
	var2 := sampleVariance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	// Standard error
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		return nil, ErrZeroVariance
	}

	// t-statistic
	tStat := (mean1 - mean2) / se

	// Degrees of freedom (Welch-Satterthwaite equation)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if denom == 0 {
		return nil, ErrZeroVariance
	}
	df := num / denom

	pValue := tDistributionPValue(math.Abs(tStat), df)

	return &TTestResult{
		TStatistic:        tStat,
		PValue:            pValue,
		DegreesOfFreedom:  df,
		Significant:       pValue < alpha,
		SignificanceLevel: alpha,
	}, nil
}

// -----------------------------------------------------------------------------
// Effect Size
// -----------------------------------------------------------------------------

// EffectSize calculates Cohen's d effect size.
//
// Description:
//
//	Cohen's d measures the standardized difference between two means.
//	Uses the pooled standard deviation for the denominator.
//
// Inputs:
//   - samples1: First sample set. Must have at least 2 samples.
//   - samples2: Second sample set. Must have at least 2 samples.
//
// Outputs:
//   - float64: Cohen's d value. Positive means samples1 > samples2.
//   - error: Non-nil if samples are insufficient or pooled variance is zero.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func EffectSize(samples1, samples2 []float64) (float64, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return 0, ErrInsufficientSamples
	}

	mean1 := mean(samples1)
	mean2 := mean(samples2)

	var1 := sampleVariance(samples1, mean1)
	var2 := sampleVariance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	// Pooled standard deviation
	pooledVar := ((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)
	pooledStdDev := math.Sqrt(pooledVar)

	if pooledStdDev == 0 {
		return 0, ErrZeroVariance
	}

	return (mean1 - mean2) / pooledStdDev, nil
}

// EffectCategory categorizes effect sizes using Cohen's conventions.
type EffectCategory int

const (
	// EffectNegligible indicates |d| < 0.2
	EffectNegligible EffectCategory = iota
	// EffectSmall indicates 0.2 <= |d| < 0.5
	EffectSmall
	// EffectMedium indicates 0.5 <= |d| < 0.8
	EffectMedium
	// EffectLarge indicates |d| >= 0.8
	EffectLarge
)

// String returns the string representation.
func (e EffectCategory) String() string {
	switch e {
	case EffectNegligible:
		return "negligible"
	case EffectSmall:
		return "small"
	case EffectMedium:
		return "medium"
	case EffectLarge:
		return "large"
	default:
		return "unknown"
	}
}

// CategorizeEffect returns the category for a Cohen's d value.
func CategorizeEffect(d float64) EffectCategory {
	absD := math.Abs(d)
	switch {
	case absD < 0.2:
		return EffectNegligible
	case absD < 0.5:
		return EffectSmall
	case absD < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// -----------------------------------------------------------------------------
// Power Analysis
// -----------------------------------------------------------------------------

// CalculatePower estimates statistical power for the given sample sizes.
//
// Description:
//
//	Power is the probability of correctly rejecting the null hypothesis
//	when there is a true effect. A mode comparison with low power says
//	more about the replication count than about the modes.
//
// Inputs:
//   - n1: Sample size for group 1.
//   - n2: Sample size for group 2.
//   - effectSize: Expected Cohen's d effect size.
//   - alpha: Significance level (e.g., 0.05).
//
// Outputs:
//   - float64: Statistical power (0 to 1).
//
// Thread Safety: This function is stateless and safe for concurrent use.
func CalculatePower(n1, n2 int, effectSize, alpha float64) float64 {
	if n1 < 2 || n2 < 2 {
		return 0
	}

	// Harmonic mean of sample sizes for unequal groups
	nHarmonic := 2 * float64(n1) * float64(n2) / float64(n1+n2)

	// Non-centrality parameter
	ncp := math.Abs(effectSize) * math.Sqrt(nHarmonic/2)

	df := float64(n1 + n2 - 2)
	tCrit := tCriticalValue(int(df), 1-alpha)

	// Normal approximation to the non-central t-distribution
	power := 1 - normalCDF(tCrit-ncp)

	if power < 0 {
		power = 0
	}
	if power > 1 {
		power = 1
	}
	return power
}

// RequiredReplications calculates replications needed for desired power.
//
// Description:
//
//	Determines the minimum replication count per mode needed to achieve
//	a specified power level for detecting a given effect size.
//
// Inputs:
//   - effectSize: Expected Cohen's d effect size.
//   - alpha: Significance level (e.g., 0.05).
//   - power: Desired power (e.g., 0.8 for 80% power).
//
// Outputs:
//   - int: Required replications per mode.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func RequiredReplications(effectSize, alpha, power float64) int {
	if effectSize == 0 {
		return math.MaxInt32 // Infinite samples needed for zero effect
	}

	// Cohen's formula for a two-sample t-test:
	// n = 2 * ((z_alpha + z_power) / d)^2
	zAlpha := zScore(1 - alpha/2) // Two-tailed
	zPower := zScore(power)

	n := 2 * math.Pow((zAlpha+zPower)/effectSize, 2)

	// Add 1 and ceiling for a conservative estimate
	return int(math.Ceil(n)) + 1
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// mean calculates the arithmetic mean.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// sampleVariance calculates the unbiased sample variance.
func sampleVariance(samples []float64, mean float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		diff := s - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(samples)-1)
}

// percentile returns the nearest-rank percentile of a sorted sample.
// The rank is computed as p*n/100 in that order: dividing first turns
// exact ranks like 90% of 10 into 9.000000000000002 and shifts the
// ceiling up a slot.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(len(sorted)) / 100))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// zScore returns the z-score for a given percentile.
func zScore(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	// For p in (0,1): z = sqrt(2) * erfinv(2p - 1)
	return math.Sqrt(2) * math.Erfinv(2*p-1)
}

// tDistributionPValue approximates the two-tailed p-value.
func tDistributionPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}

	// For large df, use the normal approximation
	if df >= 30 {
		return 2 * (1 - normalCDF(t))
	}

	// For smaller df, widen the tails to approximate the t-distribution
	adjustedT := t * math.Sqrt(df/(df-2+0.001))
	pValue := 2 * (1 - normalCDF(adjustedT))

	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return pValue
}

// tCriticalValue returns approximate t critical value for two-tailed test.
func tCriticalValue(df int, level float64) float64 {
	// Pre-computed values for common cases
	if df >= 30 {
		switch {
		case level >= 0.99:
			return 2.576
		case level >= 0.95:
			return 1.96
		case level >= 0.90:
			return 1.645
		default:
			return 1.96
		}
	}

	// Table lookup for small df
	t95 := []float64{12.706, 4.303, 3.182, 2.776, 2.571, 2.447, 2.365, 2.306, 2.262, 2.228,
		2.201, 2.179, 2.160, 2.145, 2.131, 2.120, 2.110, 2.101, 2.093, 2.086,
		2.080, 2.074, 2.069, 2.064, 2.060, 2.056, 2.052, 2.048, 2.045, 2.042}
	t99 := []float64{63.657, 9.925, 5.841, 4.604, 4.032, 3.707, 3.499, 3.355, 3.250, 3.169,
		3.106, 3.055, 3.012, 2.977, 2.947, 2.921, 2.898, 2.878, 2.861, 2.845,
		2.831, 2.819, 2.807, 2.797, 2.787, 2.779, 2.771, 2.763, 2.756, 2.750}

	if df < 1 {
		df = 1
	}

	switch {
	case level >= 0.99:
		return t99[df-1]
	case level >= 0.95:
		return t95[df-1]
	default:
		return t95[df-1] * 0.85 // Approximate for 90%
	}
}
