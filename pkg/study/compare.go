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
	"log/slog"

	"github.com/AleutianAI/bestarm/pkg/bandit"
)

// -----------------------------------------------------------------------------
// Recommendation
// -----------------------------------------------------------------------------

// ModeRecommendation is the verdict of a mode comparison.
type ModeRecommendation int

const (
	// RecommendInconclusive means the comparison found no significant,
	// non-negligible difference in pull cost.
	RecommendInconclusive ModeRecommendation = iota

	// RecommendAdaptive means adaptive allocation needed significantly
	// fewer pulls.
	RecommendAdaptive

	// RecommendUniform means uniform allocation needed significantly
	// fewer pulls.
	RecommendUniform
)

// String returns the string representation.
func (m ModeRecommendation) String() string {
	switch m {
	case RecommendInconclusive:
		return "inconclusive"
	case RecommendAdaptive:
		return "adaptive"
	case RecommendUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Comparison
// -----------------------------------------------------------------------------

// Comparison holds two studies of the same arms, one per allocation
// mode, and the statistics comparing their pull costs.
type Comparison struct {
	// Adaptive and Uniform are the per-mode study results.
	Adaptive *Result
	Uniform  *Result

	// PullsTest is Welch's t-test over the two pull-count samples, or
	// nil when the samples cannot support a test (for example when
	// every replication in both studies hit the step cap).
	PullsTest *TTestResult

	// PullsDiff is the confidence interval for the mean pull difference,
	// adaptive minus uniform. Nil when it cannot be computed.
	PullsDiff *ConfidenceInterval

	// EffectD is Cohen's d for adaptive minus uniform. Negative values
	// favor adaptive.
	EffectD float64

	// Effect categorizes EffectD.
	Effect EffectCategory

	// Power is the probability this comparison would detect the observed
	// effect size if it is real.
	Power float64

	// SuggestedReplications is the per-mode replication count needed for
	// 80% power at the observed effect size. Zero when no effect was
	// observed.
	SuggestedReplications int

	// Recommendation is the verdict.
	Recommendation ModeRecommendation
}

// CompareModes runs the configured study once per allocation mode and
// compares the pull costs.
//
// Description:
//
//	Both studies run with the same BaseSeed, so replication i consumes
//	the same random stream under both modes. The modes diverge in how
//	they spend that stream, but pairing the seeds removes one source of
//	between-study noise. The comparison is two-sided: it reports
//	whichever mode is cheaper, or inconclusive when the evidence does
//	not separate them.
//
// Inputs:
//   - ctx: Bounds both studies.
//   - config: Study configuration. The Mode field is ignored; each leg
//     sets its own.
//
// Outputs:
//   - *Comparison: The paired results and verdict.
//   - error: Construction or run errors from either study.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func CompareModes(ctx context.Context, config *Config) (*Comparison, error) {
	if config == nil {
		return nil, ErrInsufficientSamples
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := config.ConfidenceLevel
	if level <= 0 || level >= 1 {
		level = DefaultConfidenceLevel
	}
	alpha := 1 - level

	runStudy := func(mode bandit.Mode) (*Result, error) {
		cfg := *config
		cfg.Mode = mode
		runner, err := NewRunner(&cfg)
		if err != nil {
			return nil, err
		}
		return runner.Run(ctx)
	}

	logger.Info("mode comparison starting",
		slog.Int("arms", len(config.TrueRates)),
		slog.Uint64("base_seed", config.BaseSeed),
	)

	adaptive, err := runStudy(bandit.ModeAdaptive)
	if err != nil {
		return nil, err
	}
	uniform, err := runStudy(bandit.ModeUniform)
	if err != nil {
		return nil, err
	}

	comparison := &Comparison{
		Adaptive: adaptive,
		Uniform:  uniform,
	}

	// Degenerate samples (all-capped studies, single replications) make
	// the test impossible, not the comparison; report what we can.
	if test, err := WelchTTest(adaptive.pullSamples, uniform.pullSamples, alpha); err == nil {
		comparison.PullsTest = test
	} else {
		logger.Debug("pull-count t-test unavailable", slog.Any("error", err))
	}
	if diff, err := MeanDifferenceCI(adaptive.pullSamples, uniform.pullSamples, level); err == nil {
		comparison.PullsDiff = diff
	}
	if d, err := EffectSize(adaptive.pullSamples, uniform.pullSamples); err == nil {
		comparison.EffectD = d
		comparison.Effect = CategorizeEffect(d)
		comparison.Power = CalculatePower(
			adaptive.Replications, uniform.Replications, d, alpha)
		if d != 0 {
			comparison.SuggestedReplications = RequiredReplications(d, alpha, 0.8)
		}
	}

	comparison.Recommendation = decideMode(comparison.PullsTest, comparison.EffectD)

	logger.Info("mode comparison complete",
		slog.Float64("adaptive_mean_pulls", adaptive.Pulls.Mean),
		slog.Float64("uniform_mean_pulls", uniform.Pulls.Mean),
		slog.Float64("effect_d", comparison.EffectD),
		slog.String("recommendation", comparison.Recommendation.String()),
	)
	return comparison, nil
}

// decideMode turns the test and effect size into a verdict.
func decideMode(test *TTestResult, d float64) ModeRecommendation {
	if test == nil || !test.Significant || CategorizeEffect(d) == EffectNegligible {
		return RecommendInconclusive
	}
	if d < 0 {
		return RecommendAdaptive
	}
	return RecommendUniform
}
