// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package study runs replicated best-arm identification experiments and
// aggregates their outcomes into identification rates, pull-count
// distributions, and mode comparisons.
//
// A single experiment tells you which arm won once. A study tells you
// how often the procedure finds the true best arm and what it costs in
// pulls, which is what you actually need before trusting a stopping
// rule in production.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/bestarm/pkg/bandit"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

const (
	// DefaultReplications is the study size when none is configured.
	DefaultReplications = 200

	// DefaultConfidenceLevel is used for reported intervals.
	DefaultConfidenceLevel = 0.95

	// progressInterval throttles progress logging during a study.
	progressInterval = 500 * time.Millisecond
)

// Config configures a replication study.
type Config struct {
	// TrueRates are the hidden per-arm success rates, each within [0, 1].
	TrueRates []float64

	// Mode selects the allocation rule for every replication.
	// Default: bandit.ModeAdaptive
	Mode bandit.Mode

	// Delta is the per-replication error tolerance. Zero means the
	// experiment default; other values outside (0, 1) are rejected.
	Delta float64

	// MaxSteps caps each replication. Values <= 0 mean the experiment
	// default.
	MaxSteps int

	// Replications is the number of independent runs. Values <= 0 fall
	// back to the default.
	// Default: 200
	Replications int

	// BaseSeed derives per-replication seeds: replication i runs with
	// seed BaseSeed + i, so a study is exactly reproducible.
	BaseSeed uint64

	// Parallelism bounds concurrent replications. Values <= 0 mean
	// one per CPU.
	Parallelism int

	// ConfidenceLevel is used for the reported intervals. Values outside
	// (0, 1) fall back to the default.
	// Default: 0.95
	ConfidenceLevel float64

	// Logger receives progress and summary logs.
	// Default: nil (slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for a study over the given
// arms.
//
// Outputs:
//   - *Config: Default configuration. Never nil.
func DefaultConfig(trueRates []float64) *Config {
	return &Config{
		TrueRates:       trueRates,
		Mode:            bandit.ModeAdaptive,
		Replications:    DefaultReplications,
		BaseSeed:        1,
		ConfidenceLevel: DefaultConfidenceLevel,
	}
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Result aggregates the outcomes of one study.
type Result struct {
	// StudyID identifies this study in logs.
	StudyID string

	// TrueRates are the arm rates the study ran against.
	TrueRates []float64

	// TrueBestArm is the index of the arm with the highest true rate.
	TrueBestArm int

	// Mode is the allocation rule used.
	Mode bandit.Mode

	// Replications is the number of completed runs.
	Replications int

	// Wins counts, per arm, how many replications declared it the winner.
	Wins []int

	// CorrectRate is the fraction of replications that identified the
	// true best arm.
	CorrectRate float64

	// CorrectCI is the Wilson interval around CorrectRate.
	CorrectCI *ConfidenceInterval

	// Pulls summarizes the per-replication total pull counts.
	Pulls *SummaryStats

	// PullShares is the mean fraction of pulls each arm received.
	// Under adaptive allocation the leader's share approaches one half.
	PullShares []float64

	// StoppedCount is the number of replications ended by the stopping
	// rule; CappedCount is the number ended by the step cap.
	StoppedCount int
	CappedCount  int

	// Elapsed is the wall-clock duration of the study.
	Elapsed time.Duration

	// pullSamples are the raw per-replication pull counts, retained for
	// mode comparisons.
	pullSamples []float64
}

// replicationResult is the per-run record before aggregation.
type replicationResult struct {
	outcome bandit.Outcome
	shares  []float64
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Runner executes replication studies.
//
// Description:
//
//	Each replication constructs a fresh experiment seeded with
//	BaseSeed + index and runs it to termination. Replications fan out
//	across a bounded worker group; results land in a pre-sized slice by
//	index, so aggregation never depends on completion order and a study
//	is reproducible regardless of parallelism.
//
// Thread Safety: Safe for concurrent use. Each Run call is independent.
type Runner struct {
	config   Config
	logger   *slog.Logger
	progress *rate.Limiter
}

// NewRunner creates a study runner.
//
// Inputs:
//   - config: Study configuration. Invalid sizing fields fall back to
//     defaults; invalid arms or delta are rejected.
//
// Outputs:
//   - *Runner: The new runner.
//   - error: bandit.ErrNoArms, bandit.ErrInvalidRate, or
//     bandit.ErrInvalidDelta on bad input.
func NewRunner(config *Config) (*Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("study: %w", bandit.ErrNoArms)
	}
	if len(config.TrueRates) < 1 {
		return nil, fmt.Errorf("study: %w", bandit.ErrNoArms)
	}
	for i, r := range config.TrueRates {
		if r < 0 || r > 1 {
			return nil, fmt.Errorf("study: arm %d: rate %v: %w", i, r, bandit.ErrInvalidRate)
		}
	}
	if config.Delta != 0 && (config.Delta <= 0 || config.Delta >= 1) {
		return nil, fmt.Errorf("study: delta %v: %w", config.Delta, bandit.ErrInvalidDelta)
	}

	cfg := *config
	if cfg.Replications <= 0 {
		cfg.Replications = DefaultReplications
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = DefaultConfidenceLevel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		config:   cfg,
		logger:   cfg.Logger,
		progress: rate.NewLimiter(rate.Every(progressInterval), 1),
	}, nil
}

// Run executes the configured study.
//
// Inputs:
//   - ctx: Bounds the study. Cancellation stops in-flight replications
//     between steps.
//
// Outputs:
//   - *Result: Aggregated study outcomes.
//   - error: Context error on cancellation, or a replication error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	studyID := "study-" + uuid.NewString()[:8]
	start := time.Now()
	n := r.config.Replications

	r.logger.Info("study starting",
		slog.String("study_id", studyID),
		slog.Int("replications", n),
		slog.String("mode", r.config.Mode.String()),
		slog.Int("arms", len(r.config.TrueRates)),
		slog.Int("parallelism", r.config.Parallelism),
	)

	results := make([]replicationResult, n)
	var completed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallelism)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			rep, err := r.runReplication(gCtx, r.config.BaseSeed+uint64(i))
			if err != nil {
				return fmt.Errorf("replication %d: %w", i, err)
			}
			results[i] = *rep

			done := completed.Add(1)
			if r.progress.Allow() {
				r.logger.Info("study progress",
					slog.String("study_id", studyID),
					slog.Int64("completed", done),
					slog.Int("replications", n),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := r.aggregate(studyID, results)
	result.Elapsed = time.Since(start)

	r.logger.Info("study complete",
		slog.String("study_id", studyID),
		slog.Float64("correct_rate", result.CorrectRate),
		slog.Float64("mean_pulls", result.Pulls.Mean),
		slog.Int("stopped", result.StoppedCount),
		slog.Int("capped", result.CappedCount),
		slog.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// runReplication runs one seeded experiment to termination.
func (r *Runner) runReplication(ctx context.Context, seed uint64) (*replicationResult, error) {
	opts := []bandit.ExperimentOption{
		bandit.WithRNG(bandit.NewSeededRNG(seed)),
		bandit.WithMode(r.config.Mode),
		bandit.WithLogger(r.logger),
	}
	if r.config.Delta != 0 {
		opts = append(opts, bandit.WithDelta(r.config.Delta))
	}
	if r.config.MaxSteps > 0 {
		opts = append(opts, bandit.WithMaxSteps(r.config.MaxSteps))
	}

	e, err := bandit.NewExperiment(r.config.TrueRates, opts...)
	if err != nil {
		return nil, err
	}
	outcome, err := e.Run(ctx)
	if err != nil {
		return nil, err
	}

	shares := make([]float64, len(r.config.TrueRates))
	if outcome.TotalPulls > 0 {
		for i, s := range e.ArmStats() {
			shares[i] = float64(s.Pulls) / float64(outcome.TotalPulls)
		}
	}
	return &replicationResult{outcome: *outcome, shares: shares}, nil
}

// aggregate folds per-replication records into a Result.
func (r *Runner) aggregate(studyID string, results []replicationResult) *Result {
	k := len(r.config.TrueRates)
	n := len(results)

	wins := make([]int, k)
	shares := make([]float64, k)
	pulls := make([]float64, n)
	stopped, capped := 0, 0

	for i, rep := range results {
		if rep.outcome.Winner >= 0 && rep.outcome.Winner < k {
			wins[rep.outcome.Winner]++
		}
		pulls[i] = float64(rep.outcome.TotalPulls)
		for a := 0; a < k; a++ {
			shares[a] += rep.shares[a] / float64(n)
		}
		switch rep.outcome.State {
		case bandit.StateStopped:
			stopped++
		case bandit.StateCapped:
			capped++
		}
	}

	best := trueBestArm(r.config.TrueRates)
	// Wilson never fails for n >= 1, and n >= 1 is guaranteed here.
	correctCI, _ := WilsonInterval(wins[best], n, r.config.ConfidenceLevel)
	// Same for Summarize: pulls is never empty.
	pullStats, _ := Summarize(pulls)

	rates := make([]float64, k)
	copy(rates, r.config.TrueRates)

	return &Result{
		StudyID:      studyID,
		TrueRates:    rates,
		TrueBestArm:  best,
		Mode:         r.config.Mode,
		Replications: n,
		Wins:         wins,
		CorrectRate:  float64(wins[best]) / float64(n),
		CorrectCI:    correctCI,
		Pulls:        pullStats,
		PullShares:   shares,
		StoppedCount: stopped,
		CappedCount:  capped,
		pullSamples:  pulls,
	}
}

// trueBestArm returns the index of the highest true rate, breaking ties
// toward the lowest index.
func trueBestArm(rates []float64) int {
	best := 0
	for i := 1; i < len(rates); i++ {
		if rates[i] > rates[best] {
			best = i
		}
	}
	return best
}
