// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/cmd/bestarm/config"
	"github.com/AleutianAI/bestarm/pkg/bandit"
	"github.com/AleutianAI/bestarm/pkg/study"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// CLI exit codes.
const (
	exitSuccess = 0
	exitError   = 1

	// exitCapped marks a run that hit its step cap without reaching
	// confidence, so scripts can tell "no winner yet" from failure.
	exitCapped = 2
)

// errNoScenario is returned when neither --scenario nor --rates is given.
var errNoScenario = errors.New("provide --scenario or --rates")

// fail logs and prints an error, then exits with the error code.
func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	ux.Error(fmt.Sprintf("%s: %v", msg, err))
	os.Exit(exitError)
}

// loadScenario resolves the scenario for a command: from --scenario if
// given, otherwise ad hoc from --rates. Command-line overrides are
// applied on top and the result is re-validated.
func loadScenario(cmd *cobra.Command) (*config.Scenario, error) {
	path, _ := cmd.Flags().GetString("scenario")
	rates, _ := cmd.Flags().GetFloat64Slice("rates")

	var scn *config.Scenario
	switch {
	case path != "":
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		scn = loaded
	case len(rates) > 0:
		scn = &config.Scenario{Arms: config.Arms{TrueRates: rates}}
	default:
		return nil, errNoScenario
	}

	applyOverrides(cmd, scn)

	if err := scn.Validate(); err != nil {
		return nil, err
	}
	return scn, nil
}

// applyOverrides copies explicitly set flags into the scenario. Flags
// left at their defaults never clobber file values.
func applyOverrides(cmd *cobra.Command, scn *config.Scenario) {
	flags := cmd.Flags()

	if flags.Changed("rates") {
		rates, _ := flags.GetFloat64Slice("rates")
		scn.Arms.TrueRates = rates
	}
	if flags.Changed("mode") {
		scn.Algorithm.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("delta") {
		scn.Algorithm.Delta, _ = flags.GetFloat64("delta")
	}
	if flags.Changed("max-steps") {
		scn.Algorithm.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Changed("allocation-warmup") {
		scn.Algorithm.AllocationWarmup, _ = flags.GetInt("allocation-warmup")
	}
	if flags.Changed("stopping-warmup") {
		scn.Algorithm.StoppingWarmup, _ = flags.GetInt("stopping-warmup")
	}
	if flags.Changed("history-interval") {
		scn.Algorithm.HistoryInterval, _ = flags.GetInt("history-interval")
	}
	if flags.Changed("replications") {
		scn.Study.Replications, _ = flags.GetInt("replications")
	}
	if flags.Changed("base-seed") {
		scn.Study.BaseSeed, _ = flags.GetUint64("base-seed")
	}
	if flags.Changed("parallelism") {
		scn.Study.Parallelism, _ = flags.GetInt("parallelism")
	}
	if flags.Changed("confidence") {
		scn.Study.ConfidenceLevel, _ = flags.GetFloat64("confidence")
	}
}

// scenarioMode maps the scenario's mode string onto the allocation
// mode, defaulting to adaptive when unset.
func scenarioMode(scn *config.Scenario) (bandit.Mode, error) {
	if scn.Algorithm.Mode == "" {
		return bandit.ModeAdaptive, nil
	}
	return bandit.ParseMode(scn.Algorithm.Mode)
}

// experimentOptions maps scenario algorithm settings onto experiment
// options. Zero values are omitted so experiment defaults apply.
func experimentOptions(scn *config.Scenario, logger *slog.Logger) ([]bandit.ExperimentOption, error) {
	mode, err := scenarioMode(scn)
	if err != nil {
		return nil, err
	}

	opts := []bandit.ExperimentOption{
		bandit.WithMode(mode),
		bandit.WithLogger(logger),
	}
	if scn.Algorithm.Delta > 0 {
		opts = append(opts, bandit.WithDelta(scn.Algorithm.Delta))
	}
	if scn.Algorithm.MaxSteps > 0 {
		opts = append(opts, bandit.WithMaxSteps(scn.Algorithm.MaxSteps))
	}
	if scn.Algorithm.AllocationWarmup > 0 {
		opts = append(opts, bandit.WithAllocationWarmup(scn.Algorithm.AllocationWarmup))
	}
	if scn.Algorithm.StoppingWarmup > 0 {
		opts = append(opts, bandit.WithStoppingWarmup(scn.Algorithm.StoppingWarmup))
	}
	if scn.Algorithm.HistoryInterval > 0 {
		opts = append(opts, bandit.WithHistoryInterval(scn.Algorithm.HistoryInterval))
	}
	return opts, nil
}

// studyConfig maps a scenario onto a study configuration for the given
// allocation mode. Zero values are left for the study defaults.
func studyConfig(scn *config.Scenario, mode bandit.Mode, logger *slog.Logger) *study.Config {
	cfg := study.DefaultConfig(scn.Arms.TrueRates)
	cfg.Mode = mode
	cfg.Logger = logger

	if scn.Algorithm.Delta > 0 {
		cfg.Delta = scn.Algorithm.Delta
	}
	if scn.Algorithm.MaxSteps > 0 {
		cfg.MaxSteps = scn.Algorithm.MaxSteps
	}
	if scn.Study.Replications > 0 {
		cfg.Replications = scn.Study.Replications
	}
	if scn.Study.BaseSeed > 0 {
		cfg.BaseSeed = scn.Study.BaseSeed
	}
	if scn.Study.Parallelism > 0 {
		cfg.Parallelism = scn.Study.Parallelism
	}
	if scn.Study.ConfidenceLevel > 0 {
		cfg.ConfidenceLevel = scn.Study.ConfidenceLevel
	}
	return cfg
}

// scenarioName picks a display name: metadata name, then the file's
// base name, then a placeholder for ad-hoc rates.
func scenarioName(cmd *cobra.Command, scn *config.Scenario) string {
	if scn.Metadata.Name != "" {
		return scn.Metadata.Name
	}
	if path, _ := cmd.Flags().GetString("scenario"); path != "" {
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return "ad-hoc"
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// formatRates renders a rate slice as "0.72, 0.55, 0.45".
func formatRates(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.FormatFloat(r, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// formatPercent renders a fraction as a percentage with one decimal.
func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}
