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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/cmd/bestarm/config"
	"github.com/AleutianAI/bestarm/pkg/bandit"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// runRun executes the "bestarm run" command.
func runRun(cmd *cobra.Command, args []string) {
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		path, _ := cmd.Flags().GetString("scenario")
		if path == "" {
			fail("watch mode", errors.New("--watch requires --scenario"))
		}
		runWatched(cmd, path)
		return
	}

	scn, err := loadScenario(cmd)
	if err != nil {
		fail("load scenario", err)
	}

	os.Exit(executeRun(cmd, scn))
}

// runWatched re-executes the run whenever the scenario file changes.
// Reload failures are reported and skipped so an editor's intermediate
// saves never kill the watch.
func runWatched(cmd *cobra.Command, path string) {
	ctx, cancel := signalContext()
	defer cancel()

	execute := func() {
		scn, err := config.Load(path)
		if err != nil {
			ux.Warning(fmt.Sprintf("scenario reload skipped: %v", err))
			return
		}
		applyOverrides(cmd, scn)
		if err := scn.Validate(); err != nil {
			ux.Warning(fmt.Sprintf("scenario reload skipped: %v", err))
			return
		}
		executeRun(cmd, scn)
	}

	watcher, err := NewScenarioWatcher(path, defaultWatchDebounce, execute)
	if err != nil {
		fail("watch scenario", err)
	}
	if err := watcher.Start(ctx); err != nil {
		fail("watch scenario", err)
	}
	defer watcher.Stop()

	execute()
	ux.Info(fmt.Sprintf("Watching %s for changes; press Ctrl-C to stop", path))

	<-ctx.Done()
}

// executeRun builds and runs one experiment, renders the outcome, and
// returns the process exit code.
func executeRun(cmd *cobra.Command, scn *config.Scenario) int {
	opts, err := experimentOptions(scn, slog.Default())
	if err != nil {
		ux.Error(fmt.Sprintf("configure experiment: %v", err))
		return exitError
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		opts = append(opts, bandit.WithRNG(bandit.NewSeededRNG(seed)))
	}

	e, err := bandit.NewExperiment(scn.Arms.TrueRates, opts...)
	if err != nil {
		ux.Error(fmt.Sprintf("build experiment: %v", err))
		return exitError
	}

	ux.Title("Best-arm run: " + scenarioName(cmd, scn))
	ux.Field("Arms", formatRates(scn.Arms.TrueRates))
	ux.Field("Mode", e.Mode().String())
	ux.Field("Delta", strconv.FormatFloat(e.Delta(), 'g', -1, 64))

	ctx, cancel := signalContext()
	defer cancel()

	outcome, err := e.Run(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("run experiment: %v", err))
		return exitError
	}

	renderOutcome(e, outcome)

	if show, _ := cmd.Flags().GetBool("history"); show {
		renderHistory(e)
	}

	if outcome.State == bandit.StateCapped {
		return exitCapped
	}
	return exitSuccess
}

// renderOutcome prints the per-arm table and the verdict line.
func renderOutcome(e *bandit.Experiment, outcome *bandit.Outcome) {
	table := ux.NewTable("Arm", "True rate", "Pulls", "Share", "Mean")
	for _, s := range e.ArmStats() {
		share := 0.0
		if outcome.TotalPulls > 0 {
			share = float64(s.Pulls) / float64(outcome.TotalPulls)
		}
		table.AddRow(
			strconv.Itoa(s.Index),
			strconv.FormatFloat(s.TrueRate, 'f', 2, 64),
			strconv.Itoa(s.Pulls),
			formatPercent(share),
			strconv.FormatFloat(s.Estimate, 'f', 3, 64),
		)
	}
	table.Highlight(outcome.Winner)
	fmt.Print(table.Render())

	ux.Field("Total pulls", strconv.Itoa(outcome.TotalPulls))

	switch outcome.State {
	case bandit.StateStopped:
		ux.Success(fmt.Sprintf("arm %d identified as best", outcome.Winner))
	case bandit.StateCapped:
		ux.Warning(fmt.Sprintf("step cap reached; arm %d leads without confidence", outcome.Winner))
	}
}

// renderHistory prints the recorded allocation snapshots, one column
// per arm.
func renderHistory(e *bandit.Experiment) {
	history := e.History()
	if len(history) == 0 {
		return
	}

	headers := make([]string, 0, e.NumArms()+1)
	headers = append(headers, "Pulls")
	for i := 0; i < e.NumArms(); i++ {
		headers = append(headers, "Arm "+strconv.Itoa(i))
	}

	table := ux.NewTable(headers...)
	for _, snap := range history {
		row := make([]string, 0, len(snap.Allocation)+1)
		row = append(row, strconv.Itoa(snap.TotalPulls))
		for _, w := range snap.Allocation {
			row = append(row, formatPercent(w))
		}
		table.AddRow(row...)
	}

	ux.Info("Allocation history")
	fmt.Print(table.Render())
}
