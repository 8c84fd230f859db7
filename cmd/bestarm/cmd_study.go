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
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/pkg/study"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// runStudy executes the "bestarm study" command.
func runStudy(cmd *cobra.Command, args []string) {
	scn, err := loadScenario(cmd)
	if err != nil {
		fail("load scenario", err)
	}

	mode, err := scenarioMode(scn)
	if err != nil {
		fail("configure study", err)
	}

	cfg := studyConfig(scn, mode, slog.Default())
	runner, err := study.NewRunner(cfg)
	if err != nil {
		fail("configure study", err)
	}

	ux.Title("Replication study: " + scenarioName(cmd, scn))
	ux.Field("Arms", formatRates(scn.Arms.TrueRates))
	ux.Field("Mode", mode.String())
	ux.Field("Replications", strconv.Itoa(cfg.Replications))

	ctx, cancel := signalContext()
	defer cancel()

	var result *study.Result
	err = ux.WithSpinner(fmt.Sprintf("running %d replications", cfg.Replications), func() error {
		r, runErr := runner.Run(ctx)
		if runErr != nil {
			return runErr
		}
		result = r
		return nil
	})
	if err != nil {
		slog.Error("study failed", "error", err)
		os.Exit(exitError)
	}

	renderStudy(result)
}

// renderStudy prints the per-arm win table and the aggregate fields.
func renderStudy(result *study.Result) {
	table := ux.NewTable("Arm", "True rate", "Wins", "Win rate", "Mean share")
	for i, rate := range result.TrueRates {
		table.AddRow(
			strconv.Itoa(i),
			strconv.FormatFloat(rate, 'f', 2, 64),
			strconv.Itoa(result.Wins[i]),
			formatPercent(float64(result.Wins[i])/float64(result.Replications)),
			formatPercent(result.PullShares[i]),
		)
	}
	table.Highlight(result.TrueBestArm)
	fmt.Print(table.Render())

	correct := formatPercent(result.CorrectRate)
	if ci := result.CorrectCI; ci != nil {
		correct = fmt.Sprintf("%s (%.0f%% CI %s to %s)",
			correct, ci.Level*100, formatPercent(ci.Lower), formatPercent(ci.Upper))
	}
	ux.Field("Correct rate", correct)

	if p := result.Pulls; p != nil {
		ux.Field("Pulls to stop", fmt.Sprintf("mean %.1f, sd %.1f, p50 %.0f, p90 %.0f, max %.0f",
			p.Mean, p.StdDev, p.P50, p.P90, p.Max))
	}
	ux.Field("Elapsed", result.Elapsed.Round(time.Millisecond).String())

	ux.Summary(result.StoppedCount, result.CappedCount, result.Replications)
}
