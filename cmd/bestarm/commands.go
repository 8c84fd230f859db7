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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/pkg/logging"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// --- Global Command Variables ---

var (
	// personalityLevel controls output verbosity and styling.
	personalityLevel string

	// logLevel controls structured log verbosity.
	logLevel string

	// logDir, when set, adds a JSON file handler under that directory.
	logDir string

	// logJSON switches stderr logs to JSON format.
	logJSON bool

	// quietLogs disables stderr logging entirely.
	quietLogs bool

	// appLogger is the process-wide structured logger, built in
	// PersistentPreRun and closed in PersistentPostRun.
	appLogger *logging.Logger
)

// rootCmd is the base command for the bestarm CLI.
var rootCmd = &cobra.Command{
	Use:   "bestarm",
	Short: "Simulate fixed-confidence best-arm identification",
	Long: `bestarm simulates best-arm identification on Bernoulli bandits.

A scenario file declares the hidden per-arm success rates and the
algorithm settings. bestarm then runs the identification loop against
simulated traffic. Use "run" for a single experiment, "study" for many
independently seeded replications, and "compare" to measure adaptive
allocation against the uniform baseline on identical seeds.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if personalityLevel != "" {
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
		} else {
			ux.InitPersonality()
		}
		initLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Close()
		}
	},
}

// runCmd executes a single experiment.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single best-arm experiment",
	Long: `Run one seeded experiment against a scenario and report the
winner, the per-arm pull distribution, and the stopping state. With
--watch the scenario file is re-run on every save.`,
	Run: runRun, // Defined in cmd_run.go
}

// studyCmd executes a replication study.
var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Run a replication study",
	Long: `Run many independently seeded experiments against a scenario
and report identification accuracy with a confidence interval, the
distribution of pulls to stop, and per-arm pull shares.`,
	Run: runStudy, // Defined in cmd_study.go
}

// compareCmd runs paired adaptive and uniform studies.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare adaptive allocation against the uniform baseline",
	Long: `Run two studies on identical seeds, one with adaptive
allocation and one with uniform, then test whether the difference in
pulls to stop is statistically significant and report which mode the
evidence supports.`,
	Run: runCompare, // Defined in cmd_compare.go
}

// initCmd writes a starter scenario file.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter scenario file",
	Long: `Write a commented starter scenario to the given path (default
scenario.yaml) for editing. Refuses to overwrite an existing file.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit, // Defined in cmd_init.go
}

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output personality: full, standard, minimal, or machine")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Emit stderr logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&quietLogs, "quiet-logs", false,
		"Disable stderr logging")

	addScenarioFlags(runCmd)
	addAlgorithmFlags(runCmd)
	runCmd.Flags().Uint64("seed", 0, "Seed for the run's random source")
	runCmd.Flags().Bool("history", false, "Print allocation snapshots after the run")
	runCmd.Flags().Bool("watch", false, "Re-run whenever the scenario file changes")

	addScenarioFlags(studyCmd)
	addAlgorithmFlags(studyCmd)
	addStudyFlags(studyCmd)

	addScenarioFlags(compareCmd)
	addAlgorithmFlags(compareCmd)
	addStudyFlags(compareCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(initCmd)
}

// addScenarioFlags registers the scenario-selection flags shared by the
// run, study, and compare commands.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("scenario", "s", "", "Path to a scenario YAML file")
	cmd.Flags().Float64Slice("rates", nil,
		"Ad-hoc true success rates, e.g. --rates 0.72,0.55,0.45")
}

// addAlgorithmFlags registers the identification-setting overrides.
// Each override applies only when the flag is set on the command line.
func addAlgorithmFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "Allocation mode: adaptive or uniform")
	cmd.Flags().Float64("delta", 0, "Acceptable error probability, in [0, 1)")
	cmd.Flags().Int("max-steps", 0, "Cap on total pulls before giving up")
	cmd.Flags().Int("allocation-warmup", 0, "Per-arm pulls before adaptive weighting starts")
	cmd.Flags().Int("stopping-warmup", 0, "Per-arm pulls before stopping is considered")
	cmd.Flags().Int("history-interval", 0, "Steps between allocation snapshots")
}

// addStudyFlags registers the replication-study sizing overrides.
func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("replications", "n", 0, "Number of independent runs")
	cmd.Flags().Uint64("base-seed", 0, "Base seed for per-replication seeds")
	cmd.Flags().Int("parallelism", 0, "Concurrent replications (0 = one per CPU)")
	cmd.Flags().Float64("confidence", 0, "Confidence level for reported intervals")
}

// initLogging builds the process logger from the persistent flags and
// installs it as the slog default.
func initLogging() {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		level = logging.LevelInfo
	}

	appLogger = logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "bestarm",
		JSON:    logJSON,
		Quiet:   quietLogs,
	})
	slog.SetDefault(appLogger.Slog())

	if err != nil {
		appLogger.Warn("unknown log level, using info", "value", logLevel)
	}
}
