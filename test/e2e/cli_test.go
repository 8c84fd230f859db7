// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunIdentifiesObviousWinner(t *testing.T) {
	stdout, stderr, code := runCLI(t,
		"run", "--rates", "0.9,0.1", "--seed", "7")

	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "OK: arm 0 identified as best") {
		t.Errorf("expected a win for arm 0, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Total pulls:") {
		t.Errorf("expected a total pulls field, got:\n%s", stdout)
	}
	// Machine tables are tab separated.
	if !strings.Contains(stdout, "Arm\tTrue rate\tPulls\tShare\tMean") {
		t.Errorf("expected the per-arm table header, got:\n%s", stdout)
	}
}

func TestRunReportsCapWithDistinctExitCode(t *testing.T) {
	// A two-point gap cannot reach delta 0.001 inside 60 pulls, so the
	// run must end capped and exit 2.
	stdout, _, code := runCLI(t,
		"run", "--rates", "0.51,0.49", "--max-steps", "60",
		"--delta", "0.001", "--seed", "7")

	if code != 2 {
		t.Fatalf("expected exit code 2 for a capped run, got %d\n%s", code, stdout)
	}
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	first, _, _ := runCLI(t, "run", "--rates", "0.72,0.55,0.45", "--seed", "11")
	second, _, _ := runCLI(t, "run", "--rates", "0.72,0.55,0.45", "--seed", "11")

	if first != second {
		t.Errorf("same seed produced different output:\n%s\n----\n%s", first, second)
	}
}

func TestRunRequiresScenarioOrRates(t *testing.T) {
	_, stderr, code := runCLI(t, "run")

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "provide --scenario or --rates") {
		t.Errorf("expected a usage hint on stderr, got: %s", stderr)
	}
}

func TestStudyReportsSummary(t *testing.T) {
	stdout, stderr, code := runCLI(t,
		"study", "--rates", "0.9,0.1", "--replications", "20", "--base-seed", "1")

	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	// Every replication of an easy pair stops well before the cap.
	if !strings.Contains(stdout, "SUMMARY: stopped=20 capped=0 total=20") {
		t.Errorf("expected a clean summary, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Correct rate:") {
		t.Errorf("expected a correct rate field, got:\n%s", stdout)
	}
}

func TestCompareReportsVerdict(t *testing.T) {
	stdout, stderr, code := runCLI(t,
		"compare", "--rates", "0.9,0.1", "--replications", "10", "--base-seed", "1")

	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Welch t-test:") {
		t.Errorf("expected the t-test field, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Effect size:") {
		t.Errorf("expected the effect size field, got:\n%s", stdout)
	}
}

func TestInitWritesScenarioOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starter.yaml")

	_, _, code := runCLI(t, "init", path)
	if code != 0 {
		t.Fatalf("expected a clean init, got exit code %d", code)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scenario: %v", err)
	}
	if !strings.Contains(string(data), "true_rates") {
		t.Errorf("scenario file is missing arm rates:\n%s", data)
	}

	// A second init must refuse to overwrite.
	_, stderr, code := runCLI(t, "init", path)
	if code != 1 {
		t.Fatalf("expected exit code 1 on overwrite, got %d", code)
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("expected an overwrite refusal, got: %s", stderr)
	}
}

func TestScenarioFileDrivesRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.yaml")
	scenario := "metadata:\n  name: pair\narms:\n  true_rates: [0.9, 0.1]\n"
	if err := os.WriteFile(path, []byte(scenario), 0640); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCLI(t, "run", "--scenario", path, "--seed", "3")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "OK: arm 0 identified as best") {
		t.Errorf("expected a win for arm 0, got:\n%s", stdout)
	}
}
