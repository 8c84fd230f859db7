// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// Helper to capture stdout
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture stderr
func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func withLevel(t *testing.T, level PersonalityLevel) {
	t.Helper()
	orig := GetPersonality()
	t.Cleanup(func() { SetPersonality(orig) })
	SetPersonalityLevel(level)
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render_Styled(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconTarget} {
		if icon.Render() == "" {
			t.Errorf("expected non-empty render for %q", icon)
		}
	}
}

func TestIcon_Render_Default(t *testing.T) {
	// Icons without specific styling render as-is
	for _, icon := range []Icon{IconArrow, IconBullet} {
		if got := icon.Render(); got != string(icon) {
			t.Errorf("expected %q, got %q", string(icon), got)
		}
	}
}

// =============================================================================
// Title Tests
// =============================================================================

func TestTitle_MachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	output := captureStdout(func() {
		Title("Experiment Report")
	})

	if output != "" {
		t.Errorf("expected no output in machine mode, got %q", output)
	}
}

func TestTitle_FullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	output := captureStdout(func() {
		Title("Experiment Report")
	})

	if !strings.Contains(output, "Experiment Report") {
		t.Errorf("expected title text in output, got %q", output)
	}
}

// =============================================================================
// Message Helper Tests
// =============================================================================

func TestSuccess_MachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	output := captureStdout(func() {
		Success("winner identified")
	})

	if output != "OK: winner identified\n" {
		t.Errorf("unexpected machine output: %q", output)
	}
}

func TestSuccess_FullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	output := captureStdout(func() {
		Success("winner identified")
	})

	if !strings.Contains(output, "winner identified") {
		t.Errorf("expected message in output, got %q", output)
	}
}

func TestWarning_MachineModeGoesToStderr(t *testing.T) {
	withLevel(t, PersonalityMachine)

	stderr := captureStderr(func() {
		Warning("run hit the step cap")
	})

	if stderr != "WARN: run hit the step cap\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestError_MachineModeGoesToStderr(t *testing.T) {
	withLevel(t, PersonalityMachine)

	stderr := captureStderr(func() {
		Error("scenario file missing")
	})

	if stderr != "ERROR: scenario file missing\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestInfo(t *testing.T) {
	t.Run("machine mode prints plain line", func(t *testing.T) {
		withLevel(t, PersonalityMachine)
		output := captureStdout(func() { Info("200 replications") })
		if output != "200 replications\n" {
			t.Errorf("unexpected output: %q", output)
		}
	})

	t.Run("full mode prefixes gutter", func(t *testing.T) {
		withLevel(t, PersonalityFull)
		output := captureStdout(func() { Info("200 replications") })
		if !strings.Contains(output, "200 replications") {
			t.Errorf("expected message in output, got %q", output)
		}
	})
}

func TestMuted_MachineModeSilent(t *testing.T) {
	withLevel(t, PersonalityMachine)

	output := captureStdout(func() {
		Muted("seed 42")
	})

	if output != "" {
		t.Errorf("expected no output, got %q", output)
	}
}

func TestField(t *testing.T) {
	t.Run("machine mode", func(t *testing.T) {
		withLevel(t, PersonalityMachine)
		output := captureStdout(func() { Field("Total pulls", "1432") })
		if output != "Total pulls: 1432\n" {
			t.Errorf("unexpected output: %q", output)
		}
	})

	t.Run("full mode keeps label and value", func(t *testing.T) {
		withLevel(t, PersonalityFull)
		output := captureStdout(func() { Field("Total pulls", "1432") })
		if !strings.Contains(output, "Total pulls") || !strings.Contains(output, "1432") {
			t.Errorf("expected label and value, got %q", output)
		}
	})
}

// =============================================================================
// Box Tests
// =============================================================================

func TestBox_MachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	output := captureStdout(func() {
		Box("Result", "arm 2 wins")
	})

	if output != "Result: arm 2 wins\n" {
		t.Errorf("unexpected machine output: %q", output)
	}
}

func TestBox_FullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	output := captureStdout(func() {
		Box("Result", "arm 2 wins")
	})

	if !strings.Contains(output, "Result") || !strings.Contains(output, "arm 2 wins") {
		t.Errorf("expected title and content, got %q", output)
	}
}

func TestWarningBox_MachineModeGoesToStderr(t *testing.T) {
	withLevel(t, PersonalityMachine)

	stderr := captureStderr(func() {
		WarningBox("Capped", "no winner within the cap")
	})

	if stderr != "WARN Capped: no winner within the cap\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// =============================================================================
// Summary Tests
// =============================================================================

func TestSummary_MachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	output := captureStdout(func() {
		Summary(187, 13, 200)
	})

	if output != "SUMMARY: stopped=187 capped=13 total=200\n" {
		t.Errorf("unexpected machine output: %q", output)
	}
}

func TestSummary_FullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	output := captureStdout(func() {
		Summary(187, 13, 200)
	})

	for _, want := range []string{"187", "13", "200", "stopped", "capped", "total"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got %q", want, output)
		}
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar_MachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	if got := ProgressBar(50, 200, 20); got != "50/200" {
		t.Errorf("expected plain fraction, got %q", got)
	}
}

func TestProgressBar_FullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	bar := ProgressBar(100, 200, 20)
	if !strings.Contains(bar, "50%") {
		t.Errorf("expected percentage, got %q", bar)
	}
}

func TestProgressBar_Complete(t *testing.T) {
	withLevel(t, PersonalityFull)

	bar := ProgressBar(200, 200, 10)
	if !strings.Contains(bar, "100%") {
		t.Errorf("expected 100%%, got %q", bar)
	}
}

func TestRepeatChar(t *testing.T) {
	if got := repeatChar('x', 3); got != "xxx" {
		t.Errorf("expected xxx, got %q", got)
	}
	if got := repeatChar('x', 0); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := repeatChar('x', -1); got != "" {
		t.Errorf("expected empty for negative count, got %q", got)
	}
}
