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

import (
	"math"
	"testing"
)

func TestKLBernoulli_ZeroAtEqualInputs(t *testing.T) {
	for _, p := range []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99} {
		if got := KLBernoulli(p, p); got != 0 {
			t.Errorf("KLBernoulli(%v, %v) = %v, want 0", p, p, got)
		}
	}
}

func TestKLBernoulli_NonNegative(t *testing.T) {
	grid := []float64{0, 1e-12, 0.001, 0.1, 0.3, 0.5, 0.7, 0.9, 0.999, 1}
	for _, p := range grid {
		for _, q := range grid {
			got := KLBernoulli(p, q)
			if got < 0 {
				t.Errorf("KLBernoulli(%v, %v) = %v, want >= 0", p, q, got)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("KLBernoulli(%v, %v) = %v, want finite", p, q, got)
			}
		}
	}
}

func TestKLBernoulli_KnownValue(t *testing.T) {
	// KL(0.5 || 0.25) = 0.5*ln(2) + 0.5*ln(2/3)
	want := 0.5*math.Log(2) + 0.5*math.Log(2.0/3.0)
	got := KLBernoulli(0.5, 0.25)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("KLBernoulli(0.5, 0.25) = %v, want %v", got, want)
	}
}

func TestKLBernoulli_Asymmetric(t *testing.T) {
	forward := KLBernoulli(0.8, 0.3)
	backward := KLBernoulli(0.3, 0.8)
	if forward == backward {
		t.Errorf("KL(0.8,0.3) = KL(0.3,0.8) = %v, expected asymmetry", forward)
	}
}

func TestKLBernoulli_ExtremesClamped(t *testing.T) {
	// Estimates of exactly 0 and 1 occur after all-failure or
	// all-success streaks; the clamp must keep the result finite.
	for _, pair := range [][2]float64{{0, 1}, {1, 0}, {0, 0.5}, {1, 0.5}, {0.5, 0}, {0.5, 1}} {
		got := KLBernoulli(pair[0], pair[1])
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("KLBernoulli(%v, %v) = %v, want finite", pair[0], pair[1], got)
		}
	}
}

func TestClampProbability(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below floor", -1, klEpsilon},
		{"zero", 0, klEpsilon},
		{"interior", 0.4, 0.4},
		{"one", 1, 1 - klEpsilon},
		{"above ceiling", 2, 1 - klEpsilon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampProbability(tt.in); got != tt.want {
				t.Errorf("clampProbability(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
