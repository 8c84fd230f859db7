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
	"math/rand/v2"
	"testing"
)

// Ensure the stdlib generator satisfies the interface, so callers can
// inject rand.New(rand.NewPCG(...)).
var _ RNG = (*rand.Rand)(nil)

func TestSeededRNG_Deterministic(t *testing.T) {
	a := NewSeededRNG(42)
	b := NewSeededRNG(42)

	for i := 0; i < 1000; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("draw %d diverged: %v vs %v", i, va, vb)
		}
	}
}

func TestSeededRNG_SeedsDiffer(t *testing.T) {
	a := NewSeededRNG(1)
	b := NewSeededRNG(2)

	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Error("different seeds produced identical streams")
	}
}

func TestSeededRNG_Range(t *testing.T) {
	rng := NewSeededRNG(7)
	for i := 0; i < 10000; i++ {
		v := rng.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
}

func TestSeededRNG_ZeroSeedValid(t *testing.T) {
	rng := NewSeededRNG(0)
	first := rng.Float64()
	second := rng.Float64()
	if first == second {
		t.Errorf("zero seed produced a stuck stream: %v, %v", first, second)
	}
}

func TestSeededRNG_RoughlyUniform(t *testing.T) {
	rng := NewSeededRNG(99)
	const n = 100000
	var sum float64
	for i := 0; i < n; i++ {
		sum += rng.Float64()
	}
	mean := sum / n
	if mean < 0.48 || mean > 0.52 {
		t.Errorf("mean of %d draws = %v, want near 0.5", n, mean)
	}
}

func BenchmarkSeededRNG_Float64(b *testing.B) {
	rng := NewSeededRNG(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rng.Float64()
	}
}
