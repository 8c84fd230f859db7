// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config defines scenario files for the bestarm CLI.
//
// A scenario is the YAML description of one simulated experiment: the
// hidden per-arm success rates plus the algorithm and study settings to
// run against them. Zero values mean package defaults everywhere, so a
// minimal scenario only needs arm rates.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// scenarioValidate is the validator instance for scenario files.
// Initialized in init() with the custom probability rule.
var scenarioValidate *validator.Validate

func init() {
	scenarioValidate = validator.New()

	_ = scenarioValidate.RegisterValidation("probability", validateProbability)
}

// validateProbability checks that a float field lies within [0, 1].
func validateProbability(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= 0 && v <= 1
}

// Scenario is the root of a scenario file.
type Scenario struct {
	Metadata  Metadata  `yaml:"metadata"`
	Arms      Arms      `yaml:"arms"`
	Algorithm Algorithm `yaml:"algorithm"`
	Study     Study     `yaml:"study"`
}

// Metadata identifies a scenario in reports and logs.
type Metadata struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Arms holds the simulated ground truth.
type Arms struct {
	// TrueRates are the hidden Bernoulli success rates, one per arm,
	// each within [0, 1]. The algorithm never sees these directly.
	TrueRates []float64 `yaml:"true_rates" validate:"required,min=1,dive,probability"`
}

// Algorithm holds the identification settings. Mode, Delta, and
// MaxSteps apply to every command; the warm-up floors and the history
// interval are single-run tuning knobs used by "bestarm run".
type Algorithm struct {
	// Mode selects the allocation rule: "adaptive" or "uniform".
	Mode string `yaml:"mode,omitempty" validate:"omitempty,oneof=adaptive uniform"`

	// Delta is the acceptable probability of declaring a wrong winner.
	Delta float64 `yaml:"delta,omitempty" validate:"gte=0,lt=1"`

	// MaxSteps caps a run that never reaches confidence.
	MaxSteps int `yaml:"max_steps,omitempty" validate:"gte=0"`

	// AllocationWarmup is the per-arm pull floor below which the
	// adaptive rule stays uniform.
	AllocationWarmup int `yaml:"allocation_warmup,omitempty" validate:"gte=0"`

	// StoppingWarmup is the per-arm pull floor below which the stopping
	// rule never fires.
	StoppingWarmup int `yaml:"stopping_warmup,omitempty" validate:"gte=0"`

	// HistoryInterval is the step spacing of allocation snapshots.
	HistoryInterval int `yaml:"history_interval,omitempty" validate:"gte=0"`
}

// Study holds replication-study sizing for "bestarm study" and
// "bestarm compare".
type Study struct {
	// Replications is the number of independent seeded runs.
	Replications int `yaml:"replications,omitempty" validate:"gte=0"`

	// BaseSeed derives per-replication seeds (BaseSeed + index).
	BaseSeed uint64 `yaml:"base_seed,omitempty"`

	// Parallelism bounds concurrent replications; zero means one per CPU.
	Parallelism int `yaml:"parallelism,omitempty" validate:"gte=0"`

	// ConfidenceLevel is used for the reported intervals.
	ConfidenceLevel float64 `yaml:"confidence_level,omitempty" validate:"gte=0,lt=1"`
}

// Validate checks the scenario against its validation tags.
//
// Outputs:
//   - error: Non-nil if any field is out of range, naming the field.
func (s *Scenario) Validate() error {
	if err := scenarioValidate.Struct(s); err != nil {
		return fmt.Errorf("scenario validation: %w", err)
	}
	return nil
}

// DefaultScenario returns a starter scenario: a four-variant field with
// one clearly strongest arm, sized like a real conversion test.
func DefaultScenario() *Scenario {
	return &Scenario{
		Metadata: Metadata{
			Name:        "checkout",
			Description: "Four checkout variants with one clear winner",
		},
		Arms: Arms{TrueRates: []float64{0.55, 0.45, 0.72, 0.48}},
		Algorithm: Algorithm{
			Mode:     "adaptive",
			Delta:    0.05,
			MaxSteps: 5000,
		},
		Study: Study{
			Replications:    200,
			BaseSeed:        1,
			ConfidenceLevel: 0.95,
		},
	}
}
