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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// States
// -----------------------------------------------------------------------------

// State is the experiment lifecycle state.
type State int

const (
	// StateIdle means no step has run since creation or the last reset.
	StateIdle State = iota

	// StateRunning means the experiment is accepting steps.
	StateRunning

	// StatePaused means stepping is suspended until Resume.
	StatePaused

	// StateStopped means the stopping rule fired and a winner was
	// declared with the configured confidence. Terminal until Reset.
	StateStopped

	// StateCapped means the hard step cap ended the run before the
	// stopping rule fired. The recorded winner is the current leader
	// WITHOUT the confidence guarantee. Terminal until Reset.
	StateCapped
)

// String returns the string representation.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCapped:
		return "capped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCapped
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// AllocationSnapshot is a point-in-time record of the target allocation.
// Snapshots are append-only and immutable once recorded; the Allocation
// slice is a copy, never a live reference.
type AllocationSnapshot struct {
	// TotalPulls is the cumulative pull count when the snapshot was taken.
	TotalPulls int

	// Allocation is the K-probability target distribution at that time.
	Allocation []float64
}

// Outcome is the terminal result of a run.
type Outcome struct {
	// Winner is the declared best arm index.
	Winner int

	// TotalPulls is the cumulative pull count at termination.
	TotalPulls int

	// State is StateStopped (rule fired) or StateCapped (step cap hit).
	State State
}

// StepResult reports what a single step did.
type StepResult struct {
	// AllocationUsed is the distribution the arm was drawn from.
	AllocationUsed []float64

	// Arm is the selected arm index.
	Arm int

	// Success is the Bernoulli trial outcome.
	Success bool

	// TotalPulls is the cumulative pull count after this step.
	TotalPulls int

	// Stopped is true when this step fired the stopping rule.
	Stopped bool

	// Winner is the declared winner, or -1 while the run continues.
	Winner int

	// State is the experiment state after this step.
	State State
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

const (
	// DefaultMaxSteps bounds worst-case run length so callers driving the
	// loop interactively always terminate.
	DefaultMaxSteps = 5000

	// DefaultHistoryInterval is how many steps pass between allocation
	// snapshots. Bounds history memory on long runs.
	DefaultHistoryInterval = 10
)

var (
	// ErrNoArms indicates construction with fewer than one arm.
	ErrNoArms = errors.New("experiment requires at least one arm")

	// ErrInvalidRate indicates a true success rate outside [0, 1].
	ErrInvalidRate = errors.New("true success rate must be within [0, 1]")

	// ErrExperimentTerminal indicates a step after Stopped or Capped.
	ErrExperimentTerminal = errors.New("experiment is terminal; call Reset before stepping")

	// ErrExperimentPaused indicates a step while paused.
	ErrExperimentPaused = errors.New("experiment is paused; call Resume before stepping")

	// ErrNotRunning indicates Pause outside the Running state.
	ErrNotRunning = errors.New("experiment is not running")

	// ErrNotPaused indicates Resume outside the Paused state.
	ErrNotPaused = errors.New("experiment is not paused")
)

// ExperimentConfig configures an Experiment.
type ExperimentConfig struct {
	// Mode selects the allocation rule.
	// Default: ModeAdaptive
	Mode Mode

	// Delta is the error tolerance in (0, 1).
	// Default: 0.05
	Delta float64

	// MaxSteps is the hard step cap. Values <= 0 fall back to the default.
	// Default: 5000
	MaxSteps int

	// AllocationWarmup is the per-arm pull floor before adaptive
	// weighting engages. Negative values fall back to the default.
	// Default: 6
	AllocationWarmup int

	// StoppingWarmup is the per-arm pull floor before the stopping test
	// may fire. Negative values fall back to the default.
	// Default: 12
	StoppingWarmup int

	// HistoryInterval is the step period between allocation snapshots.
	// Values <= 0 fall back to the default.
	// Default: 10
	HistoryInterval int

	// RNG is the randomness source for arm draws and trial outcomes.
	// Default: nil (a time-seeded source is created at construction)
	RNG RNG

	// Logger receives structured step and termination logs.
	// Default: nil (slog.Default())
	Logger *slog.Logger
}

// DefaultExperimentConfig returns sensible defaults.
//
// Outputs:
//   - *ExperimentConfig: Default configuration. Never nil.
func DefaultExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Mode:             ModeAdaptive,
		Delta:            DefaultDelta,
		MaxSteps:         DefaultMaxSteps,
		AllocationWarmup: DefaultAllocationWarmup,
		StoppingWarmup:   DefaultStoppingWarmup,
		HistoryInterval:  DefaultHistoryInterval,
	}
}

// ExperimentOption customizes experiment construction.
type ExperimentOption func(*ExperimentConfig)

// WithMode sets the allocation mode.
func WithMode(mode Mode) ExperimentOption {
	return func(c *ExperimentConfig) { c.Mode = mode }
}

// WithDelta sets the error tolerance.
func WithDelta(delta float64) ExperimentOption {
	return func(c *ExperimentConfig) { c.Delta = delta }
}

// WithMaxSteps sets the hard step cap.
func WithMaxSteps(n int) ExperimentOption {
	return func(c *ExperimentConfig) { c.MaxSteps = n }
}

// WithAllocationWarmup sets the allocator's per-arm pull floor.
func WithAllocationWarmup(pulls int) ExperimentOption {
	return func(c *ExperimentConfig) { c.AllocationWarmup = pulls }
}

// WithStoppingWarmup sets the stopping rule's per-arm pull floor.
func WithStoppingWarmup(pulls int) ExperimentOption {
	return func(c *ExperimentConfig) { c.StoppingWarmup = pulls }
}

// WithHistoryInterval sets the snapshot period.
func WithHistoryInterval(steps int) ExperimentOption {
	return func(c *ExperimentConfig) { c.HistoryInterval = steps }
}

// WithRNG injects a randomness source, typically seeded for
// reproducibility.
func WithRNG(rng RNG) ExperimentOption {
	return func(c *ExperimentConfig) { c.RNG = rng }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ExperimentOption {
	return func(c *ExperimentConfig) { c.Logger = logger }
}

// -----------------------------------------------------------------------------
// Experiment
// -----------------------------------------------------------------------------

// Experiment drives one best-arm identification run.
//
// Description:
//
//	Each step asks the allocator for the target distribution, draws an
//	arm index from it with one uniform draw, simulates a Bernoulli trial
//	with that arm's hidden true rate, records the result, periodically
//	snapshots the allocation, and evaluates the stopping rule. The rule
//	firing moves the experiment to StateStopped with a winner; reaching
//	the step cap moves it to StateCapped with the current leader.
//
//	Lifecycle: Idle -> Running -> {Stopped, Capped, Paused}. Paused
//	returns to Running via Resume. Terminal states persist until Reset,
//	which zeroes all arms and history and returns to Idle.
//
//	Arms whose true rates are exactly tied may never accumulate enough
//	evidence to stop; such runs end at the cap. That is the expected
//	behavior of the underlying test, not a defect.
//
// Thread Safety: Safe for concurrent use. Steps are serialized, so the
// allocation used for step n+1 always reflects every update through
// step n. There is no internal goroutine and no blocking operation.
type Experiment struct {
	mu sync.RWMutex

	config    ExperimentConfig
	arms      []*Arm
	allocator *Allocator
	stopping  *StoppingRule
	rng       RNG
	logger    *slog.Logger

	state      State
	totalPulls int
	winner     int
	history    []AllocationSnapshot
}

// NewExperiment creates an experiment over the given true success rates.
//
// Inputs:
//   - trueRates: One entry per arm, each within [0, 1]. Must not be empty.
//   - opts: Optional configuration overrides.
//
// Outputs:
//   - *Experiment: The new experiment in StateIdle.
//   - error: ErrNoArms, ErrInvalidRate, or ErrInvalidDelta on bad input.
func NewExperiment(trueRates []float64, opts ...ExperimentOption) (*Experiment, error) {
	if len(trueRates) < 1 {
		return nil, ErrNoArms
	}
	for i, rate := range trueRates {
		if rate < 0 || rate > 1 {
			return nil, fmt.Errorf("arm %d: rate %v: %w", i, rate, ErrInvalidRate)
		}
	}

	config := DefaultExperimentConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	if config.HistoryInterval <= 0 {
		config.HistoryInterval = DefaultHistoryInterval
	}
	if config.RNG == nil {
		config.RNG = NewSeededRNG(uint64(time.Now().UnixNano()))
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	stopping, err := NewStoppingRule(config.Delta, config.StoppingWarmup, config.Logger)
	if err != nil {
		return nil, err
	}

	arms := make([]*Arm, len(trueRates))
	for i, rate := range trueRates {
		arms[i] = NewArm(rate)
	}

	return &Experiment{
		config:    *config,
		arms:      arms,
		allocator: NewAllocator(config.AllocationWarmup, config.Logger),
		stopping:  stopping,
		rng:       config.RNG,
		logger:    config.Logger,
		state:     StateIdle,
		winner:    -1,
	}, nil
}

// Step advances the experiment by one pull.
//
// Outputs:
//   - *StepResult: What the step did. Never nil on success.
//   - error: ErrExperimentTerminal after Stopped/Capped,
//     ErrExperimentPaused while paused.
func (e *Experiment) Step() (*StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateStopped, StateCapped:
		return nil, ErrExperimentTerminal
	case StatePaused:
		return nil, ErrExperimentPaused
	case StateIdle:
		e.state = StateRunning
	}

	allocation := e.allocator.Allocation(e.arms, e.config.Mode)
	arm := sampleIndex(allocation, e.rng.Float64())
	success := e.rng.Float64() < e.arms[arm].TrueRate()
	e.arms[arm].RecordTrial(success)
	e.totalPulls++

	if e.totalPulls%e.config.HistoryInterval == 0 {
		e.snapshotLocked(allocation)
	}

	result := &StepResult{
		AllocationUsed: allocation,
		Arm:            arm,
		Success:        success,
		TotalPulls:     e.totalPulls,
		Winner:         -1,
	}

	if e.stopping.ShouldStop(e.arms, e.totalPulls) {
		e.winner = bestArmIndex(e.arms)
		e.state = StateStopped
		e.snapshotLocked(allocation)
		result.Stopped = true
		e.logger.Info("stopping rule fired",
			slog.Int("winner", e.winner),
			slog.Int("total_pulls", e.totalPulls),
			slog.Float64("threshold", e.stopping.Threshold(e.totalPulls)),
		)
	} else if e.totalPulls >= e.config.MaxSteps {
		e.winner = bestArmIndex(e.arms)
		e.state = StateCapped
		e.snapshotLocked(allocation)
		e.logger.Warn("step cap reached before stopping rule fired",
			slog.Int("leader", e.winner),
			slog.Int("total_pulls", e.totalPulls),
		)
	}

	if e.state.Terminal() {
		result.Winner = e.winner
	}
	result.State = e.state
	return result, nil
}

// Run steps until the experiment terminates or ctx is cancelled.
//
// Description:
//
//	Convenience loop around Step. If the experiment is already terminal,
//	the existing outcome is returned unchanged. Pausing from another
//	goroutine surfaces as ErrExperimentPaused.
//
// Inputs:
//   - ctx: Bounds the run. Cancellation is checked between steps.
//
// Outputs:
//   - *Outcome: The terminal result.
//   - error: Context error on cancellation, or a step error.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	for {
		if outcome, ok := e.Outcome(); ok {
			return outcome, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.Step(); err != nil {
			return nil, err
		}
	}
}

// Pause suspends stepping until Resume.
//
// Outputs:
//   - error: ErrNotRunning unless the experiment is currently running.
func (e *Experiment) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("pause in state %s: %w", e.state, ErrNotRunning)
	}
	e.state = StatePaused
	return nil
}

// Resume returns a paused experiment to the running state.
//
// Outputs:
//   - error: ErrNotPaused unless the experiment is currently paused.
func (e *Experiment) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("resume in state %s: %w", e.state, ErrNotPaused)
	}
	e.state = StateRunning
	return nil
}

// Reset zeroes all arm counts and history and returns to StateIdle.
// Idempotent: calling it twice, or in StateIdle, is safe.
func (e *Experiment) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, arm := range e.arms {
		arm.Reset()
	}
	e.totalPulls = 0
	e.winner = -1
	e.history = nil
	e.state = StateIdle
}

// State returns the current lifecycle state.
func (e *Experiment) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CurrentAllocation returns the target distribution the next pull would
// be drawn from.
func (e *Experiment) CurrentAllocation() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.allocator.Allocation(e.arms, e.config.Mode)
}

// CurrentBestArm returns the index of the arm with the highest current
// mean estimate. Ties break to the lowest index.
func (e *Experiment) CurrentBestArm() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return bestArmIndex(e.arms)
}

// TotalPulls returns the cumulative pull count.
func (e *Experiment) TotalPulls() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalPulls
}

// NumArms returns K.
func (e *Experiment) NumArms() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.arms)
}

// Mode returns the configured allocation mode.
func (e *Experiment) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config.Mode
}

// Delta returns the configured error tolerance.
func (e *Experiment) Delta() float64 {
	return e.stopping.Delta()
}

// Winner returns the declared winner.
//
// Outputs:
//   - int: The winning arm index, or -1 while the run continues.
//   - bool: true once the experiment is terminal.
func (e *Experiment) Winner() (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.state.Terminal() {
		return -1, false
	}
	return e.winner, true
}

// Outcome returns the terminal result.
//
// Outputs:
//   - *Outcome: The result, or nil while the run continues.
//   - bool: true once the experiment is terminal.
func (e *Experiment) Outcome() (*Outcome, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.state.Terminal() {
		return nil, false
	}
	return &Outcome{
		Winner:     e.winner,
		TotalPulls: e.totalPulls,
		State:      e.state,
	}, true
}

// History returns the recorded allocation snapshots in step order.
// The returned slice is a copy; snapshots themselves are immutable.
func (e *Experiment) History() []AllocationSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	history := make([]AllocationSnapshot, len(e.history))
	copy(history, e.history)
	return history
}

// ArmStats returns a read-only snapshot of every arm.
func (e *Experiment) ArmStats() []ArmStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := make([]ArmStats, len(e.arms))
	for i, arm := range e.arms {
		stats[i] = ArmStats{
			Index:     i,
			Pulls:     arm.Pulls(),
			Successes: arm.Successes(),
			Estimate:  arm.MeanEstimate(),
			TrueRate:  arm.TrueRate(),
		}
	}
	return stats
}

// snapshotLocked appends an allocation snapshot unless one was already
// taken at the current pull count. Callers must hold e.mu.
func (e *Experiment) snapshotLocked(allocation []float64) {
	if n := len(e.history); n > 0 && e.history[n-1].TotalPulls == e.totalPulls {
		return
	}
	recorded := make([]float64, len(allocation))
	copy(recorded, allocation)
	e.history = append(e.history, AllocationSnapshot{
		TotalPulls: e.totalPulls,
		Allocation: recorded,
	})
}

// sampleIndex draws an arm index from the allocation with one uniform
// draw in [0, 1): the first index whose cumulative weight reaches the
// draw wins. Floating-point rounding can leave the final cumulative sum
// fractionally below the draw, so the last index is the fallback.
func sampleIndex(allocation []float64, draw float64) int {
	cumulative := 0.0
	for i, p := range allocation {
		cumulative += p
		if cumulative >= draw {
			return i
		}
	}
	return len(allocation) - 1
}
