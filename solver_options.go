// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// SolverOptions configures the behavior of the dependency solver.
//
// Options control:
//   - Maximum step budget to guarantee termination
//   - The candidate selection policy
//   - Debug logging, metrics and tracing
type SolverOptions struct {
	// MaxSteps limits the number of propagation, decision and conflict
	// resolution steps of one solve.
	// Set to 0 to disable the limit (not recommended for untrusted inputs).
	// Default: 100000
	MaxSteps int

	// Policy filters and orders candidate versions.
	// Default: DefaultPolicy()
	Policy Policy

	// Prefetch asks the source to fetch the dependencies of every decided
	// release in the background. It only has an effect when the source
	// implements Prefetcher.
	// Default: true
	Prefetch bool

	// IncludeDev resolves the development requirements of the root along
	// with the regular ones, as Composer does unless --no-dev is given.
	// Default: true
	IncludeDev bool

	// Logger enables debug logging of solver operations.
	// When nil, no logging is performed.
	Logger *slog.Logger

	// Metrics records solve outcomes. When nil, nothing is recorded.
	Metrics *Metrics

	// Tracer opens a span per solve and per metadata fetch.
	// Default: the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// SolverOption is a functional option for configuring the solver.
type SolverOption func(*SolverOptions)

const defaultMaxSteps = 100000

// defaultSolverOptions returns the default solver configuration.
func defaultSolverOptions() SolverOptions {
	return SolverOptions{
		MaxSteps:   defaultMaxSteps,
		Policy:     DefaultPolicy(),
		Prefetch:   true,
		IncludeDev: true,
	}
}

// WithMaxSteps sets the maximum number of solver steps.
// Use 0 to disable the limit (allows unbounded execution).
//
// Exceeding the budget fails the solve with ErrIterationLimit.
// Most real-world dependency graphs resolve in thousands of steps.
//
// Example:
//
//	solver := NewSolverWithOptions(
//	    []Source{repository},
//	    WithMaxSteps(10000), // Limit to 10k steps
//	)
func WithMaxSteps(steps int) SolverOption {
	return func(opts *SolverOptions) {
		if steps <= 0 {
			opts.MaxSteps = 0
		} else {
			opts.MaxSteps = steps
		}
	}
}

// WithPolicy sets the stability and preference policy.
//
// Example:
//
//	policy := DefaultPolicy()
//	policy.MinimumStability = StabilityBeta
//	policy.Mode = PreferLowest
//	solver := NewSolverWithOptions([]Source{repository}, WithPolicy(policy))
func WithPolicy(policy Policy) SolverOption {
	return func(opts *SolverOptions) {
		opts.Policy = policy
	}
}

// WithPrefetch enables or disables background prefetching of dependencies.
func WithPrefetch(enabled bool) SolverOption {
	return func(opts *SolverOptions) {
		opts.Prefetch = enabled
	}
}

// WithDevRequirements includes or leaves out the development requirements
// of the root. Packages only reachable through them are marked in
// Solution.Dev.
func WithDevRequirements(include bool) SolverOption {
	return func(opts *SolverOptions) {
		opts.IncludeDev = include
	}
}

// WithLogger sets a structured logger for solver diagnostics.
// The logger receives debug messages during solving, useful for understanding
// the solver's decision-making process. Every record carries the run id of
// its solve.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	solver := NewSolverWithOptions(
//	    []Source{repository},
//	    WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) SolverOption {
	return func(opts *SolverOptions) {
		opts.Logger = logger
	}
}

// WithMetrics records solve outcomes, step counts and conflicts.
func WithMetrics(metrics *Metrics) SolverOption {
	return func(opts *SolverOptions) {
		opts.Metrics = metrics
	}
}

// WithTracer sets the tracer used for solve and fetch spans.
func WithTracer(tracer trace.Tracer) SolverOption {
	return func(opts *SolverOptions) {
		opts.Tracer = tracer
	}
}
