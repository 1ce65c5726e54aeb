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
	"context"
	"time"

	"github.com/google/uuid"
)

// Solver implements the PubGrub dependency resolution algorithm for
// Composer-style package metadata.
//
// The solver uses conflict-driven clause learning: every conflict is turned
// into a learned incompatibility that explains it, so a failed attempt is
// never repeated, and a failed solve carries a complete proof.
//
// A Solver holds only immutable configuration. Concurrent calls to Solve
// are safe as long as the source is.
//
// Basic usage:
//
//	root := NewRootSource("acme/app")
//	_ = root.Require("monolog/monolog", "^2.0")
//
//	source := &InMemorySource{}
//	// ... populate source with releases ...
//
//	solver := NewSolver(source)
//	solution, err := solver.Solve(ctx, root)
//
// With options:
//
//	solver := NewSolverWithOptions(
//	    []Source{NewCachedSource(registry)},
//	    WithPolicy(policy),
//	    WithMaxSteps(10000),
//	)
type Solver struct {
	Source  Source
	options SolverOptions
}

// NewSolver creates a new solver with default options from multiple sources.
// The sources are combined into a single CombinedSource that tries each source in order.
//
// Example:
//
//	source := &InMemorySource{}
//	solver := NewSolver(source)
func NewSolver(sources ...Source) *Solver {
	return NewSolverWithOptions(sources)
}

// NewSolverWithOptions creates a solver over sources configured by opts.
// When the policy configures platform packages, a platform source is
// consulted before every other source.
func NewSolverWithOptions(sources []Source, opts ...SolverOption) *Solver {
	options := defaultSolverOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.Tracer == nil {
		options.Tracer = defaultTracer()
	}

	var source Source
	switch {
	case len(sources) == 1:
		source = sources[0]
	default:
		source = CombinedSource(sources)
	}
	if len(options.Policy.Platform) > 0 {
		source = CombinedSource{NewPlatformSource(options.Policy.Platform), source}
	}

	return &Solver{
		Source:  source,
		options: options,
	}
}

// Options returns the solver configuration.
func (s *Solver) Options() SolverOptions {
	return s.options
}

// Solve resolves the requirements of root.
//
// It returns one of:
//   - a Solution when every required package could be given a version
//   - *NoSolutionError (ErrNoVersions or ErrUnsatisfiable) with a proof
//   - ErrIterationLimit when the step budget is exhausted
//   - *CancelledError when ctx ends first
//   - *SourceError when the source fails
func (s *Solver) Solve(ctx context.Context, root *RootSource) (Solution, error) {
	runID := uuid.NewString()
	logger := s.options.Logger
	if logger != nil {
		logger = logger.With("run_id", runID)
	}

	requirements := len(root.links(s.options.IncludeDev))
	ctx, span := startSolveSpan(ctx, s.options.Tracer, runID, root.Name(), requirements)
	start := time.Now()

	state := newSolverState(s.Source, root, s.options, logger)
	state.debug("starting solver",
		"root", root.Name(),
		"requirements", requirements,
		"dev", s.options.IncludeDev,
		"minimum_stability", s.options.Policy.MinimumStability,
		"mode", s.options.Policy.Mode,
	)

	solution, err := state.solve(ctx)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		state.debug("solving failed", "steps", state.steps, "elapsed", elapsed, "error_kind", outcome)
	} else {
		state.debug("solution found",
			"steps", state.steps,
			"elapsed", elapsed,
			"packages", solution.Len(),
			"attempts", state.partial.attempts,
		)
	}
	s.options.Metrics.observeSolve(outcome, state.steps, elapsed)
	endSolveSpan(span, state.steps, solution.Len(), err)
	return solution, err
}
