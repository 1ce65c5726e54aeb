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

// Package pubgrub resolves Composer-style package requirements with the
// PubGrub algorithm.
//
// Given the requirements of a project and a Source of package metadata, a
// Solver selects exactly one version of every package that is needed, or
// proves that no such selection exists and explains why:
//
//	source, _ := pubgrub.LoadRepositoryFile("packages.yaml")
//	root := pubgrub.NewRootSource("acme/app")
//	_ = root.Require("monolog/monolog", "^2.0")
//
//	solution, err := pubgrub.NewSolver(source).Solve(ctx, root)
//	var noSolution *pubgrub.NoSolutionError
//	if errors.As(err, &noSolution) {
//	    fmt.Println(noSolution) // "Because ..., version solving failed."
//	}
//
// Constraints follow Composer's syntax: comparison operators, caret and
// tilde ranges, wildcards, hyphen ranges, "||" alternatives, dev-<branch>
// versions and @stability flags. Each parses to an exact VersionSet, so
// intersections, unions and complements never lose precision.
//
// Releases may replace or provide other packages. A requirement is then
// met either by the package itself or by any selected release standing in
// for it; the Solution reports such substitutions in Replaced.
//
// A Policy shapes candidate selection: the minimum stability, per-package
// stability flags, highest/lowest/stable preference, locked versions,
// excluded packages and the platform (php, ext-*, lib-*) versions to check
// requirements against.
//
// Solving is single-threaded and deterministic for a given input. Metadata
// fetches may run concurrently through CachedSource, which deduplicates and
// prefetches lookups without affecting the result.
package pubgrub
