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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a solve did not produce a solution.
type ErrorKind int

const (
	// ErrorKindNone means the error did not come from the solver.
	ErrorKindNone ErrorKind = iota
	// ErrorKindConstraintParse is malformed constraint text.
	ErrorKindConstraintParse
	// ErrorKindNoVersionsSatisfy is a required package without a single
	// acceptable candidate.
	ErrorKindNoVersionsSatisfy
	// ErrorKindRootUnsatisfiable is a proof that the root requirements conflict.
	ErrorKindRootUnsatisfiable
	// ErrorKindTooComplex means the step budget ran out.
	ErrorKindTooComplex
	// ErrorKindCancelled means the context was cancelled.
	ErrorKindCancelled
	// ErrorKindProvider is a failure of the metadata source.
	ErrorKindProvider
)

// String returns the machine-readable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConstraintParse:
		return "ConstraintParseError"
	case ErrorKindNoVersionsSatisfy:
		return "NoVersionsSatisfy"
	case ErrorKindRootUnsatisfiable:
		return "RootUnsatisfiable"
	case ErrorKindTooComplex:
		return "ResolutionTooComplex"
	case ErrorKindCancelled:
		return "Cancelled"
	case ErrorKindProvider:
		return "ProviderError"
	default:
		return "Unknown"
	}
}

// Sentinel errors for errors.Is. Every typed error below matches exactly
// one of them.
var (
	ErrConstraintParse = errors.New("invalid constraint")
	ErrNoVersions      = errors.New("no versions satisfy the constraint")
	ErrUnsatisfiable   = errors.New("root requirements are unsatisfiable")
	ErrTooComplex      = errors.New("resolution too complex")
	ErrCancelled       = errors.New("resolution cancelled")
	ErrProvider        = errors.New("package source failed")
)

// KindOf classifies err. It returns ErrorKindNone for errors that did not
// come from the solver.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrConstraintParse):
		return ErrorKindConstraintParse
	case errors.Is(err, ErrNoVersions):
		return ErrorKindNoVersionsSatisfy
	case errors.Is(err, ErrUnsatisfiable):
		return ErrorKindRootUnsatisfiable
	case errors.Is(err, ErrTooComplex):
		return ErrorKindTooComplex
	case errors.Is(err, ErrCancelled):
		return ErrorKindCancelled
	case errors.Is(err, ErrProvider):
		return ErrorKindProvider
	default:
		return ErrorKindNone
	}
}

// ConstraintParseError reports malformed constraint text.
type ConstraintParseError struct {
	Constraint string
	Reason     string
}

// NewConstraintParseError creates a ConstraintParseError.
func NewConstraintParseError(constraint, reason string) *ConstraintParseError {
	return &ConstraintParseError{Constraint: constraint, Reason: reason}
}

// Error implements the error interface.
func (e *ConstraintParseError) Error() string {
	return fmt.Sprintf("invalid constraint %q: %s", e.Constraint, e.Reason)
}

// Is matches ErrConstraintParse.
func (e *ConstraintParseError) Is(target error) bool {
	return target == ErrConstraintParse
}

// NoSolutionError is returned when version solving fails with a proof.
//
// Kind is ErrorKindNoVersionsSatisfy when the proof only combines root
// requirements with a single package that has no acceptable candidate, and
// ErrorKindRootUnsatisfiable otherwise.
type NoSolutionError struct {
	Kind ErrorKind
	// Package is the package without candidates for ErrorKindNoVersionsSatisfy.
	Package Name
	// Incompatibility is the root cause of the failure
	Incompatibility *Incompatibility
	// Core is the smallest derived set of terms that cannot hold together.
	Core []Term
	// Reporter is used to format the error message (defaults to DefaultReporter)
	Reporter Reporter
}

// NewNoSolutionError creates a new NoSolutionError from the failing incompatibility.
func NewNoSolutionError(incomp *Incompatibility) *NoSolutionError {
	err := &NoSolutionError{
		Kind:            ErrorKindRootUnsatisfiable,
		Incompatibility: incomp,
		Reporter:        &DefaultReporter{},
	}
	if pkg, ok := singleMissingPackage(incomp); ok {
		err.Kind = ErrorKindNoVersionsSatisfy
		err.Package = pkg
	}
	err.Core = conflictCore(incomp)
	return err
}

// Error implements the error interface
func (e *NoSolutionError) Error() string {
	if e.Incompatibility == nil {
		return "no solution found"
	}
	reporter := e.Reporter
	if reporter == nil {
		reporter = &DefaultReporter{}
	}
	return reporter.Report(e.Incompatibility)
}

// Explanation returns the failure as an ordered list of statements.
func (e *NoSolutionError) Explanation() []string {
	var lines []string
	for _, line := range strings.Split(e.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// WithReporter returns a new error with a custom reporter
func (e *NoSolutionError) WithReporter(reporter Reporter) *NoSolutionError {
	clone := *e
	clone.Reporter = reporter
	return &clone
}

// Is matches ErrNoVersions or ErrUnsatisfiable according to Kind.
func (e *NoSolutionError) Is(target error) bool {
	switch e.Kind {
	case ErrorKindNoVersionsSatisfy:
		return target == ErrNoVersions
	default:
		return target == ErrUnsatisfiable
	}
}

// singleMissingPackage reports whether the derivation of inc only uses root
// requirements and exactly one "no versions" fact.
func singleMissingPackage(inc *Incompatibility) (Name, bool) {
	var missing []Name
	ok := true
	walkDerivation(inc, func(leaf *Incompatibility) {
		switch leaf.Kind {
		case KindRoot:
		case KindNoVersions:
			missing = append(missing, leaf.Terms[0].Name)
		case KindFromDependency:
			if !leaf.Package.IsRoot() {
				ok = false
			}
		default:
			ok = false
		}
	})
	if !ok || len(missing) != 1 {
		return Name{}, false
	}
	return missing[0], true
}

// walkDerivation visits every external incompatibility of the derivation
// of inc once, depth first.
func walkDerivation(inc *Incompatibility, visit func(*Incompatibility)) {
	seen := make(map[*Incompatibility]bool)
	var walk func(*Incompatibility)
	walk = func(cur *Incompatibility) {
		if cur == nil || seen[cur] {
			return
		}
		seen[cur] = true
		if !cur.IsDerived() {
			visit(cur)
			return
		}
		c1, c2 := cur.Causes()
		walk(c1)
		walk(c2)
	}
	walk(inc)
}

// conflictCore returns the terms of the most recent incompatibility in the
// derivation that no longer mentions the root package.
func conflictCore(inc *Incompatibility) []Term {
	queue := []*Incompatibility{inc}
	seen := make(map[*Incompatibility]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		if len(cur.Terms) > 0 && !mentionsRoot(cur) {
			return cur.Terms
		}
		c1, c2 := cur.Causes()
		queue = append(queue, c1, c2)
	}
	return inc.Terms
}

func mentionsRoot(inc *Incompatibility) bool {
	for _, t := range inc.Terms {
		if t.Name.IsRoot() {
			return true
		}
	}
	return false
}

// ErrIterationLimit is returned when the solver exceeds its step budget.
// Configure with WithMaxSteps(0) to disable the limit (not recommended for
// untrusted inputs).
//
// Example:
//
//	_, err := solver.Solve(ctx, requirements)
//	var limit ErrIterationLimit
//	if errors.As(err, &limit) {
//	    log.Printf("solver exceeded %d steps", limit.Steps)
//	}
type ErrIterationLimit struct {
	Steps int
}

// Error implements the error interface.
func (e ErrIterationLimit) Error() string {
	if e.Steps <= 0 {
		return "resolution too complex: solver exceeded iteration limit"
	}
	return fmt.Sprintf("resolution too complex: solver exceeded iteration limit after %d steps", e.Steps)
}

// Is matches ErrTooComplex.
func (e ErrIterationLimit) Is(target error) bool {
	return target == ErrTooComplex
}

// CancelledError is returned when the context ends a solve early.
type CancelledError struct {
	Steps int
	Err   error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("resolution cancelled after %d steps: %v", e.Steps, e.Err)
}

// Unwrap returns the context error.
func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Is matches ErrCancelled.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// SourceError wraps a failure of the metadata source for one package.
type SourceError struct {
	Package Name
	Err     error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to fetch metadata for %s: %v", e.Package, e.Err)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches ErrProvider.
func (e *SourceError) Is(target error) bool {
	return target == ErrProvider
}

// VersionError reports invalid release metadata for a package.
type VersionError struct {
	Package Name
	Message string
}

// Error implements the error interface
func (e *VersionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Package, e.Message)
	}
	return fmt.Sprintf("version error for package %s", e.Package)
}

// PackageNotFoundError indicates that a package is absent from the source.
type PackageNotFoundError struct {
	Package Name
}

// Error implements the error interface.
func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %s not found", e.Package)
}

var (
	_ error = (*ConstraintParseError)(nil)
	_ error = (*NoSolutionError)(nil)
	_ error = ErrIterationLimit{}
	_ error = (*CancelledError)(nil)
	_ error = (*SourceError)(nil)
	_ error = (*VersionError)(nil)
	_ error = (*PackageNotFoundError)(nil)
)
