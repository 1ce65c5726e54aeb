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

import "fmt"

// Term is a constraint on one package, either positive or negative.
// A positive term ("monolog/monolog ^2.0") asserts that the package is
// selected at a version inside the constraint. A negative term
// ("not monolog/monolog ^2.0") asserts that it is not, which includes the
// package not being selected at all.
type Term struct {
	Name       Name
	Constraint Constraint
	Positive   bool
}

// Relation is how one term stands against another, or against the partial
// solution.
type Relation int

const (
	// RelationSatisfied means every assignment allowed by the left side
	// satisfies the right side.
	RelationSatisfied Relation = iota
	// RelationContradicted means no assignment allowed by the left side
	// satisfies the right side.
	RelationContradicted
	// RelationInconclusive means some do and some do not.
	RelationInconclusive
)

func (r Relation) String() string {
	switch r {
	case RelationSatisfied:
		return "satisfied"
	case RelationContradicted:
		return "contradicted"
	default:
		return "inconclusive"
	}
}

// NewTerm creates a positive term.
func NewTerm(name Name, constraint Constraint) Term {
	return Term{Name: name, Constraint: constraint, Positive: true}
}

// NewNegativeTerm creates a negative term.
func NewNegativeTerm(name Name, constraint Constraint) Term {
	return Term{Name: name, Constraint: constraint, Positive: false}
}

// String returns a human-readable representation of the term.
func (t Term) String() string {
	if !t.Positive {
		return "not " + t.Negate().String()
	}
	if t.Name.IsRoot() || t.Constraint.IsAny() {
		return t.Name.String()
	}
	return fmt.Sprintf("%s %s", t.Name, t.Constraint)
}

// Negate returns the logical negation of the term.
func (t Term) Negate() Term {
	return Term{Name: t.Name, Constraint: t.Constraint, Positive: !t.Positive}
}

// SatisfiedBy reports whether selecting version satisfies the term.
// The zero Version means the package is not selected.
func (t Term) SatisfiedBy(version Version) bool {
	if version.IsZero() {
		return !t.Positive
	}
	return t.Constraint.Allows(version) == t.Positive
}

// Satisfies reports whether t implies other.
func (t Term) Satisfies(other Term) bool {
	return t.Name == other.Name && t.Relation(other) == RelationSatisfied
}

// Relation returns how t stands against other: satisfied when t implies
// other, contradicted when t and other cannot both hold.
func (t Term) Relation(other Term) Relation {
	mine, theirs := t.Constraint, other.Constraint
	switch {
	case t.Positive && other.Positive:
		if theirs.AllowsAll(mine) {
			return RelationSatisfied
		}
		if !mine.AllowsAny(theirs) {
			return RelationContradicted
		}
	case !t.Positive && other.Positive:
		// not ^1.0 can never imply a positive term: the package may be absent.
		if mine.AllowsAll(theirs) {
			return RelationContradicted
		}
	case t.Positive && !other.Positive:
		if !theirs.AllowsAny(mine) {
			return RelationSatisfied
		}
		if theirs.AllowsAll(mine) {
			return RelationContradicted
		}
	default:
		if mine.AllowsAll(theirs) {
			return RelationSatisfied
		}
	}
	return RelationInconclusive
}

// Intersect returns the term that holds exactly when both t and other hold.
// The boolean is false when no assignment satisfies both.
func (t Term) Intersect(other Term) (Term, bool) {
	switch {
	case t.Positive != other.Positive:
		positive, negative := t, other
		if !t.Positive {
			positive, negative = other, t
		}
		return nonEmptyTerm(t.Name, positive.Constraint.Difference(negative.Constraint), true)
	case t.Positive:
		return nonEmptyTerm(t.Name, t.Constraint.Intersect(other.Constraint), true)
	default:
		return nonEmptyTerm(t.Name, t.Constraint.Union(other.Constraint), false)
	}
}

// Difference returns the term that holds when t holds and other does not.
func (t Term) Difference(other Term) (Term, bool) {
	return t.Intersect(other.Negate())
}

func nonEmptyTerm(name Name, c Constraint, positive bool) (Term, bool) {
	if positive && c.IsEmpty() {
		return Term{}, false
	}
	return Term{Name: name, Constraint: c, Positive: positive}, true
}
