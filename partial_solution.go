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

// partialSolution is the ordered decision/derivation log of one solve.
//
// For every package it also keeps the accumulated term: the intersection of
// every assignment about the package, read in log order. The accumulated
// term is positive once anything requires the package, and negative while
// only exclusions are known.
type partialSolution struct {
	assignments []*assignment
	decisions   map[Name]Version
	positive    map[Name]Term
	negative    map[Name]Term

	// attempts counts how many distinct solutions were tried; it grows
	// every time a decision follows a backtrack.
	attempts     int
	backtracking bool
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		decisions: make(map[Name]Version),
		positive:  make(map[Name]Term),
		negative:  make(map[Name]Term),
		attempts:  1,
	}
}

// decisionLevel is the number of decisions made so far.
func (ps *partialSolution) decisionLevel() int {
	return len(ps.decisions)
}

// addDecision selects version for name and opens a new decision level.
func (ps *partialSolution) addDecision(name Name, version Version) error {
	err := ps.assign(&assignment{
		term:          NewTerm(name, ExactConstraint(version)),
		kind:          assignmentDecision,
		version:       version,
		decisionLevel: ps.decisionLevel() + 1,
		index:         len(ps.assignments),
	})
	if err != nil {
		return err
	}
	if ps.backtracking {
		ps.attempts++
	}
	ps.backtracking = false
	ps.decisions[name] = version
	return nil
}

// addDerivation records term as forced by the incompatibility cause at the
// current decision level.
func (ps *partialSolution) addDerivation(term Term, cause IncompatibilityID) error {
	return ps.assign(&assignment{
		term:          term,
		kind:          assignmentDerivation,
		cause:         cause,
		decisionLevel: ps.decisionLevel(),
		index:         len(ps.assignments),
	})
}

// assign appends a to the log. An assignment that leaves its package with
// no allowed version is rejected and the log is left unchanged.
func (ps *partialSolution) assign(a *assignment) error {
	if err := ps.register(a); err != nil {
		return err
	}
	ps.assignments = append(ps.assignments, a)
	return nil
}

// register folds a into the accumulated term of its package.
func (ps *partialSolution) register(a *assignment) error {
	name := a.name()
	if old, ok := ps.positive[name]; ok {
		joined, ok := old.Intersect(a.term)
		if !ok {
			return fmt.Errorf("assignment %s contradicts accumulated term %s", a.term, old)
		}
		ps.positive[name] = joined
		return nil
	}

	term := a.term
	if old, ok := ps.negative[name]; ok {
		joined, ok := a.term.Intersect(old)
		if !ok {
			return fmt.Errorf("assignment %s contradicts accumulated term %s", a.term, old)
		}
		term = joined
	}
	if term.Positive {
		delete(ps.negative, name)
		ps.positive[name] = term
	} else {
		ps.negative[name] = term
	}
	return nil
}

// backtrack removes every assignment made above level.
func (ps *partialSolution) backtrack(level int) error {
	ps.backtracking = true

	touched := make(map[Name]bool)
	for len(ps.assignments) > 0 {
		last := ps.assignments[len(ps.assignments)-1]
		if last.decisionLevel <= level {
			break
		}
		ps.assignments = ps.assignments[:len(ps.assignments)-1]
		touched[last.name()] = true
		if last.isDecision() {
			delete(ps.decisions, last.name())
		}
	}

	for name := range touched {
		delete(ps.positive, name)
		delete(ps.negative, name)
	}
	for _, a := range ps.assignments {
		if touched[a.name()] {
			if err := ps.register(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// accumulated returns the current accumulated term for name.
func (ps *partialSolution) accumulated(name Name) (Term, bool) {
	if t, ok := ps.positive[name]; ok {
		return t, true
	}
	t, ok := ps.negative[name]
	return t, ok
}

// relation reports whether the assignments made so far satisfy or
// contradict term.
func (ps *partialSolution) relation(term Term) Relation {
	acc, ok := ps.accumulated(term.Name)
	if !ok {
		return RelationInconclusive
	}
	return acc.Relation(term)
}

// satisfies reports whether the assignments made so far imply term.
func (ps *partialSolution) satisfies(term Term) bool {
	return ps.relation(term) == RelationSatisfied
}

// satisfier returns the earliest assignment after which the log implies term.
func (ps *partialSolution) satisfier(term Term) (*assignment, error) {
	var acc Term
	have := false
	for _, a := range ps.assignments {
		if a.name() != term.Name {
			continue
		}
		if !have {
			acc, have = a.term, true
		} else if joined, ok := acc.Intersect(a.term); ok {
			acc = joined
		}
		if acc.Satisfies(term) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("term %s is not satisfied by the partial solution", term)
}

// decision returns the version decided for name.
func (ps *partialSolution) decision(name Name) (Version, bool) {
	v, ok := ps.decisions[name]
	return v, ok
}

// undecided returns, in the order given, the names that must be selected
// but have no decision yet.
func (ps *partialSolution) undecided(order []Name) []Term {
	var out []Term
	for _, name := range order {
		t, ok := ps.positive[name]
		if !ok {
			continue
		}
		if _, decided := ps.decisions[name]; decided {
			continue
		}
		out = append(out, t)
	}
	return out
}
