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
	"fmt"
	"iter"
	"strings"
)

// IncompatibilityKind records why an incompatibility exists.
type IncompatibilityKind int

const (
	// KindRoot is the single {not root} incompatibility that seeds the search.
	KindRoot IncompatibilityKind = iota
	// KindNoVersions means no candidate version satisfies the term.
	KindNoVersions
	// KindFromDependency comes from a release's requirement.
	KindFromDependency
	// KindFromConflict comes from a release's conflict declaration.
	KindFromConflict
	// KindFromReplace keeps a replacing release and the package it replaces apart.
	KindFromReplace
	// KindConflict is derived by conflict resolution from two other incompatibilities.
	KindConflict
)

// IncompatibilityID addresses an incompatibility inside its store.
// IDs start at 1 and grow monotonically in creation order.
type IncompatibilityID int

// Incompatibility is a set of terms that must not all hold at once.
type Incompatibility struct {
	ID    IncompatibilityID
	Terms []Term
	Kind  IncompatibilityKind

	// Package and Version name the release whose metadata produced a
	// dependency, conflict or replace incompatibility.
	Package Name
	Version Version

	// Cause1 and Cause2 are set for derived incompatibilities (Kind == KindConflict).
	Cause1 IncompatibilityID
	Cause2 IncompatibilityID

	// Reason qualifies a KindNoVersions incompatibility.
	Reason string

	store *IncompatibilityStore
}

// newIncompatibility builds an incompatibility, merging terms that refer to
// the same package. Positive root terms are dropped from derived
// incompatibilities with more than one term: the root is always selected.
func newIncompatibility(terms []Term, kind IncompatibilityKind) *Incompatibility {
	if kind == KindConflict && len(terms) != 1 {
		kept := terms[:0:0]
		for _, t := range terms {
			if !(t.Positive && t.Name.IsRoot()) {
				kept = append(kept, t)
			}
		}
		terms = kept
	}
	return &Incompatibility{Terms: mergeTerms(terms), Kind: kind}
}

// mergeTerms intersects terms that refer to the same package, keeping the
// order in which packages first appear. Terms whose intersection is empty
// are kept apart; such an incompatibility can never be violated.
func mergeTerms(terms []Term) []Term {
	if len(terms) <= 1 || (len(terms) == 2 && terms[0].Name != terms[1].Name) {
		return terms
	}
	merged := make([]Term, 0, len(terms))
	for _, term := range terms {
		found := false
		for i := range merged {
			if merged[i].Name != term.Name {
				continue
			}
			if joined, ok := merged[i].Intersect(term); ok {
				merged[i] = joined
				found = true
			}
			break
		}
		if !found {
			merged = append(merged, term)
		}
	}
	return merged
}

// NewNoVersionsIncompatibility records that no candidate satisfies term.
func NewNoVersionsIncompatibility(term Term, reason string) *Incompatibility {
	inc := newIncompatibility([]Term{term}, KindNoVersions)
	inc.Reason = reason
	return inc
}

// NewDependencyIncompatibility records that pkg at version requires dependency.
// Alternatives are packages that satisfy the requirement in its place
// because they replace or provide it.
//
// Per PubGrub: "foo 1.0.0 depends on bar ^2.0.0" is {foo 1.0.0, not bar ^2.0.0}.
func NewDependencyIncompatibility(pkg Name, version Version, dependency Term, alternatives ...Term) *Incompatibility {
	terms := make([]Term, 0, 2+len(alternatives))
	terms = append(terms, NewTerm(pkg, ExactConstraint(version)), dependency.Negate())
	for _, alt := range alternatives {
		terms = append(terms, alt.Negate())
	}
	inc := newIncompatibility(terms, KindFromDependency)
	inc.Package, inc.Version = pkg, version
	return inc
}

// NewConflictIncompatibility records that pkg at version cannot be installed
// together with conflicting.
func NewConflictIncompatibility(pkg Name, version Version, conflicting Term) *Incompatibility {
	inc := newIncompatibility([]Term{NewTerm(pkg, ExactConstraint(version)), conflicting}, KindFromConflict)
	inc.Package, inc.Version = pkg, version
	return inc
}

// NewReplaceIncompatibility records that pkg at version replaces target and
// so cannot be installed next to it.
func NewReplaceIncompatibility(pkg Name, version Version, target Name) *Incompatibility {
	inc := newIncompatibility([]Term{NewTerm(pkg, ExactConstraint(version)), NewTerm(target, everyVersion())}, KindFromReplace)
	inc.Package, inc.Version = pkg, version
	return inc
}

// newDerivedIncompatibility records the resolvent of conflict and cause.
// Both must already belong to a store.
func newDerivedIncompatibility(terms []Term, conflict, cause *Incompatibility) *Incompatibility {
	inc := newIncompatibility(terms, KindConflict)
	inc.Cause1, inc.Cause2 = conflict.ID, cause.ID
	return inc
}

// IsFailure reports whether the incompatibility proves that the root
// requirements cannot be met.
func (inc *Incompatibility) IsFailure() bool {
	return len(inc.Terms) == 0 || (len(inc.Terms) == 1 && inc.Terms[0].Positive && inc.Terms[0].Name.IsRoot())
}

// IsDerived reports whether the incompatibility came from conflict resolution.
func (inc *Incompatibility) IsDerived() bool {
	return inc != nil && inc.Kind == KindConflict
}

// Causes returns the two incompatibilities a derived incompatibility was
// resolved from, or nil for external ones.
func (inc *Incompatibility) Causes() (*Incompatibility, *Incompatibility) {
	if inc.Kind != KindConflict || inc.store == nil {
		return nil, nil
	}
	return inc.store.Get(inc.Cause1), inc.store.Get(inc.Cause2)
}

// termFor returns the term about name.
func (inc *Incompatibility) termFor(name Name) (Term, bool) {
	for _, t := range inc.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// String renders the incompatibility as a sentence fragment.
func (inc *Incompatibility) String() string {
	switch inc.Kind {
	case KindFromDependency:
		if len(inc.Terms) >= 2 && inc.Terms[0].Positive {
			deps := make([]string, 0, len(inc.Terms)-1)
			for _, t := range inc.Terms[1:] {
				deps = append(deps, terse(t.Negate(), false))
			}
			return fmt.Sprintf("%s depends on %s", terse(inc.Terms[0], true), strings.Join(deps, " or "))
		}
	case KindFromConflict:
		if len(inc.Terms) == 2 {
			return fmt.Sprintf("%s conflicts with %s", terse(inc.Terms[0], true), terse(inc.Terms[1], false))
		}
	case KindFromReplace:
		if len(inc.Terms) == 2 {
			return fmt.Sprintf("%s replaces %s", terse(inc.Terms[0], true), inc.Terms[1].Name)
		}
	case KindNoVersions:
		if len(inc.Terms) == 1 {
			msg := fmt.Sprintf("no versions of %s match %s", inc.Terms[0].Name, inc.Terms[0].Constraint)
			if inc.Reason != "" {
				msg += " (" + inc.Reason + ")"
			}
			return msg
		}
	}

	if inc.IsFailure() {
		return "version solving failed"
	}

	if len(inc.Terms) == 1 {
		term := inc.Terms[0]
		verdict := "forbidden"
		if !term.Positive {
			verdict = "required"
			term = term.Negate()
		}
		return fmt.Sprintf("%s is %s", terse(term, false), verdict)
	}

	if len(inc.Terms) == 2 && inc.Terms[0].Positive == inc.Terms[1].Positive {
		if inc.Terms[0].Positive {
			return fmt.Sprintf("%s is incompatible with %s", terse(inc.Terms[0], false), terse(inc.Terms[1], false))
		}
		return fmt.Sprintf("either %s or %s", terse(inc.Terms[0].Negate(), false), terse(inc.Terms[1].Negate(), false))
	}

	var positive, negative []string
	var single Term
	for _, t := range inc.Terms {
		if t.Positive {
			positive = append(positive, terse(t, false))
			single = t
		} else {
			negative = append(negative, terse(t.Negate(), false))
		}
	}
	switch {
	case len(positive) == 1 && len(negative) > 0:
		return fmt.Sprintf("%s requires %s", terse(single, true), strings.Join(negative, " or "))
	case len(positive) > 0 && len(negative) > 0:
		return fmt.Sprintf("if %s then %s", strings.Join(positive, " and "), strings.Join(negative, " or "))
	case len(positive) > 0:
		return fmt.Sprintf("one of %s must be false", strings.Join(positive, " or "))
	default:
		return fmt.Sprintf("one of %s must be true", strings.Join(negative, " or "))
	}
}

// terse renders a positive term. With allowEvery, a term that admits any
// version reads "every version of x".
func terse(t Term, allowEvery bool) string {
	switch {
	case t.Name.IsRoot():
		return t.Name.String()
	case t.Constraint.IsAny() && allowEvery:
		return "every version of " + t.Name.String()
	case t.Constraint.IsAny():
		return t.Name.String()
	}
	return fmt.Sprintf("%s %s", t.Name, t.Constraint)
}

// IncompatibilityStore is the append-only arena of incompatibilities
// created during one solve.
type IncompatibilityStore struct {
	items     []*Incompatibility
	active    []IncompatibilityID
	byPackage map[Name][]IncompatibilityID
}

func newIncompatibilityStore() *IncompatibilityStore {
	return &IncompatibilityStore{byPackage: make(map[Name][]IncompatibilityID)}
}

// Add records inc and indexes it for propagation.
func (s *IncompatibilityStore) Add(inc *Incompatibility) IncompatibilityID {
	id := s.record(inc)
	s.active = append(s.active, id)
	for _, t := range inc.Terms {
		s.byPackage[t.Name] = append(s.byPackage[t.Name], id)
	}
	return id
}

// record assigns inc an ID without making it visible to propagation.
// Intermediate results of conflict resolution are recorded this way so that
// explanations can still reach them.
func (s *IncompatibilityStore) record(inc *Incompatibility) IncompatibilityID {
	if inc.ID != 0 && inc.store == s {
		return inc.ID
	}
	s.items = append(s.items, inc)
	inc.ID = IncompatibilityID(len(s.items))
	inc.store = s
	return inc.ID
}

// Get returns the incompatibility with the given ID, or nil.
func (s *IncompatibilityStore) Get(id IncompatibilityID) *Incompatibility {
	if id <= 0 || int(id) > len(s.items) {
		return nil
	}
	return s.items[id-1]
}

// Len returns how many incompatibilities have been recorded.
func (s *IncompatibilityStore) Len() int {
	return len(s.items)
}

// ForPackage returns the IDs of the indexed incompatibilities mentioning name,
// in insertion order.
func (s *IncompatibilityStore) ForPackage(name Name) []IncompatibilityID {
	return s.byPackage[name]
}

// All iterates over every recorded incompatibility in ID order.
func (s *IncompatibilityStore) All() iter.Seq[*Incompatibility] {
	return func(yield func(*Incompatibility) bool) {
		for _, inc := range s.items {
			if !yield(inc) {
				return
			}
		}
	}
}

// Active iterates over the incompatibilities visible to propagation, in the
// order they were added.
func (s *IncompatibilityStore) Active() iter.Seq[*Incompatibility] {
	return func(yield func(*Incompatibility) bool) {
		for _, id := range s.active {
			if !yield(s.Get(id)) {
				return
			}
		}
	}
}
