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

// assignmentKind distinguishes between decision and derivation assignments.
// Decision assignments are explicit choices made by the solver (version selections).
// Derivation assignments are terms forced by an incompatibility via unit propagation.
type assignmentKind int

const (
	assignmentDecision   assignmentKind = iota // Explicit version selection
	assignmentDerivation                       // Term derived from propagation
)

// assignment is one entry of the partial solution log.
// Derivations refer to the incompatibility that forced them by ID only.
type assignment struct {
	term          Term              // Decisions carry the exact positive term
	kind          assignmentKind    // Decision or derivation
	version       Version           // Selected version (decisions)
	cause         IncompatibilityID // Forcing incompatibility (derivations)
	decisionLevel int               // Decision level for backtracking
	index         int               // Position in the log, for satisfier ordering
}

// isDecision returns true if this assignment is an explicit version selection
// rather than a derived constraint.
func (a *assignment) isDecision() bool {
	return a.kind == assignmentDecision
}

func (a *assignment) name() Name {
	return a.term.Name
}
