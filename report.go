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
	"strings"
)

// Reporter is an interface for formatting incompatibilities into error messages
type Reporter interface {
	// Report generates a human-readable error message from an incompatibility
	Report(incomp *Incompatibility) string
}

// Explain renders the derivation of a failing incompatibility as an ordered
// list of statements using the DefaultReporter.
func Explain(incomp *Incompatibility) []string {
	err := &NoSolutionError{Incompatibility: incomp, Reporter: &DefaultReporter{}}
	return err.Explanation()
}

// DefaultReporter explains a failure as a numbered narrative.
//
// Each derived incompatibility becomes one sentence built from its two
// causes ("Because A and B, C."). Derivations referenced more than once, or
// far away from where they are used, are numbered so later sentences can
// point back at them. Output is deterministic for a given derivation.
type DefaultReporter struct{}

// Report implements Reporter
func (r *DefaultReporter) Report(incomp *Incompatibility) string {
	if incomp == nil {
		return "no solution found"
	}

	w := &reportWriter{
		root:        incomp,
		derivations: make(map[*Incompatibility]int),
		lineNumbers: make(map[*Incompatibility]int),
	}
	w.countDerivations(incomp)
	if incomp.IsDerived() {
		w.visit(incomp, false)
	} else {
		w.write(incomp, fmt.Sprintf("Because %s, version solving failed.", incomp), false)
	}
	return w.String()
}

type reportLine struct {
	message string
	number  int
}

// reportWriter holds the state of one DefaultReporter run.
type reportWriter struct {
	root        *Incompatibility
	derivations map[*Incompatibility]int
	lines       []reportLine
	lineNumbers map[*Incompatibility]int
	numbered    int
}

// countDerivations records how often each incompatibility is used as a cause.
func (w *reportWriter) countDerivations(incomp *Incompatibility) {
	if _, ok := w.derivations[incomp]; ok {
		w.derivations[incomp]++
		return
	}
	w.derivations[incomp] = 1
	if c1, c2 := incomp.Causes(); c1 != nil && c2 != nil {
		w.countDerivations(c1)
		w.countDerivations(c2)
	}
}

func (w *reportWriter) write(incomp *Incompatibility, message string, numbered bool) {
	if !numbered {
		w.lines = append(w.lines, reportLine{message: message})
		return
	}
	w.numbered++
	w.lineNumbers[incomp] = w.numbered
	w.lines = append(w.lines, reportLine{message: message, number: w.numbered})
}

func (w *reportWriter) String() string {
	padding := 0
	if w.numbered > 0 {
		padding = len(fmt.Sprintf("(%d) ", w.numbered))
	}

	var b strings.Builder
	lastWasEmpty := false
	for _, line := range w.lines {
		if line.message == "" {
			if lastWasEmpty {
				continue
			}
			lastWasEmpty = true
			b.WriteString("\n")
			continue
		}
		lastWasEmpty = false
		if line.number > 0 {
			b.WriteString(fmt.Sprintf("%-*s", padding, fmt.Sprintf("(%d)", line.number)))
		} else {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteString(line.message)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// visit writes the sentences explaining a derived incompatibility.
func (w *reportWriter) visit(incomp *Incompatibility, conclusion bool) {
	numbered := conclusion || w.derivations[incomp] > 1
	conjunction := "And"
	if conclusion || incomp == w.root {
		conjunction = "So,"
	}
	text := incomp.String()

	conflict, other := incomp.Causes()
	switch {
	case conflict == nil || other == nil:
		w.write(incomp, fmt.Sprintf("Because %s.", text), numbered)

	case conflict.IsDerived() && other.IsDerived():
		conflictLine, conflictNumbered := w.lineNumbers[conflict]
		otherLine, otherNumbered := w.lineNumbers[other]
		switch {
		case conflictNumbered && otherNumbered:
			w.write(incomp, fmt.Sprintf("Because %s, %s.", andString(conflict, other, conflictLine, otherLine), text), numbered)
		case conflictNumbered || otherNumbered:
			withLine, withoutLine, line := conflict, other, conflictLine
			if !conflictNumbered {
				withLine, withoutLine, line = other, conflict, otherLine
			}
			w.visit(withoutLine, false)
			w.write(incomp, fmt.Sprintf("%s because %s (%d), %s.", conjunction, withLine, line, text), numbered)
		default:
			singleConflict := isSingleLine(conflict)
			singleOther := isSingleLine(other)
			if singleConflict || singleOther {
				first, second := other, conflict
				if singleOther {
					first, second = conflict, other
				}
				w.visit(first, false)
				w.visit(second, false)
				w.write(incomp, fmt.Sprintf("Thus, %s.", text), numbered)
			} else {
				w.visit(conflict, true)
				w.lines = append(w.lines, reportLine{})
				w.visit(other, false)
				w.write(incomp, fmt.Sprintf("%s because %s (%d), %s.", conjunction, conflict, w.lineNumbers[conflict], text), numbered)
			}
		}

	case conflict.IsDerived() || other.IsDerived():
		derived, external := conflict, other
		if !conflict.IsDerived() {
			derived, external = other, conflict
		}
		if line, ok := w.lineNumbers[derived]; ok {
			w.write(incomp, fmt.Sprintf("Because %s, %s.", andString(external, derived, 0, line), text), numbered)
		} else if w.isCollapsible(derived) {
			inner1, inner2 := derived.Causes()
			collapsedDerived, collapsedExternal := inner1, inner2
			if !inner1.IsDerived() {
				collapsedDerived, collapsedExternal = inner2, inner1
			}
			w.visit(collapsedDerived, false)
			w.write(incomp, fmt.Sprintf("%s because %s, %s.", conjunction, andString(collapsedExternal, external, 0, 0), text), numbered)
		} else {
			w.visit(derived, false)
			w.write(incomp, fmt.Sprintf("%s because %s, %s.", conjunction, external, text), numbered)
		}

	default:
		w.write(incomp, fmt.Sprintf("Because %s, %s.", andString(conflict, other, 0, 0), text), numbered)
	}
}

// isCollapsible reports whether a derivation with one derived and one
// external cause can be folded into the sentence that uses it.
func (w *reportWriter) isCollapsible(incomp *Incompatibility) bool {
	if w.derivations[incomp] > 1 {
		return false
	}
	c1, c2 := incomp.Causes()
	if c1.IsDerived() == c2.IsDerived() {
		return false
	}
	inner := c1
	if !c1.IsDerived() {
		inner = c2
	}
	_, numbered := w.lineNumbers[inner]
	return !numbered
}

// isSingleLine reports whether both causes of incomp are external.
func isSingleLine(incomp *Incompatibility) bool {
	c1, c2 := incomp.Causes()
	return !c1.IsDerived() && !c2.IsDerived()
}

// andString joins two incompatibilities into one clause. Two requirements
// of the same release read "X depends on both A and B". Non-zero line
// numbers are appended as references.
func andString(a, b *Incompatibility, aLine, bLine int) string {
	if s, ok := requiresBoth(a, b); ok && aLine == 0 && bLine == 0 {
		return s
	}
	return withLine(a.String(), aLine) + " and " + withLine(b.String(), bLine)
}

func withLine(s string, line int) string {
	if line == 0 {
		return s
	}
	return fmt.Sprintf("%s (%d)", s, line)
}

// requiresBoth phrases two single requirements of the same release.
func requiresBoth(a, b *Incompatibility) (string, bool) {
	if a.Kind != KindFromDependency || b.Kind != KindFromDependency ||
		len(a.Terms) != 2 || len(b.Terms) != 2 ||
		a.Package != b.Package || !a.Version.Equal(b.Version) {
		return "", false
	}
	return fmt.Sprintf("%s depends on both %s and %s",
		terse(a.Terms[0], true),
		terse(a.Terms[1].Negate(), false),
		terse(b.Terms[1].Negate(), false),
	), true
}

// CollapsedReporter produces a more compact error format: one line per
// external fact in derivation order, each joined with "And because", ending
// with the conclusion.
type CollapsedReporter struct{}

// Report implements Reporter with a collapsed format
func (r *CollapsedReporter) Report(incomp *Incompatibility) string {
	if incomp == nil {
		return "no solution found"
	}

	var lines []string
	r.collectLines(incomp, &lines, make(map[*Incompatibility]bool))

	if len(lines) == 0 {
		return "version solving failed"
	}

	// Join with "And because" for readability
	var b strings.Builder
	b.WriteString("Because " + lines[0])
	for i := 1; i < len(lines); i++ {
		b.WriteString("\nAnd because " + lines[i])
	}
	b.WriteString("\nSo, " + incomp.String() + ".")
	return b.String()
}

func (r *CollapsedReporter) collectLines(incomp *Incompatibility, lines *[]string, visited map[*Incompatibility]bool) {
	if visited[incomp] {
		return
	}
	visited[incomp] = true

	if c1, c2 := incomp.Causes(); c1 != nil && c2 != nil {
		r.collectLines(c1, lines, visited)
		r.collectLines(c2, lines, visited)
		return
	}
	*lines = append(*lines, incomp.String())
}
