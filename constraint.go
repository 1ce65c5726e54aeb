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
	"regexp"
	"strconv"
	"strings"
)

// Constraint is a parsed version constraint: an exact VersionSet plus the
// text it was written as and an optional @stability flag.
type Constraint struct {
	set  VersionSet
	text string

	stability    Stability
	hasStability bool

	implied    Stability
	hasImplied bool
}

// NewConstraint wraps a VersionSet. The text is the set's canonical form.
func NewConstraint(set VersionSet) Constraint {
	return Constraint{set: set}
}

// AnyConstraint matches every numeric version ("*").
func AnyConstraint() Constraint {
	return Constraint{set: AnyNumeric(), text: "*"}
}

// everyVersion matches every numeric version and every branch.
func everyVersion() Constraint {
	return Constraint{set: FullSet(), text: "*"}
}

// ExactConstraint matches only v.
func ExactConstraint(v Version) Constraint {
	return Constraint{
		set:        ExactSet(v),
		text:       v.String(),
		implied:    v.Stability(),
		hasImplied: v.Stability() < StabilityStable,
	}
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseConstraint parses a constraint expression.
//
// Supported syntax:
//   - Comparison operators: >=, >, <=, <, =, ==, !=, <>
//   - AND with a comma or whitespace: ">=1.0 <2.0", ">=1.0, <2.0"
//   - OR with | or ||: "^1.0 || ^2.0"
//   - Caret and tilde ranges: "^1.2.3", "~1.2"
//   - Wildcards: "*", "1.*", "1.2.x"
//   - Hyphen ranges: "1.0 - 2.0"
//   - Dev branches: "dev-main"
//   - Stability flags: "^1.0@beta", "@dev"
//
// An empty expression is an error. Expressions that no version can satisfy,
// such as ">2.0 <1.0", parse to the empty constraint.
func ParseConstraint(s string) (Constraint, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Constraint{}, NewConstraintParseError(s, "empty constraint")
	}

	p := constraintParser{input: s, implied: StabilityStable}
	set := EmptySet()
	for _, orPart := range strings.Split(strings.ReplaceAll(text, "||", "|"), "|") {
		orPart = strings.TrimSpace(orPart)
		if orPart == "" {
			continue
		}
		branch, err := p.parseConjunction(orPart)
		if err != nil {
			return Constraint{}, err
		}
		set = set.Union(branch)
	}

	return Constraint{
		set:          set,
		text:         text,
		stability:    p.flag,
		hasStability: p.hasFlag,
		implied:      p.implied,
		hasImplied:   p.implied < StabilityStable,
	}, nil
}

type constraintParser struct {
	input   string
	flag    Stability
	hasFlag bool
	implied Stability
}

var (
	hyphenRangePattern = regexp.MustCompile(`^(\S+)\s+-\s+(\S+)$`)
	wildcardPattern    = regexp.MustCompile(`^[vV]?(\d+)(?:\.(\d+))?(?:\.(\d+))?\.[xX*]$`)
)

// operatorTokens are the operators that may be separated from their version by spaces.
var operatorTokens = map[string]bool{
	">=": true, "<=": true, ">": true, "<": true, "=": true, "==": true,
	"!=": true, "<>": true, "^": true, "~": true,
}

func (p *constraintParser) fail(reason string, args ...any) error {
	return NewConstraintParseError(p.input, fmt.Sprintf(reason, args...))
}

// parseConjunction parses one OR branch.
func (p *constraintParser) parseConjunction(expr string) (VersionSet, error) {
	if m := hyphenRangePattern.FindStringSubmatch(expr); m != nil {
		return p.parseHyphenRange(m[1], m[2])
	}

	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var tokens []string
	for i := 0; i < len(fields); i++ {
		token := fields[i]
		if operatorTokens[token] {
			if i+1 >= len(fields) {
				return VersionSet{}, p.fail("operator %q without a version", token)
			}
			i++
			token += fields[i]
		}
		tokens = append(tokens, token)
	}

	set := FullSet()
	for _, token := range tokens {
		part, err := p.parseToken(token)
		if err != nil {
			return VersionSet{}, err
		}
		set = set.Intersection(part)
	}
	return set, nil
}

// parseToken parses a single AND term.
func (p *constraintParser) parseToken(token string) (VersionSet, error) {
	if at := strings.LastIndexByte(token, '@'); at >= 0 {
		stability, ok := ParseStability(token[at+1:])
		if !ok {
			return VersionSet{}, p.fail("unknown stability flag %q", token[at+1:])
		}
		if !p.hasFlag || stability < p.flag {
			p.flag = stability
		}
		p.hasFlag = true
		token = token[:at]
		if token == "" {
			return AnyNumeric(), nil
		}
	}

	switch token {
	case "*", "x", "X":
		return AnyNumeric(), nil
	}

	if m := wildcardPattern.FindStringSubmatch(token); m != nil {
		return p.parseWildcard(m[1:])
	}

	switch {
	case strings.HasPrefix(token, "^"):
		return p.parseCaret(token[1:])
	case strings.HasPrefix(token, "~"):
		return p.parseTilde(token[1:])
	}

	op, rest := splitOperator(token)
	v, err := p.version(rest)
	if err != nil {
		return VersionSet{}, err
	}

	if v.IsBranch() {
		switch op {
		case "", "=", "==":
			return ExactSet(v), nil
		case "!=", "<>":
			return FullSet().Difference(ExactSet(v)), nil
		default:
			return VersionSet{}, p.fail("operator %q cannot apply to branch %s", op, v)
		}
	}

	switch op {
	case ">=":
		return rangeSet(finiteBound(v.floor(), true), positiveInfinityBound()), nil
	case ">":
		return rangeSet(finiteBound(v, false), positiveInfinityBound()), nil
	case "<":
		return rangeSet(negativeInfinityBound(), finiteBound(v.floor(), false)), nil
	case "<=":
		return rangeSet(negativeInfinityBound(), finiteBound(v, true)), nil
	case "!=", "<>":
		return AnyNumeric().Difference(ExactSet(v)), nil
	default:
		return ExactSet(v), nil
	}
}

// splitOperator separates a leading comparison operator from its operand.
func splitOperator(token string) (string, string) {
	for _, op := range []string{">=", "<=", "==", "!=", "<>", ">", "<", "="} {
		if rest, ok := strings.CutPrefix(token, op); ok {
			return op, rest
		}
	}
	return "", token
}

// version parses an operand and records any stability it implies.
func (p *constraintParser) version(raw string) (Version, error) {
	if raw == "" {
		return Version{}, p.fail("missing version")
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return Version{}, p.fail("%v", err)
	}
	if s := v.Stability(); s < p.implied {
		p.implied = s
	}
	return v, nil
}

// parseCaret expands ^v: the leftmost non-zero explicit component stays
// fixed. When every explicit component is zero the last one is bumped.
func (p *constraintParser) parseCaret(raw string) (VersionSet, error) {
	v, err := p.version(raw)
	if err != nil {
		return VersionSet{}, err
	}
	if v.IsBranch() {
		return VersionSet{}, p.fail("caret cannot apply to branch %s", v)
	}
	index := v.precision - 1
	for i := 0; i < v.precision; i++ {
		if v.parts[i] != 0 {
			index = i
			break
		}
	}
	return rangeSet(finiteBound(v.floor(), true), finiteBound(v.bump(index).floor(), false)), nil
}

// parseTilde expands ~v: every explicit component but the last stays fixed,
// with ~1 behaving like ~1.0.
func (p *constraintParser) parseTilde(raw string) (VersionSet, error) {
	v, err := p.version(raw)
	if err != nil {
		return VersionSet{}, err
	}
	if v.IsBranch() {
		return VersionSet{}, p.fail("tilde cannot apply to branch %s", v)
	}
	index := max(v.precision-2, 0)
	return rangeSet(finiteBound(v.floor(), true), finiteBound(v.bump(index).floor(), false)), nil
}

// parseWildcard expands 1.*, 1.2.* and 1.2.3.* into a half-open range.
func (p *constraintParser) parseWildcard(groups []string) (VersionSet, error) {
	var parts [4]uint64
	precision := 0
	for i, g := range groups {
		if g == "" {
			break
		}
		n, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return VersionSet{}, p.fail("%v", err)
		}
		parts[i] = n
		precision++
	}
	lower := newVersion(parts, precision, suffixDev)
	upper := newVersion(parts, precision, suffixNone).bump(precision - 1).floor()
	return rangeSet(finiteBound(lower, true), finiteBound(upper, false)), nil
}

// parseHyphenRange expands "a - b". A partial upper version is bumped so
// that "1.0 - 2.0" includes every 2.0.x release.
func (p *constraintParser) parseHyphenRange(from, to string) (VersionSet, error) {
	lower, err := p.version(from)
	if err != nil {
		return VersionSet{}, err
	}
	upper, err := p.version(to)
	if err != nil {
		return VersionSet{}, err
	}
	if lower.IsBranch() || upper.IsBranch() {
		return VersionSet{}, p.fail("hyphen range cannot use branches")
	}
	if upper.precision < 3 {
		return rangeSet(finiteBound(lower.floor(), true), finiteBound(upper.bump(upper.precision-1).floor(), false)), nil
	}
	return rangeSet(finiteBound(lower.floor(), true), finiteBound(upper, true)), nil
}

// Set returns the versions the constraint admits.
func (c Constraint) Set() VersionSet {
	return c.set
}

// Allows reports whether v satisfies the constraint.
func (c Constraint) Allows(v Version) bool {
	return c.set.Contains(v)
}

// AllowsAny reports whether some version satisfies both constraints.
func (c Constraint) AllowsAny(other Constraint) bool {
	return !c.set.IsDisjoint(other.set)
}

// AllowsAll reports whether every version admitted by other is admitted by c.
func (c Constraint) AllowsAll(other Constraint) bool {
	return other.set.IsSubset(c.set)
}

// IsEmpty reports whether no version can satisfy the constraint.
func (c Constraint) IsEmpty() bool {
	return c.set.IsEmpty()
}

// IsAny reports whether every numeric version satisfies the constraint.
func (c Constraint) IsAny() bool {
	return c.set.numericFull()
}

// Equal reports whether both constraints admit the same versions.
func (c Constraint) Equal(other Constraint) bool {
	return c.set.Equal(other.set)
}

// Stability returns the explicit @stability flag, if any.
func (c Constraint) Stability() (Stability, bool) {
	return c.stability, c.hasStability
}

// impliedStability is the lowest stability of any version written in the
// constraint. A root requirement on 1.0.0-beta1 accepts beta releases.
func (c Constraint) impliedStability() Stability {
	if !c.hasImplied {
		return StabilityStable
	}
	return c.implied
}

func (c *Constraint) setImplied(s Stability) {
	c.implied, c.hasImplied = s, s < StabilityStable
}

// Intersect returns the constraint admitting versions allowed by both.
// The result keeps c's text when the sets are equal.
func (c Constraint) Intersect(other Constraint) Constraint {
	set := c.set.Intersection(other.set)
	out := Constraint{set: set}
	out.setImplied(min(c.impliedStability(), other.impliedStability()))
	if set.Equal(c.set) && set.Equal(other.set) {
		out.text = minText(c.String(), other.String())
	}
	out.stability, out.hasStability = mergeFlags(c, other)
	return out
}

// Union returns the constraint admitting versions allowed by either.
func (c Constraint) Union(other Constraint) Constraint {
	out := Constraint{set: c.set.Union(other.set)}
	out.setImplied(min(c.impliedStability(), other.impliedStability()))
	out.stability, out.hasStability = mergeFlags(c, other)
	return out
}

// Complement returns the constraint admitting every version c rejects.
func (c Constraint) Complement() Constraint {
	return NewConstraint(c.set.Complement())
}

// Difference returns the versions admitted by c but not other.
func (c Constraint) Difference(other Constraint) Constraint {
	out := Constraint{set: c.set.Difference(other.set)}
	out.setImplied(c.impliedStability())
	return out
}

// mergeFlags combines the @stability flags of two constraints, keeping the
// more permissive one.
func mergeFlags(a, b Constraint) (Stability, bool) {
	switch {
	case a.hasStability && b.hasStability:
		return min(a.stability, b.stability), true
	case a.hasStability:
		return a.stability, true
	case b.hasStability:
		return b.stability, true
	}
	return StabilityStable, false
}

// minText picks a stable text for equal constraints so that intersection
// is commutative.
func minText(a, b string) string {
	if b < a {
		return b
	}
	return a
}

// String returns the constraint as written, or the canonical form of its set.
func (c Constraint) String() string {
	if c.text != "" {
		return c.text
	}
	return c.set.String()
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
