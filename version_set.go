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
	"slices"
	"strings"
)

// VersionSet is an exact set of versions.
//
// It has two independent halves: numeric versions, stored as sorted disjoint
// intervals, and dev branch pseudo-versions, stored as a finite set of branch
// names or the complement of one. Every operation is closed over both halves,
// so complements of branch constraints stay exact.
//
// The zero value is the empty set.
type VersionSet struct {
	intervals []versionInterval
	branches  branchSet
}

// branchSet is a finite set of branch names, or when cofinite is true,
// every branch except names. names is sorted and unique.
type branchSet struct {
	names    []string
	cofinite bool
}

// EmptySet returns the set containing no versions.
func EmptySet() VersionSet {
	return VersionSet{}
}

// AnyNumeric returns every numeric version and no branch.
func AnyNumeric() VersionSet {
	return VersionSet{intervals: []versionInterval{{
		lower: negativeInfinityBound(),
		upper: positiveInfinityBound(),
	}}}
}

// FullSet returns every version, branches included.
func FullSet() VersionSet {
	s := AnyNumeric()
	s.branches = branchSet{cofinite: true}
	return s
}

// ExactSet returns the set holding only v.
func ExactSet(v Version) VersionSet {
	if v.IsBranch() {
		return BranchSet(v.Branch())
	}
	return rangeSet(finiteBound(v, true), finiteBound(v, true))
}

// BranchSet returns the set of the given dev branches.
func BranchSet(names ...string) VersionSet {
	return VersionSet{branches: newBranchSet(names, false)}
}

// rangeSet returns the numeric interval between lower and upper.
func rangeSet(lower, upper versionBound) VersionSet {
	if iv, ok := newInterval(lower, upper); ok {
		return VersionSet{intervals: []versionInterval{iv}}
	}
	return VersionSet{}
}

func newBranchSet(names []string, cofinite bool) branchSet {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return branchSet{names: slices.Compact(sorted), cofinite: cofinite}
}

// IsEmpty reports whether the set holds no version.
func (s VersionSet) IsEmpty() bool {
	return len(s.intervals) == 0 && s.branches.isEmpty()
}

// IsFull reports whether the set holds every version.
func (s VersionSet) IsFull() bool {
	return s.numericFull() && s.branches.isFull()
}

// numericFull reports whether every numeric version is in the set.
func (s VersionSet) numericFull() bool {
	return len(s.intervals) == 1 && s.intervals[0].lower.isNegInfinity() && s.intervals[0].upper.isPosInfinity()
}

// Contains reports whether v is in the set.
func (s VersionSet) Contains(v Version) bool {
	if v.IsBranch() {
		return s.branches.contains(v.Branch())
	}
	for _, iv := range s.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Union returns the versions in either set.
func (s VersionSet) Union(other VersionSet) VersionSet {
	intervals := make([]versionInterval, 0, len(s.intervals)+len(other.intervals))
	intervals = append(intervals, s.intervals...)
	intervals = append(intervals, other.intervals...)
	return VersionSet{
		intervals: normalizeIntervals(intervals),
		branches:  s.branches.union(other.branches),
	}
}

// Intersection returns the versions in both sets.
func (s VersionSet) Intersection(other VersionSet) VersionSet {
	var result []versionInterval
	i, j := 0, 0
	for i < len(s.intervals) && j < len(other.intervals) {
		if iv, ok := intersectInterval(s.intervals[i], other.intervals[j]); ok {
			result = append(result, iv)
		}
		if compareUpper(s.intervals[i].upper, other.intervals[j].upper) < 0 {
			i++
		} else {
			j++
		}
	}
	return VersionSet{
		intervals: normalizeIntervals(result),
		branches:  s.branches.intersect(other.branches),
	}
}

// intersectInterval computes the intersection of two intervals.
func intersectInterval(a, b versionInterval) (versionInterval, bool) {
	return newInterval(
		greaterBound(a.lower, b.lower, compareLower),
		lesserBound(a.upper, b.upper, compareUpper),
	)
}

// Complement returns the versions not in the set.
func (s VersionSet) Complement() VersionSet {
	gaps := make([]versionInterval, 0, len(s.intervals)+1)
	currentLower := negativeInfinityBound()
	for _, iv := range s.intervals {
		if gap, ok := newInterval(currentLower, iv.complementUpperBound()); ok {
			gaps = append(gaps, gap)
		}
		currentLower = iv.complementLowerBound()
	}
	if tail, ok := newInterval(currentLower, positiveInfinityBound()); ok {
		gaps = append(gaps, tail)
	}
	return VersionSet{
		intervals: normalizeIntervals(gaps),
		branches:  s.branches.complement(),
	}
}

// Difference returns the versions in s but not in other.
func (s VersionSet) Difference(other VersionSet) VersionSet {
	return s.Intersection(other.Complement())
}

// IsSubset reports whether every version in s is also in other.
func (s VersionSet) IsSubset(other VersionSet) bool {
	return s.Difference(other).IsEmpty()
}

// IsDisjoint reports whether s and other share no version.
func (s VersionSet) IsDisjoint(other VersionSet) bool {
	return s.Intersection(other).IsEmpty()
}

// Equal reports whether both sets hold the same versions.
func (s VersionSet) Equal(other VersionSet) bool {
	return s.IsSubset(other) && other.IsSubset(s)
}

// String renders the set in constraint syntax: AND inside a range is a
// space, OR between ranges is " || ".
func (s VersionSet) String() string {
	if s.IsEmpty() {
		return "∅"
	}
	parts := make([]string, 0, len(s.intervals)+1)
	for _, iv := range s.intervals {
		parts = append(parts, intervalToString(iv))
	}
	if b := s.branches.String(); b != "" {
		parts = append(parts, b)
	}
	return strings.Join(parts, " || ")
}

// intervalToString converts a single interval to constraint syntax.
func intervalToString(iv versionInterval) string {
	if iv.lower.isNegInfinity() && iv.upper.isPosInfinity() {
		return "*"
	}

	if iv.lower.isFinite() && iv.upper.isFinite() &&
		iv.lower.version.Compare(iv.upper.version) == 0 &&
		iv.lower.inclusive && iv.upper.inclusive {
		return iv.lower.version.String()
	}

	var parts []string
	if iv.lower.isFinite() {
		op := ">"
		if iv.lower.inclusive {
			op = ">="
		}
		parts = append(parts, op+iv.lower.version.String())
	}
	if iv.upper.isFinite() {
		op := "<"
		if iv.upper.inclusive {
			op = "<="
		}
		parts = append(parts, op+iv.upper.version.String())
	}
	return strings.Join(parts, " ")
}

func (b branchSet) isEmpty() bool {
	return !b.cofinite && len(b.names) == 0
}

func (b branchSet) isFull() bool {
	return b.cofinite && len(b.names) == 0
}

func (b branchSet) contains(name string) bool {
	_, found := slices.BinarySearch(b.names, name)
	return found != b.cofinite
}

func (b branchSet) complement() branchSet {
	return branchSet{names: b.names, cofinite: !b.cofinite}
}

func (b branchSet) intersect(other branchSet) branchSet {
	switch {
	case !b.cofinite && !other.cofinite:
		return branchSet{names: filterNames(b.names, other.names, true)}
	case !b.cofinite:
		return branchSet{names: filterNames(b.names, other.names, false)}
	case !other.cofinite:
		return branchSet{names: filterNames(other.names, b.names, false)}
	default:
		return newBranchSet(append(slices.Clone(b.names), other.names...), true)
	}
}

func (b branchSet) union(other branchSet) branchSet {
	return b.complement().intersect(other.complement()).complement()
}

// filterNames keeps the names of a whose membership in b equals keep.
func filterNames(a, b []string, keep bool) []string {
	var out []string
	for _, name := range a {
		if _, found := slices.BinarySearch(b, name); found == keep {
			out = append(out, name)
		}
	}
	return out
}

func (b branchSet) String() string {
	names := make([]string, len(b.names))
	for i, name := range b.names {
		names[i] = "dev-" + name
	}
	switch {
	case b.cofinite && len(names) == 0:
		return "dev-*"
	case b.cofinite:
		return fmt.Sprintf("dev-* except %s", strings.Join(names, ", "))
	default:
		return strings.Join(names, " || ")
	}
}
