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
	"slices"
)

// ResolutionMode selects which candidate the solver tries first.
type ResolutionMode int

const (
	// PreferHighest tries the highest allowed version first.
	PreferHighest ResolutionMode = iota
	// PreferLowest tries the lowest allowed version first.
	PreferLowest
	// PreferStable tries the most stable versions first, highest first
	// within a stability.
	PreferStable
)

// ParseResolutionMode parses "highest", "lowest" or "stable".
func ParseResolutionMode(s string) (ResolutionMode, bool) {
	switch s {
	case "", "highest":
		return PreferHighest, true
	case "lowest":
		return PreferLowest, true
	case "stable":
		return PreferStable, true
	}
	return PreferHighest, false
}

func (m ResolutionMode) String() string {
	switch m {
	case PreferLowest:
		return "lowest"
	case PreferStable:
		return "stable"
	default:
		return "highest"
	}
}

// Policy is the immutable configuration that shapes candidate selection.
// A Policy is read, never written, by the solver, so one value can be
// shared by concurrent solves.
type Policy struct {
	// MinimumStability is the lowest stability accepted for any package.
	MinimumStability Stability
	// StabilityFlags lowers the minimum stability of single packages.
	StabilityFlags map[Name]Stability
	// Mode orders the candidates of every package.
	Mode ResolutionMode
	// Locked versions are tried first while they remain allowed.
	Locked map[Name]Version
	// Excluded packages never have candidates.
	Excluded map[Name]bool
	// Platform lists the versions of platform packages (php, ext-*, lib-*).
	// Requirements on platform packages missing from it are ignored.
	Platform map[Name]Version
}

// DefaultPolicy accepts stable releases only and prefers the highest version.
func DefaultPolicy() Policy {
	return Policy{MinimumStability: StabilityStable}
}

// minimumStabilities computes the effective minimum stability of every root
// requirement. A root constraint lowers it with an explicit @flag or by
// naming a pre-release or branch version.
func (p Policy) minimumStabilities(requires []Link) map[Name]Stability {
	out := make(map[Name]Stability, len(requires)+len(p.StabilityFlags))
	for name, s := range p.StabilityFlags {
		out[name] = min(s, p.MinimumStability)
	}
	for _, link := range requires {
		s, ok := out[link.Target]
		if !ok {
			s = p.MinimumStability
		}
		if flag, ok := link.Constraint.Stability(); ok {
			s = min(s, flag)
		}
		out[link.Target] = min(s, link.Constraint.impliedStability())
	}
	return out
}

// lockedVersion returns the locked version of name, if any.
func (p Policy) lockedVersion(name Name) (Version, bool) {
	v, ok := p.Locked[name]
	return v, ok && !v.IsZero()
}

// hasPlatform reports whether a version is configured for the platform
// package name.
func (p Policy) hasPlatform(name Name) bool {
	_, ok := p.Platform[name]
	return ok
}

// order sorts candidates, given in ascending version order, into the order
// the solver tries them.
func (p Policy) order(name Name, candidates []Release) []Release {
	out := slices.Clone(candidates)
	switch p.Mode {
	case PreferLowest:
	case PreferStable:
		slices.Reverse(out)
		slices.SortStableFunc(out, func(a, b Release) int {
			return int(b.Version.Stability()) - int(a.Version.Stability())
		})
	default:
		slices.Reverse(out)
	}
	if locked, ok := p.lockedVersion(name); ok {
		if i := slices.IndexFunc(out, func(r Release) bool { return r.Version.Equal(locked) }); i > 0 {
			r := out[i]
			out = slices.Delete(out, i, i+1)
			out = slices.Insert(out, 0, r)
		}
	}
	return out
}

// NewPlatformSource returns a source that publishes exactly one release per
// configured platform package.
func NewPlatformSource(platform map[Name]Version) *InMemorySource {
	source := &InMemorySource{}
	for name, version := range platform {
		source.AddPackage(name, version)
	}
	return source
}
