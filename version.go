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
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Stability ranks the release maturity of a version.
// The order is strict: dev < alpha < beta < RC < stable.
type Stability int

const (
	StabilityDev Stability = iota
	StabilityAlpha
	StabilityBeta
	StabilityRC
	StabilityStable
)

// ParseStability parses a stability name as used in minimum-stability
// settings and @flags. Matching is case-insensitive.
func ParseStability(s string) (Stability, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev":
		return StabilityDev, true
	case "alpha", "a":
		return StabilityAlpha, true
	case "beta", "b":
		return StabilityBeta, true
	case "rc":
		return StabilityRC, true
	case "stable":
		return StabilityStable, true
	}
	return StabilityStable, false
}

// String returns the canonical stability name.
func (s Stability) String() string {
	switch s {
	case StabilityDev:
		return "dev"
	case StabilityAlpha:
		return "alpha"
	case StabilityBeta:
		return "beta"
	case StabilityRC:
		return "RC"
	default:
		return "stable"
	}
}

// suffix is the release modifier of a numeric version, in comparison order.
type suffix int

const (
	suffixDev suffix = iota
	suffixAlpha
	suffixBeta
	suffixRC
	suffixNone
	suffixPatch
)

func (s suffix) String() string {
	switch s {
	case suffixDev:
		return "dev"
	case suffixAlpha:
		return "alpha"
	case suffixBeta:
		return "beta"
	case suffixRC:
		return "RC"
	case suffixPatch:
		return "p"
	default:
		return ""
	}
}

func parseSuffix(s string) (suffix, bool) {
	switch strings.ToLower(s) {
	case "":
		return suffixNone, true
	case "stable":
		return suffixNone, true
	case "dev":
		return suffixDev, true
	case "alpha", "a":
		return suffixAlpha, true
	case "beta", "b":
		return suffixBeta, true
	case "rc":
		return suffixRC, true
	case "patch", "pl", "p":
		return suffixPatch, true
	}
	return suffixNone, false
}

// branchAliasComponent replaces the "x" of a branch alias such as 1.0.x-dev.
const branchAliasComponent = 9999999

// Version is a single package version.
//
// A version is either numeric (up to four components, an optional release
// modifier and optional build metadata) or a dev branch pseudo-version
// written dev-<branch>. Numeric versions are totally ordered; branch versions
// only compare among themselves by branch name and sort below every numeric
// version when a single list holds both.
type Version struct {
	parts     [4]uint64
	precision int
	suffix    suffix
	suffixNum uint64
	build     string
	branch    string
	text      string
}

var versionPattern = regexp.MustCompile(
	`(?i)^(\d+|x|\*)(?:\.(\d+|x|\*))?(?:\.(\d+|x|\*))?(?:\.(\d+|x|\*))?` +
		`(?:[._-]?(stable|beta|b|rc|alpha|a|patch|pl|p|dev)(?:[.-]?(\d+))?)?` +
		`(?:[.-]?(dev))?$`)

// ParseVersion parses a version string.
//
// Accepted forms include 1, 1.2, 1.2.3, 1.2.3.4, v1.2.3, 1.2.3-beta2,
// 1.2.3-RC.1, 1.2.3-p1, 1.2.3+build.7, 1.0.x-dev and dev-main.
func ParseVersion(s string) (Version, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Version{}, fmt.Errorf("invalid version: empty string")
	}

	if branch, ok := strings.CutPrefix(text, "dev-"); ok {
		if branch == "" {
			return Version{}, fmt.Errorf("invalid version %q: missing branch name", s)
		}
		return Version{branch: branch, suffix: suffixDev, text: text}, nil
	}

	body := text
	if body[0] == 'v' || body[0] == 'V' {
		body = body[1:]
	}

	var build string
	if i := strings.IndexByte(body, '+'); i >= 0 {
		build = body[i+1:]
		body = body[:i]
		if build == "" {
			return Version{}, fmt.Errorf("invalid version %q: empty build metadata", s)
		}
	}

	m := versionPattern.FindStringSubmatch(body)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	v := Version{build: build, text: text}
	wildcard := false
	for i := 0; i < 4; i++ {
		part := m[i+1]
		if part == "" {
			break
		}
		v.precision++
		if part == "x" || part == "X" || part == "*" {
			wildcard = true
			v.parts[i] = branchAliasComponent
			continue
		}
		if wildcard {
			return Version{}, fmt.Errorf("invalid version %q: number after wildcard", s)
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.parts[i] = n
	}

	mod, _ := parseSuffix(m[5])
	v.suffix = mod
	if m[6] != "" {
		n, err := strconv.ParseUint(m[6], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.suffixNum = n
	}
	if m[7] != "" {
		v.suffix = suffixDev
		v.suffixNum = 0
	}

	if wildcard {
		if v.suffix != suffixDev {
			return Version{}, fmt.Errorf("invalid version %q: wildcard outside a -dev branch alias", s)
		}
		for i := v.precision; i < 4; i++ {
			v.parts[i] = branchAliasComponent
		}
		v.precision = 4
	}

	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// newVersion builds a synthetic numeric version.
func newVersion(parts [4]uint64, precision int, mod suffix) Version {
	return Version{parts: parts, precision: precision, suffix: mod}
}

// IsBranch reports whether v is a dev branch pseudo-version.
func (v Version) IsBranch() bool {
	return v.branch != ""
}

// Branch returns the branch name of a dev branch version.
func (v Version) Branch() string {
	return v.branch
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v.precision == 0 && v.branch == ""
}

// Stability returns the release maturity of v.
func (v Version) Stability() Stability {
	if v.branch != "" {
		return StabilityDev
	}
	switch v.suffix {
	case suffixDev:
		return StabilityDev
	case suffixAlpha:
		return StabilityAlpha
	case suffixBeta:
		return StabilityBeta
	case suffixRC:
		return StabilityRC
	default:
		return StabilityStable
	}
}

// Compare returns -1, 0 or 1. Build metadata is ignored.
func (v Version) Compare(other Version) int {
	switch {
	case v.branch != "" && other.branch != "":
		return strings.Compare(v.branch, other.branch)
	case v.branch != "":
		return -1
	case other.branch != "":
		return 1
	}

	for i := range v.parts {
		if c := cmp.Compare(v.parts[i], other.parts[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(v.suffix, other.suffix); c != 0 {
		return c
	}
	return cmp.Compare(v.suffixNum, other.suffixNum)
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// String returns the version as written, or a canonical form for versions
// synthesised while expanding constraints.
func (v Version) String() string {
	if v.text != "" {
		return v.text
	}
	if v.branch != "" {
		return "dev-" + v.branch
	}

	n := max(v.precision, 3)
	if v.parts[3] != 0 {
		n = 4
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(v.parts[i], 10))
	}
	if v.suffix != suffixNone {
		b.WriteByte('-')
		b.WriteString(v.suffix.String())
		if v.suffixNum > 0 {
			b.WriteString(strconv.FormatUint(v.suffixNum, 10))
		}
	}
	if v.build != "" {
		b.WriteByte('+')
		b.WriteString(v.build)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// floor returns the lowest version sharing v's numeric components: the -dev
// variant. Versions that already carry a modifier are returned unchanged.
func (v Version) floor() Version {
	if v.branch != "" || v.suffix != suffixNone {
		return v
	}
	return newVersion(v.parts, v.precision, suffixDev)
}

// bump increments the component at index and zeroes every lower component.
func (v Version) bump(index int) Version {
	parts := v.parts
	parts[index]++
	for i := index + 1; i < len(parts); i++ {
		parts[i] = 0
	}
	return newVersion(parts, max(v.precision, index+1), suffixNone)
}
