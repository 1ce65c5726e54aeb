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

// versionBound is either end of a numeric version interval.
//
// The infinite field uses sentinel values:
//   - boundNegativeInfinity (-1): no lower limit
//   - boundFinite (0): a specific version
//   - boundPositiveInfinity (1): no upper limit
//
// inclusive tells whether the bound admits its own version: ">=1.0" has
// inclusive=true, ">1.0" has inclusive=false.
type versionBound struct {
	version   Version
	inclusive bool
	infinite  int
}

const (
	boundNegativeInfinity = -1
	boundFinite           = 0
	boundPositiveInfinity = 1
)

// finiteBound creates a bound at version.
func finiteBound(version Version, inclusive bool) versionBound {
	return versionBound{version: version, inclusive: inclusive}
}

func negativeInfinityBound() versionBound {
	return versionBound{infinite: boundNegativeInfinity, inclusive: true}
}

func positiveInfinityBound() versionBound {
	return versionBound{infinite: boundPositiveInfinity, inclusive: true}
}

func (b versionBound) isNegInfinity() bool {
	return b.infinite == boundNegativeInfinity
}

func (b versionBound) isPosInfinity() bool {
	return b.infinite == boundPositiveInfinity
}

func (b versionBound) isFinite() bool {
	return b.infinite == boundFinite
}

// compareLower compares two lower bounds.
// At equal versions an inclusive lower bound sorts before an exclusive one.
func compareLower(a, b versionBound) int {
	switch {
	case a.infinite == boundNegativeInfinity && b.infinite == boundNegativeInfinity:
		return 0
	case a.infinite == boundNegativeInfinity:
		return -1
	case b.infinite == boundNegativeInfinity:
		return 1
	case a.infinite == boundPositiveInfinity && b.infinite == boundPositiveInfinity:
		return 0
	case a.infinite == boundPositiveInfinity:
		return 1
	case b.infinite == boundPositiveInfinity:
		return -1
	default:
		if c := a.version.Compare(b.version); c != 0 {
			return c
		}
		if a.inclusive == b.inclusive {
			return 0
		}
		if a.inclusive {
			return -1
		}
		return 1
	}
}

// compareUpper compares two upper bounds.
// At equal versions an inclusive upper bound sorts after an exclusive one.
func compareUpper(a, b versionBound) int {
	switch {
	case a.infinite == boundPositiveInfinity && b.infinite == boundPositiveInfinity:
		return 0
	case a.infinite == boundPositiveInfinity:
		return 1
	case b.infinite == boundPositiveInfinity:
		return -1
	case a.infinite == boundNegativeInfinity && b.infinite == boundNegativeInfinity:
		return 0
	case a.infinite == boundNegativeInfinity:
		return -1
	case b.infinite == boundNegativeInfinity:
		return 1
	default:
		if c := a.version.Compare(b.version); c != 0 {
			return c
		}
		if a.inclusive == b.inclusive {
			return 0
		}
		if a.inclusive {
			return 1
		}
		return -1
	}
}
