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
	"maps"
	"slices"
)

// NameVersion represents a resolved package with its selected version.
// This is the fundamental unit of a dependency resolution solution.
type NameVersion struct {
	Name    Name
	Version Version
}

// String returns a human-readable representation of the package-version pair.
func (n NameVersion) String() string {
	return fmt.Sprintf("%s %s", n.Name, n.Version)
}

// Solution represents the complete set of resolved package versions.
// Packages holds exactly one version per package, sorted by name, ready to
// be written to a lock file. Packages required by name but satisfied by a
// replacing or providing package are absent from Packages and listed in
// Replaced instead. Dev marks the packages that only the root's development
// requirements lead to; they are left out of a --no-dev install.
//
// Example:
//
//	solution, err := solver.Solve(ctx, root)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for pkg := range solution.All() {
//	    fmt.Printf("%s: %s\n", pkg.Name, pkg.Version)
//	}
type Solution struct {
	Packages []NameVersion
	// Replaced maps a required package to the package standing in for it.
	Replaced map[Name]Name
	// Dev holds the selected packages needed only for development.
	Dev map[Name]bool
}

// GetVersion retrieves the resolved version for a given package name.
// Returns the version and true if found, or the zero Version and false if
// the package is not in the solution.
func (s Solution) GetVersion(name Name) (Version, bool) {
	i, found := slices.BinarySearchFunc(s.Packages, name, func(nv NameVersion, n Name) int {
		return nv.Name.Compare(n)
	})
	if !found {
		return Version{}, false
	}
	return s.Packages[i].Version, true
}

// Len returns the number of resolved packages.
func (s Solution) Len() int {
	return len(s.Packages)
}

// All returns an iterator over all package-version pairs in the solution.
// This enables using range-over-function syntax:
//
//	for pkg := range solution.All() {
//	    fmt.Printf("%s: %s\n", pkg.Name, pkg.Version)
//	}
func (s Solution) All() iter.Seq[NameVersion] {
	return func(yield func(NameVersion) bool) {
		for _, nv := range s.Packages {
			if !yield(nv) {
				return
			}
		}
	}
}

// IsDev reports whether name was selected only for development.
func (s Solution) IsDev(name Name) bool {
	return s.Dev[name]
}

// ReplacedNames returns the keys of Replaced in name order.
func (s Solution) ReplacedNames() []Name {
	return slices.SortedFunc(maps.Keys(s.Replaced), Name.Compare)
}
