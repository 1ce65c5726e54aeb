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
	"context"
	"fmt"
	"strings"
)

// Link is a relationship from a release to another package: a requirement,
// a conflict, a replacement or a provision.
type Link struct {
	Target     Name
	Constraint Constraint
}

// String renders the link as "target constraint".
func (l Link) String() string {
	return fmt.Sprintf("%s %s", l.Target, l.Constraint)
}

// selfVersion is the constraint text that stands for the declaring release's
// own version in replace and provide links.
const selfVersion = "self.version"

// ParseLink builds a link to target. The constraint "self.version" resolves
// to the exact version of the declaring release.
func ParseLink(target, constraint string, self Version) (Link, error) {
	name := MakeName(target)
	if name.Value() == "" {
		return Link{}, fmt.Errorf("link with empty package name")
	}
	if strings.TrimSpace(constraint) == selfVersion {
		return Link{Target: name, Constraint: ExactConstraint(self)}, nil
	}
	c, err := ParseConstraint(constraint)
	if err != nil {
		return Link{}, err
	}
	return Link{Target: name, Constraint: c}, nil
}

// Release is one version of a package together with the metadata the
// solver needs about it.
type Release struct {
	Version   Version
	Requires  []Link
	Conflicts []Link
	Replaces  []Link
	Provides  []Link
}

// aliases returns every replace and provide link of the release.
func (r Release) aliases() []Link {
	out := make([]Link, 0, len(r.Replaces)+len(r.Provides))
	out = append(out, r.Replaces...)
	return append(out, r.Provides...)
}

// Source supplies package metadata to the solver.
//
// Releases must return every known release of a package. The result must
// not change between calls within one solve. A package the source does not
// know is reported with *PackageNotFoundError; the solver treats that as a
// package without versions. Any other error aborts the solve.
//
// Example implementation:
//
//	type RegistrySource struct {
//	    client *http.Client
//	}
//
//	func (r *RegistrySource) Releases(ctx context.Context, name Name) ([]Release, error) {
//	    // fetch p2/<vendor>/<name>.json and decode it
//	}
type Source interface {
	Releases(ctx context.Context, name Name) ([]Release, error)
}

// ReplacerIndex is implemented by sources that can list the packages whose
// releases replace or provide a given name. The solver uses it to discover
// providers of virtual packages that nothing requires directly.
//
// Without an index the solver loads every package reachable from a
// release's requirements before folding them, so replacers are only found
// when something requires them.
type ReplacerIndex interface {
	Replacers(ctx context.Context, name Name) ([]Name, error)
}

// replacerCoverage is implemented by wrappers that forward Replacers to
// sources which may or may not index replacers themselves.
type replacerCoverage interface {
	coversReplacers() bool
}

// indexesReplacers reports whether source can list the replacers of any
// package on its own.
func indexesReplacers(source Source) bool {
	if c, ok := source.(replacerCoverage); ok {
		return c.coversReplacers()
	}
	_, ok := source.(ReplacerIndex)
	return ok
}

// Prefetcher is implemented by sources that can start fetching metadata
// before the solver asks for it. Prefetch must not block.
type Prefetcher interface {
	Prefetch(ctx context.Context, names ...Name)
}
