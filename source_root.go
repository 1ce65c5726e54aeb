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
	"slices"
)

// rootVersion is the single version of the synthetic root package.
var rootVersion = MustParseVersion("1.0.0")

// RootSource holds the direct requirements of the project being resolved.
// It publishes a synthetic root package whose single release depends on
// those requirements, so the solver treats them like any other dependency.
//
// Requirements keep the order in which they were added; that order is the
// first-mention order the solver uses to break ties. Development
// requirements (Composer's require-dev) follow the regular ones and are
// only resolved when the solver includes them.
//
// Example:
//
//	root := NewRootSource("acme/app")
//	if err := root.Require("monolog/monolog", "^2.0"); err != nil {
//	    return err // *ConstraintParseError
//	}
//	solution, err := solver.Solve(ctx, root)
type RootSource struct {
	name        Name
	requires    []Link
	devRequires []Link
	conflicts   []Link
}

// NewRootSource creates a root source for the named project. An empty
// project name yields the root package "root".
func NewRootSource(project string) *RootSource {
	return &RootSource{name: RootName(project)}
}

// Name returns the root package name.
func (s *RootSource) Name() Name {
	return s.name
}

// Require parses constraint and adds a requirement on the package. A later
// requirement on the same package replaces the earlier one.
func (s *RootSource) Require(pkg, constraint string) error {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return err
	}
	s.AddRequirement(MakeName(pkg), c)
	return nil
}

// AddRequirement adds an already parsed requirement.
func (s *RootSource) AddRequirement(name Name, constraint Constraint) {
	s.requires = setLink(s.requires, Link{Target: name, Constraint: constraint})
}

// RequireDev parses constraint and adds a development requirement on the
// package. A later development requirement on the same package replaces
// the earlier one.
func (s *RootSource) RequireDev(pkg, constraint string) error {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return err
	}
	s.AddDevRequirement(MakeName(pkg), c)
	return nil
}

// AddDevRequirement adds an already parsed development requirement.
func (s *RootSource) AddDevRequirement(name Name, constraint Constraint) {
	s.devRequires = setLink(s.devRequires, Link{Target: name, Constraint: constraint})
}

func setLink(links []Link, link Link) []Link {
	if i := slices.IndexFunc(links, func(l Link) bool { return l.Target == link.Target }); i >= 0 {
		links[i] = link
		return links
	}
	return append(links, link)
}

// Conflict declares that the project cannot be installed together with the
// matching versions of pkg.
func (s *RootSource) Conflict(pkg, constraint string) error {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return err
	}
	s.conflicts = append(s.conflicts, Link{Target: MakeName(pkg), Constraint: c})
	return nil
}

// Requirements returns the requirements in the order they were added.
func (s *RootSource) Requirements() []Link {
	return slices.Clone(s.requires)
}

// DevRequirements returns the development requirements in the order they
// were added.
func (s *RootSource) DevRequirements() []Link {
	return slices.Clone(s.devRequires)
}

// links returns the requirements the root release depends on.
func (s *RootSource) links(includeDev bool) []Link {
	if !includeDev || len(s.devRequires) == 0 {
		return s.requires
	}
	return slices.Concat(s.requires, s.devRequires)
}

// Term returns the term selecting the root package.
func (s *RootSource) Term() Term {
	return NewTerm(s.name, ExactConstraint(rootVersion))
}

func (s *RootSource) release(includeDev bool) Release {
	return Release{Version: rootVersion, Requires: s.links(includeDev), Conflicts: s.conflicts}
}

// Releases returns the single root release for the root name, depending on
// both regular and development requirements.
func (s *RootSource) Releases(_ context.Context, name Name) ([]Release, error) {
	if name != s.name {
		return nil, &PackageNotFoundError{Package: name}
	}
	return []Release{s.release(true)}, nil
}

var _ Source = (*RootSource)(nil)
