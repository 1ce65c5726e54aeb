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
	"sync"
)

// InMemorySource provides an in-memory implementation of Source for tests,
// fixtures and small embedded repositories. It also answers reverse
// replace/provide queries.
//
// Example:
//
//	source := &InMemorySource{}
//	source.AddPackage(MakeName("monolog/monolog"), MustParseVersion("2.9.1"),
//	    Link{Target: MakeName("psr/log"), Constraint: MustParseConstraint("^1.0 || ^2.0 || ^3.0")},
//	)
//	source.AddPackage(MakeName("psr/log"), MustParseVersion("3.0.0"))
type InMemorySource struct {
	mu        sync.RWMutex
	packages  map[Name][]Release
	replacers map[Name][]Name
}

// Releases returns all releases of a package in ascending version order.
func (s *InMemorySource) Releases(_ context.Context, name Name) ([]Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	releases, ok := s.packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Package: name}
	}
	return slices.Clone(releases), nil
}

// Replacers returns the packages that replace or provide name, in the order
// they were added.
func (s *InMemorySource) Replacers(_ context.Context, name Name) ([]Name, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.replacers[name]), nil
}

// AddPackage adds a release that only declares requirements.
func (s *InMemorySource) AddPackage(name Name, version Version, requires ...Link) {
	s.AddRelease(name, Release{Version: version, Requires: requires})
}

// AddRelease adds a release, replacing any release with an equal version.
func (s *InMemorySource) AddRelease(name Name, release Release) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.packages == nil {
		s.packages = make(map[Name][]Release)
		s.replacers = make(map[Name][]Name)
	}

	releases := s.packages[name]
	i, found := slices.BinarySearchFunc(releases, release.Version, func(r Release, v Version) int {
		return r.Version.Compare(v)
	})
	if found {
		releases[i] = release
	} else {
		releases = slices.Insert(releases, i, release)
	}
	s.packages[name] = releases

	for _, link := range release.aliases() {
		if !slices.Contains(s.replacers[link.Target], name) {
			s.replacers[link.Target] = append(s.replacers[link.Target], name)
		}
	}
}

// Names returns every package name the source knows, sorted.
func (s *InMemorySource) Names() []Name {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]Name, 0, len(s.packages))
	for name := range s.packages {
		names = append(names, name)
	}
	slices.SortFunc(names, Name.Compare)
	return names
}

var (
	_ Source        = (*InMemorySource)(nil)
	_ ReplacerIndex = (*InMemorySource)(nil)
)
