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
	"errors"
	"slices"
)

// CombinedSource aggregates multiple package sources into a single source,
// the way a project lists several repositories. Sources are consulted in
// order; when two sources publish the same version of a package the
// earlier source wins.
//
// Example:
//
//	platform := NewPlatformSource(map[Name]Version{MakeName("php"): MustParseVersion("8.3.0")})
//	combined := CombinedSource{platform, registry}
type CombinedSource []Source

// Releases queries all sources and returns the combined releases in
// ascending version order. It fails with *PackageNotFoundError only when no
// source knows the package.
func (s CombinedSource) Releases(ctx context.Context, name Name) ([]Release, error) {
	var ret []Release
	found := false
	for _, source := range s {
		releases, err := source.Releases(ctx, name)
		if err != nil {
			var pkgErr *PackageNotFoundError
			if errors.As(err, &pkgErr) {
				continue
			}
			return nil, err
		}
		found = true
		for _, r := range releases {
			if !slices.ContainsFunc(ret, func(existing Release) bool { return existing.Version.Equal(r.Version) }) {
				ret = append(ret, r)
			}
		}
	}

	if !found {
		return nil, &PackageNotFoundError{Package: name}
	}

	slices.SortStableFunc(ret, func(a, b Release) int {
		return a.Version.Compare(b.Version)
	})
	return ret, nil
}

// Replacers merges the answers of every source that implements ReplacerIndex.
func (s CombinedSource) Replacers(ctx context.Context, name Name) ([]Name, error) {
	var ret []Name
	for _, source := range s {
		index, ok := source.(ReplacerIndex)
		if !ok {
			continue
		}
		names, err := index.Replacers(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !slices.Contains(ret, n) {
				ret = append(ret, n)
			}
		}
	}
	return ret, nil
}

func (s CombinedSource) coversReplacers() bool {
	for _, source := range s {
		if !indexesReplacers(source) {
			return false
		}
	}
	return true
}

// Prefetch forwards to every source that implements Prefetcher.
func (s CombinedSource) Prefetch(ctx context.Context, names ...Name) {
	for _, source := range s {
		if p, ok := source.(Prefetcher); ok {
			p.Prefetch(ctx, names...)
		}
	}
}

var (
	_ Source        = CombinedSource{}
	_ ReplacerIndex = CombinedSource{}
	_ Prefetcher    = CombinedSource{}

	_ replacerCoverage = CombinedSource{}
)
