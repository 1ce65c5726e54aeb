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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// links builds requirement links from target/constraint pairs.
func links(pairs ...string) []Link {
	out := make([]Link, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Link{Target: MakeName(pairs[i]), Constraint: MustParseConstraint(pairs[i+1])})
	}
	return out
}

// addRelease adds name at version requiring the target/constraint pairs.
func addRelease(s *InMemorySource, name, version string, pairs ...string) {
	s.AddPackage(MakeName(name), MustParseVersion(version), links(pairs...)...)
}

// newRoot creates the root of the acme/app project requiring the
// target/constraint pairs in order.
func newRoot(t testing.TB, pairs ...string) *RootSource {
	t.Helper()
	root := NewRootSource("acme/app")
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, root.Require(pairs[i], pairs[i+1]))
	}
	return root
}

// solutionMap flattens a solution to name => version text.
func solutionMap(s Solution) map[string]string {
	out := make(map[string]string, s.Len())
	for nv := range s.All() {
		out[nv.Name.Value()] = nv.Version.String()
	}
	return out
}

// requireSound checks that every requirement of every selected release,
// including the root, is met by the solution: the target is selected at an
// allowed version, stands in the Replaced map, or is an unconfigured
// platform package.
func requireSound(t *testing.T, source Source, root *RootSource, solution Solution) {
	t.Helper()
	check := func(owner string, requires []Link) {
		for _, link := range requires {
			if link.Target.IsPlatform() {
				continue
			}
			if v, ok := solution.GetVersion(link.Target); ok {
				require.Truef(t, link.Constraint.Allows(v), "%s requires %s but %s is selected", owner, link, v)
				continue
			}
			_, replaced := solution.Replaced[link.Target]
			require.Truef(t, replaced, "%s requires %s which is neither selected nor replaced", owner, link)
		}
	}

	check(root.Name().String(), root.Requirements())
	for nv := range solution.All() {
		releases, err := source.Releases(context.Background(), nv.Name)
		require.NoError(t, err)
		found := false
		for _, r := range releases {
			if r.Version.Equal(nv.Version) {
				check(nv.String(), r.Requires)
				found = true
			}
		}
		require.Truef(t, found, "selected release %s is not published", nv)
	}
}

// countingSource wraps a Source and counts lookups per package. It is safe
// for concurrent use.
type countingSource struct {
	source Source

	mu    sync.Mutex
	calls map[Name]int
}

func newCountingSource(source Source) *countingSource {
	return &countingSource{source: source, calls: make(map[Name]int)}
}

func (c *countingSource) Releases(ctx context.Context, name Name) ([]Release, error) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
	return c.source.Releases(ctx, name)
}

func (c *countingSource) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[MakeName(name)]
}

func (c *countingSource) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// failingSource fails every lookup of the named package.
type failingSource struct {
	Source
	fail Name
	err  error
}

func (f failingSource) Releases(ctx context.Context, name Name) ([]Release, error) {
	if name == f.fail {
		return nil, f.err
	}
	return f.Source.Releases(ctx, name)
}

// unindexedSource exposes only Releases of the wrapped source, hiding its
// replacer index and prefetching.
type unindexedSource struct {
	source Source
}

func (u unindexedSource) Releases(ctx context.Context, name Name) ([]Release, error) {
	return u.source.Releases(ctx, name)
}
