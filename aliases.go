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

import "context"

// aliasEntry is one replace or provide link of a loaded release.
type aliasEntry struct {
	pkg     Name
	version Version
	link    Link
}

// indexAliases records the replace and provide links of freshly loaded
// releases. Only releases the solver loaded itself are indexed, so the
// index does not depend on what a concurrent prefetch happened to finish.
func (st *solverState) indexAliases(name Name, releases []Release) {
	for _, r := range releases {
		for _, link := range r.Replaces {
			st.aliases[link.Target] = append(st.aliases[link.Target], aliasEntry{pkg: name, version: r.Version, link: link})
		}
		for _, link := range r.Provides {
			st.aliases[link.Target] = append(st.aliases[link.Target], aliasEntry{pkg: name, version: r.Version, link: link})
		}
	}
}

// loadReplacers loads every package the source reports as replacing or
// providing target, once per solve.
func (st *solverState) loadReplacers(ctx context.Context, target Name) error {
	if st.replacersLoaded[target] {
		return nil
	}
	st.replacersLoaded[target] = true

	index, ok := st.source.(ReplacerIndex)
	if !ok {
		return nil
	}
	names, err := index.Replacers(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return &CancelledError{Steps: st.steps, Err: ctx.Err()}
		}
		return &SourceError{Package: target, Err: err}
	}
	for _, name := range names {
		if _, err := st.releases(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// alternatives returns, for a requirement of pkg at version, the packages
// that satisfy it by replacing or providing its target. Each alternative
// admits exactly the replacing versions whose link intersects the
// requirement.
//
// The requirement is tautological when pkg at version replaces or provides
// the target itself; other versions of pkg are never alternatives.
func (st *solverState) alternatives(ctx context.Context, pkg Name, version Version, requirement Link) ([]Term, bool, error) {
	if err := st.loadReplacers(ctx, requirement.Target); err != nil {
		return nil, false, err
	}

	var order []Name
	sets := make(map[Name]VersionSet)
	for _, e := range st.aliases[requirement.Target] {
		if e.pkg == requirement.Target || !e.link.Constraint.AllowsAny(requirement.Constraint) {
			continue
		}
		if e.pkg == pkg {
			if e.version.Equal(version) {
				st.debug("requirement satisfied by own alias", "package", pkg, "version", version, "requirement", requirement)
				return nil, true, nil
			}
			continue
		}
		set, seen := sets[e.pkg]
		if !seen {
			order = append(order, e.pkg)
		}
		sets[e.pkg] = set.Union(ExactSet(e.version))
	}

	terms := make([]Term, 0, len(order))
	for _, name := range order {
		terms = append(terms, NewTerm(name, NewConstraint(sets[name])))
	}
	return terms, false, nil
}

// replacedBy maps every required package that is absent from the solution
// to the selected package that replaces or provides it.
func (st *solverState) replacedBy(packages []NameVersion) map[Name]Name {
	replaced := make(map[Name]Name)
	for _, nv := range packages {
		release := st.decided[nv.Name]
		for _, link := range release.aliases() {
			target := link.Target
			if _, selected := st.partial.decision(target); selected {
				continue
			}
			if _, mentioned := st.mentionIndex[target]; !mentioned {
				continue
			}
			if _, done := replaced[target]; !done {
				replaced[target] = nv.Name
			}
		}
	}
	if len(replaced) == 0 {
		return nil
	}
	return replaced
}
