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
	"fmt"
	"log/slog"
	"slices"
)

// solverState maintains all mutable state of one solve.
// It coordinates between:
//   - The partial solution (current assignments and decisions)
//   - The incompatibility store (dependencies, facts and learned conflicts)
//   - The releases loaded so far and the replace/provide index built from them
//
// The solver state implements the PubGrub loop:
//  1. Propagate constraints (unit propagation)
//  2. Detect conflicts (an incompatibility whose terms all hold)
//  3. Resolve conflicts into learned incompatibilities and backjump
//  4. Make decisions (pick a package and a version)
//
// A solverState is owned by a single goroutine and needs no locking.
type solverState struct {
	source  Source
	root    *RootSource
	options SolverOptions
	logger  *slog.Logger

	// rootLinks are the requirements of the root release in this solve.
	rootLinks []Link

	store   *IncompatibilityStore
	partial *partialSolution

	// mentioned holds every package in the order it first appeared in an
	// incompatibility; it breaks ties between equally constrained packages.
	mentioned    []Name
	mentionIndex map[Name]int

	loaded     map[Name][]Release
	notFound   map[Name]bool
	registered map[string][]*Incompatibility
	decided    map[Name]Release
	stability  map[Name]Stability

	aliases         map[Name][]aliasEntry
	replacersLoaded map[Name]bool

	// indexed is set when the source lists replacers itself; otherwise
	// reached tracks the packages loaded ahead of folding.
	indexed bool
	reached map[Name]bool

	steps int
}

func newSolverState(source Source, root *RootSource, options SolverOptions, logger *slog.Logger) *solverState {
	return &solverState{
		source:          source,
		root:            root,
		options:         options,
		logger:          logger,
		rootLinks:       root.links(options.IncludeDev),
		store:           newIncompatibilityStore(),
		partial:         newPartialSolution(),
		mentionIndex:    make(map[Name]int),
		loaded:          make(map[Name][]Release),
		notFound:        make(map[Name]bool),
		registered:      make(map[string][]*Incompatibility),
		decided:         make(map[Name]Release),
		stability:       options.Policy.minimumStabilities(root.links(options.IncludeDev)),
		aliases:         make(map[Name][]aliasEntry),
		replacersLoaded: make(map[Name]bool),
		indexed:         indexesReplacers(source),
		reached:         make(map[Name]bool),
	}
}

func (st *solverState) debug(msg string, args ...any) {
	if st.logger == nil {
		return
	}
	st.logger.Debug(msg, args...)
}

// solve runs the propagate/decide loop until every required package has a
// version or the root requirements are proven unsatisfiable.
func (st *solverState) solve(ctx context.Context) (Solution, error) {
	rootName := st.root.Name()
	st.addIncompatibility(newIncompatibility([]Term{st.root.Term().Negate()}, KindRoot))
	st.prefetch(ctx, st.rootLinks)

	next := rootName
	for {
		if err := ctx.Err(); err != nil {
			return Solution{}, &CancelledError{Steps: st.steps, Err: err}
		}
		if err := st.propagate(next); err != nil {
			return Solution{}, err
		}
		var err error
		next, err = st.choose(ctx)
		if err != nil {
			return Solution{}, err
		}
		if next.IsZero() {
			return st.buildSolution(), nil
		}
	}
}

// step charges one unit of work against the step budget.
func (st *solverState) step() error {
	st.steps++
	if st.options.MaxSteps > 0 && st.steps > st.options.MaxSteps {
		return ErrIterationLimit{Steps: st.options.MaxSteps}
	}
	return nil
}

// addIncompatibility makes inc visible to propagation.
func (st *solverState) addIncompatibility(inc *Incompatibility) {
	st.store.Add(inc)
	for _, t := range inc.Terms {
		if _, ok := st.mentionIndex[t.Name]; !ok {
			st.mentionIndex[t.Name] = len(st.mentioned)
			st.mentioned = append(st.mentioned, t.Name)
		}
	}
}

// propagate performs unit propagation starting from a package.
//
// Incompatibilities of every changed package are visited newest first, the
// ones most likely to be relevant. A conflict is resolved on the spot and
// propagation restarts from the package the learned incompatibility forces.
func (st *solverState) propagate(start Name) error {
	changed := []Name{start}
	queued := map[Name]bool{start: true}

	for len(changed) > 0 {
		pkg := changed[0]
		changed = changed[1:]
		delete(queued, pkg)
		if err := st.step(); err != nil {
			return err
		}

		ids := st.store.ForPackage(pkg)
		for i := len(ids) - 1; i >= 0; i-- {
			inc := st.store.Get(ids[i])
			derived, conflict, err := st.propagateIncompatibility(inc)
			if err != nil {
				return err
			}
			if conflict {
				learned, err := st.resolveConflict(inc)
				if err != nil {
					return err
				}
				derived, conflict, err = st.propagateIncompatibility(learned)
				if err != nil {
					return err
				}
				if conflict || derived.IsZero() {
					return fmt.Errorf("learned incompatibility %q does not propagate after backjumping", learned)
				}
				changed = append(changed[:0], derived)
				clear(queued)
				queued[derived] = true
				break
			}
			if !derived.IsZero() && !queued[derived] {
				changed = append(changed, derived)
				queued[derived] = true
			}
		}
	}
	return nil
}

// propagateIncompatibility derives the negation of the only inconclusive
// term of inc when every other term holds. It returns the package of the
// derivation, or reports a conflict when every term holds.
func (st *solverState) propagateIncompatibility(inc *Incompatibility) (Name, bool, error) {
	var unsatisfied *Term
	for i := range inc.Terms {
		switch st.partial.relation(inc.Terms[i]) {
		case RelationContradicted:
			return Name{}, false, nil
		case RelationInconclusive:
			if unsatisfied != nil {
				return Name{}, false, nil
			}
			unsatisfied = &inc.Terms[i]
		}
	}
	if unsatisfied == nil {
		return Name{}, true, nil
	}

	derived := unsatisfied.Negate()
	st.debug("derived", "term", derived, "cause", inc)
	if err := st.partial.addDerivation(derived, inc.ID); err != nil {
		return Name{}, false, fmt.Errorf("propagating %q: %w", inc, err)
	}
	return derived.Name, false, nil
}

// resolveConflict turns a violated incompatibility into one that allows
// backjumping, following the PubGrub conflict resolution rules.
//
// The conflict is repeatedly resolved against the cause of its most recent
// satisfier until that satisfier is a decision, or is the only term
// satisfied at its decision level. The partial solution is then truncated to
// the highest level among the other terms and the learned incompatibility
// is returned, already added to the store.
func (st *solverState) resolveConflict(inc *Incompatibility) (*Incompatibility, error) {
	st.debug("conflict", "incompatibility", inc)
	st.options.Metrics.observeConflict()

	isNew := false
	for !inc.IsFailure() {
		if err := st.step(); err != nil {
			return nil, err
		}

		var (
			mostRecent    *assignment
			mostRecentIdx int
			difference    Term
			hasDifference bool
			previousLevel = 1
		)
		for i, term := range inc.Terms {
			satisfier, err := st.partial.satisfier(term)
			if err != nil {
				return nil, err
			}
			switch {
			case mostRecent == nil:
				mostRecent, mostRecentIdx = satisfier, i
			case mostRecent.index < satisfier.index:
				previousLevel = max(previousLevel, mostRecent.decisionLevel)
				mostRecent, mostRecentIdx = satisfier, i
				hasDifference = false
			default:
				previousLevel = max(previousLevel, satisfier.decisionLevel)
			}

			if mostRecentIdx == i {
				// The satisfier may assert more than the term needs; the
				// excess must hold as well and may come from an earlier level.
				difference, hasDifference = mostRecent.term.Difference(term)
				if hasDifference {
					prior, err := st.partial.satisfier(difference.Negate())
					if err != nil {
						return nil, err
					}
					previousLevel = max(previousLevel, prior.decisionLevel)
				}
			}
		}

		if previousLevel < mostRecent.decisionLevel || mostRecent.isDecision() {
			if err := st.partial.backtrack(previousLevel); err != nil {
				return nil, err
			}
			if isNew {
				st.addIncompatibility(inc)
			}
			st.debug("backjumping",
				"level", previousLevel,
				"learned", inc,
				"attempts", st.partial.attempts,
			)
			return inc, nil
		}

		cause := st.store.Get(mostRecent.cause)
		terms := make([]Term, 0, len(inc.Terms)+len(cause.Terms))
		for i, t := range inc.Terms {
			if i != mostRecentIdx {
				terms = append(terms, t)
			}
		}
		for _, t := range cause.Terms {
			if t.Name != mostRecent.name() {
				terms = append(terms, t)
			}
		}
		if hasDifference {
			terms = append(terms, difference.Negate())
		}

		next := newDerivedIncompatibility(terms, inc, cause)
		st.store.record(next)
		st.debug("resolved",
			"pivot", mostRecent.name(),
			"conflict", inc,
			"cause", cause,
			"derived", next,
		)
		inc = next
		isNew = true
	}

	st.debug("root requirements are unsatisfiable", "incompatibility", inc)
	return nil, NewNoSolutionError(inc)
}

// choose picks the next package to decide and makes the decision. It
// returns the package whose state changed, or the zero Name once every
// required package is decided.
//
// The package with the fewest candidates goes first; ties keep the order in
// which packages were first mentioned.
func (st *solverState) choose(ctx context.Context) (Name, error) {
	undecided := st.partial.undecided(st.mentioned)
	if len(undecided) == 0 {
		return st.chooseAlternative(ctx)
	}

	var (
		best       Term
		bestCands  []Release
		bestReason string
		bestCount  = -1
	)
	for _, term := range undecided {
		candidates, reason, err := st.candidates(ctx, term)
		if err != nil {
			return Name{}, err
		}
		if bestCount < 0 || len(candidates) < bestCount {
			best, bestCands, bestReason, bestCount = term, candidates, reason, len(candidates)
		}
		if bestCount == 0 {
			break
		}
	}

	st.debug("selecting package",
		"package", best.Name,
		"allowed", best.Constraint,
		"candidates", bestCount,
		"pending", len(undecided),
	)
	return st.decide(ctx, best, bestCands, bestReason)
}

// chooseAlternative settles the first requirement that can still be met by
// several packages, the literal package or one of its replacers. The
// alternatives are tried in order.
func (st *solverState) chooseAlternative(ctx context.Context) (Name, error) {
	for inc := range st.store.Active() {
		open, ok := st.openTerms(inc)
		if !ok {
			continue
		}
		term := open[0].Negate()
		if acc, ok := st.partial.accumulated(term.Name); ok {
			if joined, ok := term.Intersect(acc); ok {
				term = joined
			}
		}
		candidates, reason, err := st.candidates(ctx, term)
		if err != nil {
			return Name{}, err
		}
		st.debug("selecting alternative",
			"package", term.Name,
			"allowed", term.Constraint,
			"candidates", len(candidates),
			"requirement", inc,
		)
		return st.decide(ctx, term, candidates, reason)
	}
	return Name{}, nil
}

// openTerms returns the inconclusive terms of an incompatibility that has
// all its other terms satisfied and more than one negative term left open.
func (st *solverState) openTerms(inc *Incompatibility) ([]Term, bool) {
	var open []Term
	for _, t := range inc.Terms {
		switch st.partial.relation(t) {
		case RelationContradicted:
			return nil, false
		case RelationInconclusive:
			if t.Positive {
				return nil, false
			}
			open = append(open, t)
		}
	}
	return open, len(open) >= 2
}

// decide selects the first candidate for term's package. Without candidates
// it records that no version matches instead.
func (st *solverState) decide(ctx context.Context, term Term, candidates []Release, reason string) (Name, error) {
	if err := st.step(); err != nil {
		return Name{}, err
	}

	name := term.Name
	if len(candidates) == 0 {
		st.debug("no versions match", "package", name, "constraint", term.Constraint, "reason", reason)
		st.addIncompatibility(NewNoVersionsIncompatibility(term, reason))
		return name, nil
	}

	release := candidates[0]
	incs, err := st.registerRelease(ctx, name, release)
	if err != nil {
		return Name{}, err
	}

	// A release whose own requirements are already violated is not
	// selected; propagation excludes it instead.
	for _, inc := range incs {
		if st.violatedExcept(inc, name) {
			st.debug("skipping decision", "package", name, "version", release.Version, "conflict", inc)
			return name, nil
		}
	}

	if err := st.partial.addDecision(name, release.Version); err != nil {
		return Name{}, err
	}
	st.decided[name] = release
	st.options.Metrics.observeDecision()
	st.debug("making decision",
		"package", name,
		"version", release.Version,
		"level", st.partial.decisionLevel(),
	)
	return name, nil
}

// violatedExcept reports whether every term of inc not about name holds.
func (st *solverState) violatedExcept(inc *Incompatibility, name Name) bool {
	for _, t := range inc.Terms {
		if t.Name != name && !st.partial.satisfies(t) {
			return false
		}
	}
	return true
}

// candidates returns the releases of term's package allowed by term and by
// the policy, in the order they should be tried. An empty result comes with
// a reason when something other than the term excluded every release.
func (st *solverState) candidates(ctx context.Context, term Term) ([]Release, string, error) {
	name := term.Name
	if st.options.Policy.Excluded[name] {
		return nil, "package is excluded", nil
	}

	releases, err := st.releases(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if st.notFound[name] {
		return nil, "package not found", nil
	}

	minimum := st.minimumStability(name)
	allowed := make([]Release, 0, len(releases))
	unstable := 0
	for _, r := range releases {
		if !term.Constraint.Allows(r.Version) {
			continue
		}
		if r.Version.Stability() < minimum {
			unstable++
			continue
		}
		allowed = append(allowed, r)
	}
	if len(allowed) == 0 && unstable > 0 {
		return nil, "rejected by minimum stability " + minimum.String(), nil
	}
	return st.options.Policy.order(name, allowed), "", nil
}

// minimumStability returns the lowest stability accepted for name.
func (st *solverState) minimumStability(name Name) Stability {
	if name.IsRoot() || name.IsPlatform() {
		return StabilityDev
	}
	if s, ok := st.stability[name]; ok {
		return s
	}
	return st.options.Policy.MinimumStability
}

// releases returns every release of name in ascending order, loading it
// from the source on first use.
func (st *solverState) releases(ctx context.Context, name Name) ([]Release, error) {
	if releases, ok := st.loaded[name]; ok {
		return releases, nil
	}
	if name == st.root.Name() {
		releases := []Release{st.root.release(st.options.IncludeDev)}
		st.loaded[name] = releases
		return releases, nil
	}

	fetchCtx, span := startFetchSpan(ctx, st.options.Tracer, name)
	releases, err := st.source.Releases(fetchCtx, name)
	endFetchSpan(span, len(releases), err)
	if err != nil {
		var notFound *PackageNotFoundError
		switch {
		case errors.As(err, &notFound):
			st.debug("package not found", "package", name)
			st.notFound[name] = true
			releases = nil
		case ctx.Err() != nil:
			return nil, &CancelledError{Steps: st.steps, Err: ctx.Err()}
		default:
			return nil, &SourceError{Package: name, Err: err}
		}
	}

	releases = slices.Clone(releases)
	slices.SortStableFunc(releases, func(a, b Release) int {
		return a.Version.Compare(b.Version)
	})
	st.loaded[name] = releases
	st.indexAliases(name, releases)
	return releases, nil
}

// registerRelease adds the incompatibilities declared by a release, once
// per release, and returns them.
func (st *solverState) registerRelease(ctx context.Context, name Name, release Release) ([]*Incompatibility, error) {
	key := name.Value() + "@" + release.Version.String()
	if incs, ok := st.registered[key]; ok {
		return incs, nil
	}

	if !st.indexed {
		if err := st.loadReachable(ctx, release.Requires); err != nil {
			return nil, err
		}
	}

	var incs []*Incompatibility
	version := release.Version
	for _, link := range release.Requires {
		if link.Target == name || st.ignored(link.Target) {
			continue
		}
		alternatives, tautological, err := st.alternatives(ctx, name, version, link)
		if err != nil {
			return nil, err
		}
		if tautological {
			continue
		}
		incs = append(incs, NewDependencyIncompatibility(name, version, NewTerm(link.Target, link.Constraint), alternatives...))
	}
	for _, link := range release.Conflicts {
		if link.Target == name || st.ignored(link.Target) {
			continue
		}
		incs = append(incs, NewConflictIncompatibility(name, version, NewTerm(link.Target, link.Constraint)))
	}
	for _, link := range release.Replaces {
		if link.Target == name {
			continue
		}
		incs = append(incs, NewReplaceIncompatibility(name, version, link.Target))
	}

	for _, inc := range incs {
		st.addIncompatibility(inc)
	}
	st.registered[key] = incs
	st.prefetch(ctx, release.Requires)
	return incs, nil
}

// loadReachable loads every package reachable from links through the
// requirements of any of their releases. A source without a reverse index
// only reveals a replace or provide link once the declaring package is
// loaded, and a requirement must see all of them before it is folded.
func (st *solverState) loadReachable(ctx context.Context, links []Link) error {
	var queue []Name
	enqueue := func(links []Link) {
		for _, link := range links {
			target := link.Target
			if st.reached[target] || target.IsRoot() || st.options.Policy.Excluded[target] || st.ignored(target) {
				continue
			}
			st.reached[target] = true
			queue = append(queue, target)
		}
	}

	enqueue(links)
	for len(queue) > 0 {
		layer := queue
		queue = nil
		st.prefetchNames(ctx, layer)
		for _, name := range layer {
			releases, err := st.releases(ctx, name)
			if err != nil {
				return err
			}
			for _, r := range releases {
				enqueue(r.Requires)
			}
		}
	}
	return nil
}

// ignored reports whether links to name are skipped: platform packages
// without a configured version are not checked.
func (st *solverState) ignored(name Name) bool {
	if !name.IsPlatform() || st.options.Policy.hasPlatform(name) {
		return false
	}
	st.debug("ignoring platform requirement", "package", name)
	return true
}

// prefetch asks the source to start loading the targets of links.
func (st *solverState) prefetch(ctx context.Context, links []Link) {
	names := make([]Name, 0, len(links))
	for _, link := range links {
		names = append(names, link.Target)
	}
	st.prefetchNames(ctx, names)
}

func (st *solverState) prefetchNames(ctx context.Context, names []Name) {
	if !st.options.Prefetch || len(names) == 0 {
		return
	}
	p, ok := st.source.(Prefetcher)
	if !ok {
		return
	}
	pending := make([]Name, 0, len(names))
	for _, name := range names {
		if _, loaded := st.loaded[name]; !loaded && !name.IsPlatform() {
			pending = append(pending, name)
		}
	}
	if len(pending) > 0 {
		p.Prefetch(ctx, pending...)
	}
}

// buildSolution collects the decided versions, leaving out the root and
// platform packages.
func (st *solverState) buildSolution() Solution {
	packages := make([]NameVersion, 0, len(st.partial.decisions))
	for name, version := range st.partial.decisions {
		if name.IsRoot() || name.IsPlatform() {
			continue
		}
		packages = append(packages, NameVersion{Name: name, Version: version})
	}
	slices.SortFunc(packages, func(a, b NameVersion) int {
		return a.Name.Compare(b.Name)
	})
	replaced := st.replacedBy(packages)
	return Solution{Packages: packages, Replaced: replaced, Dev: st.devOnly(packages, replaced)}
}

// devOnly marks the selected packages that only development requirements
// of the root lead to. Requirements met by a replacer lead to the replacer.
func (st *solverState) devOnly(packages []NameVersion, replaced map[Name]Name) map[Name]bool {
	if !st.options.IncludeDev || len(st.root.devRequires) == 0 {
		return nil
	}

	reached := make(map[Name]bool)
	queue := slices.Clone(st.root.requires)
	for len(queue) > 0 {
		name := queue[0].Target
		queue = queue[1:]
		if by, ok := replaced[name]; ok {
			name = by
		}
		_, selected := st.partial.decisions[name]
		if !selected || reached[name] {
			continue
		}
		reached[name] = true
		queue = append(queue, st.decided[name].Requires...)
	}

	dev := make(map[Name]bool)
	for _, nv := range packages {
		if !reached[nv.Name] {
			dev[nv.Name] = true
		}
	}
	if len(dev) == 0 {
		return nil
	}
	return dev
}
