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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartialSolutionAccumulates(t *testing.T) {
	ps := newPartialSolution()
	root := RootName("acme/app")
	foo := MakeName("acme/foo")

	require.NoError(t, ps.addDerivation(NewTerm(root, ExactConstraint(rootVersion)), 1))
	require.NoError(t, ps.addDecision(root, rootVersion))
	assert.Equal(t, 1, ps.decisionLevel())

	require.NoError(t, ps.addDerivation(pos("acme/foo", "^1.0"), 2))
	require.NoError(t, ps.addDerivation(neg("acme/foo", ">=1.8"), 3))

	acc, ok := ps.accumulated(foo)
	require.True(t, ok)
	assert.True(t, acc.Positive)
	assert.True(t, acc.SatisfiedBy(MustParseVersion("1.7.0")))
	assert.False(t, acc.SatisfiedBy(MustParseVersion("1.8.0")))

	assert.Equal(t, RelationSatisfied, ps.relation(pos("acme/foo", "^1.0")))
	assert.Equal(t, RelationSatisfied, ps.relation(neg("acme/foo", "^2.0")))
	assert.Equal(t, RelationContradicted, ps.relation(pos("acme/foo", "^2.0")))
	assert.Equal(t, RelationInconclusive, ps.relation(pos("acme/foo", ">=1.5")))
	assert.Equal(t, RelationInconclusive, ps.relation(pos("acme/bar", "*")))

	undecided := ps.undecided([]Name{root, foo, MakeName("acme/bar")})
	require.Len(t, undecided, 1)
	assert.Equal(t, foo, undecided[0].Name)
}

func TestPartialSolutionNegativeThenPositive(t *testing.T) {
	ps := newPartialSolution()
	foo := MakeName("acme/foo")

	require.NoError(t, ps.addDerivation(neg("acme/foo", "1.2.0"), 1))
	acc, ok := ps.accumulated(foo)
	require.True(t, ok)
	assert.False(t, acc.Positive)
	assert.Empty(t, ps.undecided([]Name{foo}))

	require.NoError(t, ps.addDerivation(pos("acme/foo", "^1.0"), 2))
	acc, _ = ps.accumulated(foo)
	assert.True(t, acc.Positive)
	assert.False(t, acc.SatisfiedBy(MustParseVersion("1.2.0")))
	assert.True(t, acc.SatisfiedBy(MustParseVersion("1.1.0")))
}

func TestPartialSolutionSatisfier(t *testing.T) {
	ps := newPartialSolution()
	require.NoError(t, ps.addDecision(RootName("acme/app"), rootVersion))
	require.NoError(t, ps.addDerivation(pos("acme/foo", "^1.0"), 1))
	require.NoError(t, ps.addDerivation(pos("acme/foo", ">=1.5"), 2))

	satisfier, err := ps.satisfier(pos("acme/foo", "^1.0"))
	require.NoError(t, err)
	assert.Equal(t, 1, satisfier.index)

	satisfier, err = ps.satisfier(pos("acme/foo", ">=1.5 <2.0"))
	require.NoError(t, err)
	assert.Equal(t, 2, satisfier.index)
	assert.Equal(t, IncompatibilityID(2), satisfier.cause)
	assert.False(t, satisfier.isDecision())

	_, err = ps.satisfier(pos("acme/foo", "^1.6"))
	assert.Error(t, err)
}

func TestPartialSolutionBacktrack(t *testing.T) {
	ps := newPartialSolution()
	root := RootName("acme/app")
	foo, bar := MakeName("acme/foo"), MakeName("acme/bar")

	require.NoError(t, ps.addDecision(root, rootVersion))
	require.NoError(t, ps.addDerivation(pos("acme/foo", "^1.0"), 1))
	require.NoError(t, ps.addDecision(foo, MustParseVersion("1.2.0")))
	require.NoError(t, ps.addDerivation(pos("acme/bar", "^2.0"), 2))
	require.NoError(t, ps.addDerivation(pos("acme/foo", ">=1.1"), 3))

	assert.Equal(t, 2, ps.decisionLevel())
	v, ok := ps.decision(foo)
	require.True(t, ok)
	assert.Equal(t, "1.2.0", v.String())

	require.NoError(t, ps.backtrack(1))
	assert.Equal(t, 1, ps.decisionLevel())
	_, ok = ps.decision(foo)
	assert.False(t, ok)
	_, ok = ps.accumulated(bar)
	assert.False(t, ok)

	acc, ok := ps.accumulated(foo)
	require.True(t, ok)
	assert.True(t, acc.SatisfiedBy(MustParseVersion("1.0.0")), "derivations above the level are undone")
	assert.Len(t, ps.assignments, 2)

	assert.Equal(t, 1, ps.attempts)
	require.NoError(t, ps.addDecision(foo, MustParseVersion("1.0.0")))
	assert.Equal(t, 2, ps.attempts)
}

func TestPartialSolutionRejectsContradiction(t *testing.T) {
	ps := newPartialSolution()
	foo := MakeName("acme/foo")
	require.NoError(t, ps.addDerivation(pos("acme/foo", "^1.0"), 1))

	err := ps.addDerivation(pos("acme/foo", "^2.0"), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contradicts accumulated term")
	assert.Len(t, ps.assignments, 1, "a rejected assignment is not logged")
	acc, ok := ps.accumulated(foo)
	require.True(t, ok)
	assert.True(t, acc.SatisfiedBy(MustParseVersion("1.5.0")))

	err = ps.addDecision(foo, MustParseVersion("2.1.0"))
	require.Error(t, err)
	_, decided := ps.decision(foo)
	assert.False(t, decided)
	assert.Zero(t, ps.decisionLevel())

	excluded := newPartialSolution()
	require.NoError(t, excluded.addDerivation(neg("acme/foo", "*"), 1))
	assert.Error(t, excluded.addDerivation(pos("acme/foo", "^1.0"), 2))
	assert.Empty(t, excluded.undecided([]Name{foo}))
}
