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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		constraint string
		allows     []string
		rejects    []string
	}{
		// Caret keeps the leftmost non-zero component.
		{"^1.2.3", []string{"1.2.3", "1.2.9", "1.9.0", "1.2.3-beta1"}, []string{"1.2.2", "2.0.0", "2.0.0-beta1"}},
		{"^1.2", []string{"1.2.0", "1.99.99"}, []string{"1.1.9", "2.0.0"}},
		{"^0.2.3", []string{"0.2.3", "0.2.99"}, []string{"0.2.2", "0.3.0", "1.0.0"}},
		{"^0.0.3", []string{"0.0.3"}, []string{"0.0.2", "0.0.4", "0.1.0"}},
		{"^0", []string{"0.0.1", "0.9.0"}, []string{"1.0.0"}},
		// Tilde fixes every component but the last one written.
		{"~1.2", []string{"1.2.0", "1.9.9"}, []string{"1.1.9", "2.0.0"}},
		{"~1.2.3", []string{"1.2.3", "1.2.9"}, []string{"1.2.2", "1.3.0"}},
		{"~1", []string{"1.0.0", "1.9.0"}, []string{"2.0.0"}},
		// Wildcards.
		{"*", []string{"0.0.1", "1.0.0", "99.0.0"}, []string{"dev-main"}},
		{"1.2.*", []string{"1.2.0", "1.2.99"}, []string{"1.1.9", "1.3.0"}},
		{"1.x", []string{"1.0.0", "1.99.0"}, []string{"0.9.0", "2.0.0"}},
		// Comparison operators, AND and OR.
		{">=1.0 <2.0", []string{"1.0.0", "1.9.9"}, []string{"0.9.9", "2.0.0"}},
		{">=1.0, <2.0", []string{"1.5.0"}, []string{"2.0.0"}},
		{">= 1.3.0, < 3.0.0", []string{"1.3.0", "2.4.1"}, []string{"3.0.0"}},
		{">1.0.0 <=1.5.0", []string{"1.0.1", "1.5.0"}, []string{"1.0.0", "1.5.1"}},
		{"!=1.5.0", []string{"1.4.0", "1.6.0"}, []string{"1.5.0", "dev-main"}},
		{"^1.0 || ^3.0", []string{"1.1.0", "3.2.0"}, []string{"2.0.0", "4.0.0"}},
		{"^1.0 | ^3.0", []string{"1.1.0", "3.2.0"}, []string{"2.0.0"}},
		{"1.0.0", []string{"1.0.0", "1.0"}, []string{"1.0.1"}},
		{"==1.0.0", []string{"1.0.0"}, []string{"1.0.1"}},
		// Hyphen ranges bump a partial upper bound.
		{"1.0 - 2.0", []string{"1.0.0", "2.0.9"}, []string{"2.1.0"}},
		{"1.0.0 - 2.1.3", []string{"2.1.3"}, []string{"2.1.4"}},
		// Dev branches.
		{"dev-main", []string{"dev-main"}, []string{"dev-feature", "1.0.0"}},
		{"dev-main || ^1.0", []string{"dev-main", "1.5.0"}, []string{"dev-feature"}},
		// Stability flags do not change the set.
		{"^1.0@beta", []string{"1.0.0", "1.1.0-beta1"}, []string{"2.0.0"}},
		{"@dev", []string{"1.0.0"}, []string{"dev-main"}},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c, err := ParseConstraint(tt.constraint)
			require.NoError(t, err)
			for _, v := range tt.allows {
				assert.Truef(t, c.Allows(MustParseVersion(v)), "%s should allow %s", tt.constraint, v)
			}
			for _, v := range tt.rejects {
				assert.Falsef(t, c.Allows(MustParseVersion(v)), "%s should reject %s", tt.constraint, v)
			}
		})
	}
}

func TestParseConstraintSetString(t *testing.T) {
	tests := map[string]string{
		"^1.2":         ">=1.2.0-dev <2.0.0-dev",
		"^0.2.3":       ">=0.2.3-dev <0.3.0-dev",
		"^0.0.3":       ">=0.0.3-dev <0.0.4-dev",
		"~1.2.3":       ">=1.2.3-dev <1.3.0-dev",
		"1.2.*":        ">=1.2.0-dev <1.3.0-dev",
		"1.0 - 2.0":    ">=1.0.0-dev <2.1.0-dev",
		"^1.0 || ^3.0": ">=1.0.0-dev <2.0.0-dev || >=3.0.0-dev <4.0.0-dev",
		"*":            "*",
		"dev-main":     "dev-main",
		">2.0 <1.0":    "∅",
	}
	for input, want := range tests {
		assert.Equal(t, want, MustParseConstraint(input).Set().String(), input)
	}
}

func TestParseConstraintErrors(t *testing.T) {
	for _, input := range []string{"", "   ", ">=", "^", "abc", "^dev-main", "~dev-main", ">dev-main", "1.0@nightly", "1.0 - dev-main"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseConstraint(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConstraintParse))
			assert.Equal(t, ErrorKindConstraintParse, KindOf(err))

			var parseErr *ConstraintParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, input, parseErr.Constraint)
			assert.NotEmpty(t, parseErr.Reason)
		})
	}
}

func TestParseConstraintInverted(t *testing.T) {
	c, err := ParseConstraint(">2.0 <1.0")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.False(t, c.Allows(MustParseVersion("1.5.0")))
}

func TestConstraintStability(t *testing.T) {
	flag, ok := MustParseConstraint("^1.0@beta").Stability()
	assert.True(t, ok)
	assert.Equal(t, StabilityBeta, flag)

	_, ok = MustParseConstraint("^1.0").Stability()
	assert.False(t, ok)

	flag, ok = MustParseConstraint("^1.0@RC || ^2.0@alpha").Stability()
	assert.True(t, ok)
	assert.Equal(t, StabilityAlpha, flag)

	assert.Equal(t, StabilityBeta, MustParseConstraint("1.0.0-beta1").impliedStability())
	assert.Equal(t, StabilityDev, MustParseConstraint("dev-main").impliedStability())
	assert.Equal(t, StabilityStable, MustParseConstraint(">=1.0").impliedStability())
}

func TestConstraintAlgebra(t *testing.T) {
	c1 := MustParseConstraint("^1.0")
	c2 := MustParseConstraint(">=1.5 <3.0")

	both := c1.Intersect(c2)
	assert.True(t, both.Allows(MustParseVersion("1.5.0")))
	assert.False(t, both.Allows(MustParseVersion("1.4.0")))
	assert.False(t, both.Allows(MustParseVersion("2.0.0")))
	assert.True(t, both.Equal(c2.Intersect(c1)))

	either := c1.Union(MustParseConstraint("^3.0"))
	assert.True(t, either.Allows(MustParseVersion("3.1.0")))
	assert.False(t, either.Allows(MustParseVersion("2.0.0")))

	rest := c1.Difference(c2)
	assert.True(t, rest.Allows(MustParseVersion("1.4.9")))
	assert.False(t, rest.Allows(MustParseVersion("1.5.0")))

	assert.True(t, c1.Complement().Allows(MustParseVersion("dev-main")))
	assert.True(t, c1.Complement().Complement().Equal(c1))

	assert.True(t, c1.AllowsAll(MustParseConstraint("~1.2")))
	assert.False(t, c1.AllowsAll(c2))
	assert.True(t, c1.AllowsAny(c2))
	assert.False(t, c1.AllowsAny(MustParseConstraint("^2.0")))

	assert.True(t, AnyConstraint().IsAny())
	assert.False(t, AnyConstraint().Allows(MustParseVersion("dev-main")))
	assert.True(t, everyVersion().Allows(MustParseVersion("dev-main")))
	assert.True(t, ExactConstraint(MustParseVersion("1.0.0")).Allows(MustParseVersion("1.0")))
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, "^1.0 || ^2.0", MustParseConstraint(" ^1.0 || ^2.0 ").String())
	assert.Equal(t, "*", AnyConstraint().String())
	assert.Equal(t, ">=1.0.0-dev <2.0.0-dev", NewConstraint(MustParseConstraint("^1.0").Set()).String())

	a, b := MustParseConstraint("^1.0"), MustParseConstraint(">=1.0 <2.0")
	assert.Equal(t, a.Intersect(b).String(), b.Intersect(a).String())
}

func TestParseLink(t *testing.T) {
	self := MustParseVersion("2.3.0")

	link, err := ParseLink("Psr/Log", "^1.0", self)
	require.NoError(t, err)
	assert.Equal(t, MakeName("psr/log"), link.Target)
	assert.Equal(t, "psr/log ^1.0", link.String())

	link, err = ParseLink("psr/log", "self.version", self)
	require.NoError(t, err)
	assert.True(t, link.Constraint.Allows(self))
	assert.False(t, link.Constraint.Allows(MustParseVersion("2.3.1")))

	_, err = ParseLink("", "^1.0", self)
	assert.Error(t, err)

	_, err = ParseLink("psr/log", "", self)
	assert.ErrorIs(t, err, ErrConstraintParse)
}
