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

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input     string
		str       string
		stability Stability
		branch    bool
	}{
		{"1.2.3", "1.2.3", StabilityStable, false},
		{"v1.2.3", "v1.2.3", StabilityStable, false},
		{"1.2", "1.2", StabilityStable, false},
		{"1.2.3.4", "1.2.3.4", StabilityStable, false},
		{"1.0.0-beta2", "1.0.0-beta2", StabilityBeta, false},
		{"1.0.0-RC.1", "1.0.0-RC.1", StabilityRC, false},
		{"1.0.0alpha", "1.0.0alpha", StabilityAlpha, false},
		{"1.0.0-p1", "1.0.0-p1", StabilityStable, false},
		{"2.0.0-dev", "2.0.0-dev", StabilityDev, false},
		{"1.0.x-dev", "1.0.x-dev", StabilityDev, false},
		{"1.2.3+build.7", "1.2.3+build.7", StabilityStable, false},
		{"dev-main", "dev-main", StabilityDev, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseVersion(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.str, v.String())
			assert.Equal(t, tt.stability, v.Stability())
			assert.Equal(t, tt.branch, v.IsBranch())
			assert.False(t, v.IsZero())
		})
	}
}

func TestParseVersionInvalid(t *testing.T) {
	for _, input := range []string{"", "  ", "abc", "1.2.3.4.5", "1.x", "dev-", "1.0.0+", "1.x.3-dev"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseVersion(input)
			assert.Error(t, err)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	ordered := []string{
		"dev-feature",
		"dev-main",
		"0.9.9",
		"1.0.0-dev",
		"1.0.0-alpha1",
		"1.0.0-alpha2",
		"1.0.0-beta",
		"1.0.0-RC1",
		"1.0.0",
		"1.0.0-p1",
		"1.0.1",
		"1.0.9999999.9999999-dev",
		"1.1",
		"10.0.0",
	}

	for i := range ordered {
		for j := range ordered {
			a, b := MustParseVersion(ordered[i]), MustParseVersion(ordered[j])
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equalf(t, want, a.Compare(b), "compare(%s, %s)", a, b)
		}
	}
}

func TestVersionEqualIgnoresPrecisionAndBuild(t *testing.T) {
	assert.True(t, MustParseVersion("1.0").Equal(MustParseVersion("1.0.0")))
	assert.True(t, MustParseVersion("v1.0.0").Equal(MustParseVersion("1.0.0.0")))
	assert.True(t, MustParseVersion("1.0.0+a").Equal(MustParseVersion("1.0.0+b")))
	assert.False(t, MustParseVersion("1.0.0-beta").Equal(MustParseVersion("1.0.0")))
}

func TestBranchAlias(t *testing.T) {
	alias := MustParseVersion("1.0.x-dev")
	assert.Equal(t, StabilityDev, alias.Stability())
	assert.Equal(t, 1, alias.Compare(MustParseVersion("1.0.99")))
	assert.Equal(t, -1, alias.Compare(MustParseVersion("1.1.0")))
}

func TestParseStability(t *testing.T) {
	tests := map[string]Stability{
		"dev":    StabilityDev,
		"alpha":  StabilityAlpha,
		"a":      StabilityAlpha,
		"Beta":   StabilityBeta,
		"RC":     StabilityRC,
		"stable": StabilityStable,
	}
	for input, want := range tests {
		got, ok := ParseStability(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := ParseStability("nightly")
	assert.False(t, ok)

	assert.Less(t, StabilityDev, StabilityAlpha)
	assert.Less(t, StabilityRC, StabilityStable)
	assert.Equal(t, "RC", StabilityRC.String())
}

func TestName(t *testing.T) {
	assert.Equal(t, MakeName("Monolog/Monolog"), MakeName("monolog/monolog"))
	assert.Equal(t, "monolog/monolog", MakeName(" Monolog/Monolog ").Value())

	root := RootName("acme/app")
	assert.True(t, root.IsRoot())
	assert.Equal(t, "acme/app", root.String())
	assert.Equal(t, "$$acme/app", root.Value())
	assert.Equal(t, "root", RootName("").String())
	assert.False(t, MakeName("acme/app").IsRoot())

	for _, platform := range []string{"php", "ext-json", "lib-icu", "composer-plugin-api"} {
		assert.True(t, MakeName(platform).IsPlatform(), platform)
	}
	assert.False(t, MakeName("phpunit/phpunit").IsPlatform())

	assert.True(t, Name{}.IsZero())
	assert.Equal(t, "", Name{}.Value())
	assert.Negative(t, MakeName("a/a").Compare(MakeName("b/b")))
}
