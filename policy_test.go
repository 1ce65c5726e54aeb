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

func TestParseResolutionMode(t *testing.T) {
	tests := []struct {
		input string
		want  ResolutionMode
		ok    bool
	}{
		{"", PreferHighest, true},
		{"highest", PreferHighest, true},
		{"lowest", PreferLowest, true},
		{"stable", PreferStable, true},
		{"newest", PreferHighest, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseResolutionMode(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, mode := range []ResolutionMode{PreferHighest, PreferLowest, PreferStable} {
		parsed, ok := ParseResolutionMode(mode.String())
		assert.True(t, ok)
		assert.Equal(t, mode, parsed)
	}
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, StabilityStable, policy.MinimumStability)
	assert.Equal(t, PreferHighest, policy.Mode)

	var zero Policy
	assert.Equal(t, StabilityDev, zero.MinimumStability, "the zero policy accepts every stability")
}

func releasesAt(versions ...string) []Release {
	out := make([]Release, len(versions))
	for i, v := range versions {
		out[i] = Release{Version: MustParseVersion(v)}
	}
	return out
}

func TestPolicyOrder(t *testing.T) {
	name := MakeName("acme/a")
	candidates := releasesAt("1.0.0-beta1", "1.0.0", "1.1.0-RC1", "1.1.0", "2.0.0-alpha1")

	tests := []struct {
		name   string
		policy Policy
		want   []string
	}{
		{
			name:   "highest",
			policy: Policy{Mode: PreferHighest},
			want:   []string{"2.0.0-alpha1", "1.1.0", "1.1.0-RC1", "1.0.0", "1.0.0-beta1"},
		},
		{
			name:   "lowest",
			policy: Policy{Mode: PreferLowest},
			want:   []string{"1.0.0-beta1", "1.0.0", "1.1.0-RC1", "1.1.0", "2.0.0-alpha1"},
		},
		{
			name:   "stable",
			policy: Policy{Mode: PreferStable},
			want:   []string{"1.1.0", "1.0.0", "1.1.0-RC1", "1.0.0-beta1", "2.0.0-alpha1"},
		},
		{
			name: "locked first",
			policy: Policy{
				Mode:   PreferHighest,
				Locked: map[Name]Version{name: MustParseVersion("1.0.0")},
			},
			want: []string{"1.0.0", "2.0.0-alpha1", "1.1.0", "1.1.0-RC1", "1.0.0-beta1"},
		},
		{
			name: "lock on a missing version",
			policy: Policy{
				Mode:   PreferLowest,
				Locked: map[Name]Version{name: MustParseVersion("3.0.0")},
			},
			want: []string{"1.0.0-beta1", "1.0.0", "1.1.0-RC1", "1.1.0", "2.0.0-alpha1"},
		},
		{
			name: "lock on another package",
			policy: Policy{
				Mode:   PreferHighest,
				Locked: map[Name]Version{MakeName("acme/b"): MustParseVersion("1.0.0")},
			},
			want: []string{"2.0.0-alpha1", "1.1.0", "1.1.0-RC1", "1.0.0", "1.0.0-beta1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, versionsOf(tt.policy.order(name, candidates)))
		})
	}

	assert.Equal(t, "1.0.0-beta1", candidates[0].Version.String(), "order leaves its input untouched")
}

func TestPolicyMinimumStabilities(t *testing.T) {
	a, b, c, d := MakeName("acme/a"), MakeName("acme/b"), MakeName("acme/c"), MakeName("acme/d")
	policy := DefaultPolicy()
	policy.StabilityFlags = map[Name]Stability{d: StabilityAlpha}

	got := policy.minimumStabilities([]Link{
		{Target: a, Constraint: MustParseConstraint("^1.0")},
		{Target: b, Constraint: MustParseConstraint("^1.0@beta")},
		{Target: c, Constraint: MustParseConstraint(">=2.0.0-RC1")},
		{Target: d, Constraint: MustParseConstraint("^1.0@beta")},
	})

	assert.Equal(t, map[Name]Stability{
		a: StabilityStable,
		b: StabilityBeta,
		c: StabilityRC,
		d: StabilityAlpha,
	}, got)
}

func TestPolicyFlagsNeverRaiseMinimum(t *testing.T) {
	a := MakeName("acme/a")
	policy := Policy{MinimumStability: StabilityBeta}
	got := policy.minimumStabilities([]Link{{Target: a, Constraint: MustParseConstraint("^1.0@stable")}})
	assert.Equal(t, StabilityBeta, got[a])
}

func TestPolicyLockedAndPlatform(t *testing.T) {
	php := MakeName("php")
	policy := Policy{
		Locked:   map[Name]Version{MakeName("acme/a"): MustParseVersion("1.2.0"), MakeName("acme/b"): {}},
		Platform: map[Name]Version{php: MustParseVersion("8.3.0")},
	}

	v, ok := policy.lockedVersion(MakeName("acme/a"))
	require.True(t, ok)
	assert.Equal(t, "1.2.0", v.String())

	_, ok = policy.lockedVersion(MakeName("acme/b"))
	assert.False(t, ok, "a zero lock is ignored")

	assert.True(t, policy.hasPlatform(php))
	assert.False(t, policy.hasPlatform(MakeName("ext-intl")))
}

func TestNewPlatformSource(t *testing.T) {
	source := NewPlatformSource(map[Name]Version{
		MakeName("php"):      MustParseVersion("8.3.0"),
		MakeName("ext-json"): MustParseVersion("8.3.0"),
	})

	releases, err := source.Releases(t.Context(), MakeName("php"))
	require.NoError(t, err)
	assert.Equal(t, []string{"8.3.0"}, versionsOf(releases))
	assert.Equal(t, []Name{MakeName("ext-json"), MakeName("php")}, source.Names())
}
