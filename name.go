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
	"strings"
	"unique"
)

// Name identifies a package using value interning for memory efficiency.
//
// Package names are case-insensitive (vendor/name), so MakeName lower-cases
// its input before interning. Two Names are equal exactly when their
// lower-cased strings are equal, which makes == a pointer comparison.
type Name struct {
	handle unique.Handle[string]
}

// rootPrefix marks the synthetic root package. No real package name can
// start with it because registry names never contain '$'.
const rootPrefix = "$$"

// MakeName creates an interned Name from a string.
//
// Example:
//
//	pkg1 := MakeName("Monolog/Monolog")
//	pkg2 := MakeName("monolog/monolog")
//	// pkg1 == pkg2
func MakeName(s string) Name {
	return Name{handle: unique.Make(strings.ToLower(strings.TrimSpace(s)))}
}

// RootName returns the name of the synthetic root package for a project.
func RootName(project string) Name {
	if project == "" {
		project = "root"
	}
	return Name{handle: unique.Make(rootPrefix + strings.ToLower(project))}
}

// Value returns the interned string.
func (n Name) Value() string {
	if n == (Name{}) {
		return ""
	}
	return n.handle.Value()
}

// String returns the display form. The root package is shown without its marker.
func (n Name) String() string {
	return strings.TrimPrefix(n.Value(), rootPrefix)
}

// MarshalText implements encoding.TextMarshaler, so names render as plain
// strings in JSON logs and documents.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.Value()), nil
}

// IsZero reports whether n is the zero Name.
func (n Name) IsZero() bool {
	return n == (Name{})
}

// IsRoot reports whether n names the synthetic root package.
func (n Name) IsRoot() bool {
	return strings.HasPrefix(n.Value(), rootPrefix)
}

// IsPlatform reports whether n names a platform capability (the PHP runtime,
// an extension or a system library) rather than an installable package.
func (n Name) IsPlatform() bool {
	v := n.Value()
	switch v {
	case "php", "php-64bit", "php-ipv6", "php-zts", "php-debug",
		"hhvm", "composer", "composer-plugin-api", "composer-runtime-api":
		return true
	}
	return strings.HasPrefix(v, "ext-") || strings.HasPrefix(v, "lib-")
}

// Compare orders names lexically.
func (n Name) Compare(other Name) int {
	return strings.Compare(n.Value(), other.Value())
}
