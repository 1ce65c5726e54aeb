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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Repository and manifest documents describe packages and projects in YAML,
// using Composer's field names:
//
//	packages:
//	  acme/logger:
//	    - version: 2.1.0
//	      require:
//	        psr/log: ^1.0 || ^2.0
//	      provide:
//	        psr/log-implementation: 1.0.0
//
//	name: acme/app
//	require:
//	  acme/logger: ^2.0
//	require-dev:
//	  acme/phpunit: ^10.0
//	minimum-stability: beta
//	prefer: lowest
//	platform:
//	  php: 8.3.0

type repositoryDocument struct {
	Packages map[string][]releaseDocument `yaml:"packages"`
}

type releaseDocument struct {
	Version  string    `yaml:"version"`
	Require  linkNodes `yaml:"require"`
	Conflict linkNodes `yaml:"conflict"`
	Replace  linkNodes `yaml:"replace"`
	Provide  linkNodes `yaml:"provide"`
}

type manifestDocument struct {
	Name             string            `yaml:"name"`
	Require          linkNodes         `yaml:"require"`
	RequireDev       linkNodes         `yaml:"require-dev"`
	Conflict         linkNodes         `yaml:"conflict"`
	MinimumStability string            `yaml:"minimum-stability"`
	Prefer           string            `yaml:"prefer"`
	Locked           map[string]string `yaml:"locked"`
	Exclude          []string          `yaml:"exclude"`
	Platform         map[string]string `yaml:"platform"`
}

// linkNode is one "package: constraint" pair of a link mapping.
type linkNode struct {
	target     string
	constraint string
}

// linkNodes keeps the document order of a link mapping, which decides the
// order requirements are considered in.
type linkNodes []linkNode

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *linkNodes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of package names to constraints", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: constraint of %s must be a string", val.Line, key.Value)
		}
		*l = append(*l, linkNode{target: key.Value, constraint: val.Value})
	}
	return nil
}

func (l linkNodes) links(self Version) ([]Link, error) {
	out := make([]Link, 0, len(l))
	for _, n := range l {
		link, err := ParseLink(n.target, n.constraint, self)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.target, err)
		}
		out = append(out, link)
	}
	return out, nil
}

// LoadRepository reads a YAML repository document into an InMemorySource.
func LoadRepository(r io.Reader) (*InMemorySource, error) {
	var doc repositoryDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding repository: %w", err)
	}

	source := &InMemorySource{}
	for pkg, releases := range doc.Packages {
		name := MakeName(pkg)
		for _, rd := range releases {
			release, err := rd.release(name)
			if err != nil {
				return nil, err
			}
			source.AddRelease(name, release)
		}
	}
	return source, nil
}

// LoadRepositoryFile reads a YAML repository document from path.
func LoadRepositoryFile(path string) (*InMemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRepository(f)
}

func (rd releaseDocument) release(name Name) (Release, error) {
	version, err := ParseVersion(rd.Version)
	if err != nil {
		return Release{}, &VersionError{Package: name, Message: err.Error()}
	}

	release := Release{Version: version}
	for _, field := range []struct {
		kind  string
		nodes linkNodes
		dst   *[]Link
	}{
		{"require", rd.Require, &release.Requires},
		{"conflict", rd.Conflict, &release.Conflicts},
		{"replace", rd.Replace, &release.Replaces},
		{"provide", rd.Provide, &release.Provides},
	} {
		links, err := field.nodes.links(version)
		if err != nil {
			return Release{}, fmt.Errorf("%s %s %s: %w", name, version, field.kind, err)
		}
		*field.dst = links
	}
	return release, nil
}

// Manifest is a parsed project document: the root requirements and the
// policy to resolve them with.
type Manifest struct {
	Root   *RootSource
	Policy Policy
}

// LoadManifest reads a YAML project document.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var doc manifestDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	root := NewRootSource(doc.Name)
	for _, n := range doc.Require {
		if err := root.Require(n.target, n.constraint); err != nil {
			return nil, fmt.Errorf("require %s: %w", n.target, err)
		}
	}
	for _, n := range doc.RequireDev {
		if err := root.RequireDev(n.target, n.constraint); err != nil {
			return nil, fmt.Errorf("require-dev %s: %w", n.target, err)
		}
	}
	for _, n := range doc.Conflict {
		if err := root.Conflict(n.target, n.constraint); err != nil {
			return nil, fmt.Errorf("conflict %s: %w", n.target, err)
		}
	}

	policy := DefaultPolicy()
	if doc.MinimumStability != "" {
		s, ok := ParseStability(doc.MinimumStability)
		if !ok {
			return nil, fmt.Errorf("unknown minimum-stability %q", doc.MinimumStability)
		}
		policy.MinimumStability = s
	}
	mode, ok := ParseResolutionMode(doc.Prefer)
	if !ok {
		return nil, fmt.Errorf("unknown prefer mode %q", doc.Prefer)
	}
	policy.Mode = mode

	var err error
	if policy.Locked, err = parseVersionMap(doc.Locked); err != nil {
		return nil, fmt.Errorf("locked: %w", err)
	}
	if policy.Platform, err = parseVersionMap(doc.Platform); err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}
	if len(doc.Exclude) > 0 {
		policy.Excluded = make(map[Name]bool, len(doc.Exclude))
		for _, pkg := range doc.Exclude {
			policy.Excluded[MakeName(pkg)] = true
		}
	}

	return &Manifest{Root: root, Policy: policy}, nil
}

// LoadManifestFile reads a YAML project document from path.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadManifest(f)
}

func parseVersionMap(raw map[string]string) (map[Name]Version, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[Name]Version, len(raw))
	for pkg, text := range raw {
		v, err := ParseVersion(text)
		if err != nil {
			return nil, &VersionError{Package: MakeName(pkg), Message: err.Error()}
		}
		out[MakeName(pkg)] = v
	}
	return out, nil
}
