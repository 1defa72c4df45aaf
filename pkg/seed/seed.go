// Package seed reads a YAML catalog of units, versions and includes and
// imports it through the registry, so every include is validated.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
)

// File is a seed document
type File struct {
	Tags     []TagSpec     `yaml:"tags"`
	Units    []UnitSpec    `yaml:"units"`
	Includes []IncludeSpec `yaml:"includes"`
}

// TagSpec declares a tag
type TagSpec struct {
	Name  string `yaml:"name"`
	Color int    `yaml:"color"`
}

// UnitSpec declares a unit and its versions
type UnitSpec struct {
	Name          string   `yaml:"name"`
	TechnicalName string   `yaml:"technical_name"`
	Kind          string   `yaml:"kind"`
	Active        *bool    `yaml:"active"`
	Tags          []string `yaml:"tags"`
	Versions      []string `yaml:"versions"`
}

// Ref names a version by unit name and version string
type Ref struct {
	Unit    string `yaml:"unit"`
	Version string `yaml:"version"`
}

func (r Ref) trimmed() Ref {
	return Ref{Unit: strings.TrimSpace(r.Unit), Version: strings.TrimSpace(r.Version)}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s (%s)", r.Unit, r.Version)
}

// IncludeSpec declares an includes edge
type IncludeSpec struct {
	From Ref `yaml:"from"`
	To   Ref `yaml:"to"`
}

// Load decodes a seed document and checks that it is self-consistent.
// Unknown keys are rejected.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and decodes a seed file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	f, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks names, kinds, duplicates and that every include refers to
// a declared version. It does not check the graph itself.
func (f *File) Validate() error {
	tags := make(map[string]bool, len(f.Tags))
	for i, t := range f.Tags {
		tag := catalog.Tag{Name: t.Name, Color: t.Color}
		if err := tag.Validate(); err != nil {
			return fmt.Errorf("tags[%d]: %w", i, err)
		}
		if tags[tag.Name] {
			return fmt.Errorf("tags[%d]: tag %q declared twice: %w", i, tag.Name, catalog.ErrDuplicate)
		}
		tags[tag.Name] = true
		f.Tags[i].Name = tag.Name
	}

	versions := make(map[Ref]bool)
	units := make(map[string]bool, len(f.Units))
	for i := range f.Units {
		u := &f.Units[i]
		u.Name = strings.TrimSpace(u.Name)
		unit := catalog.Unit{Name: u.Name, Kind: catalog.UnitKind(u.Kind)}
		if err := unit.Validate(); err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
		if units[u.Name] {
			return fmt.Errorf("units[%d]: unit %q declared twice: %w", i, u.Name, catalog.ErrDuplicate)
		}
		units[u.Name] = true

		for _, name := range u.Tags {
			if !tags[name] {
				return fmt.Errorf("units[%d]: unknown tag %q: %w", i, name, catalog.ErrInvalid)
			}
		}
		for j, raw := range u.Versions {
			ref := Ref{Unit: u.Name, Version: strings.TrimSpace(raw)}
			if ref.Version == "" {
				return fmt.Errorf("units[%d].versions[%d]: %w: version is required", i, j, catalog.ErrInvalid)
			}
			if versions[ref] {
				return fmt.Errorf("units[%d]: version %s declared twice: %w", i, ref, catalog.ErrDuplicate)
			}
			versions[ref] = true
			u.Versions[j] = ref.Version
		}
	}

	for i := range f.Includes {
		inc := &f.Includes[i]
		inc.From, inc.To = inc.From.trimmed(), inc.To.trimmed()
		if !versions[inc.From] {
			return fmt.Errorf("includes[%d]: unknown version %s: %w", i, inc.From, catalog.ErrInvalid)
		}
		if !versions[inc.To] {
			return fmt.Errorf("includes[%d]: unknown version %s: %w", i, inc.To, catalog.ErrInvalid)
		}
	}
	return nil
}
