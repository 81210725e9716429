// Package index reads chart repository index documents (index.yaml)
package index

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry describes one chart version in the index
type Entry struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	URLs        []string `yaml:"urls"`
	Digest      string   `yaml:"digest,omitempty"`
	Created     string   `yaml:"created,omitempty"`
}

// Index is a repository index document
type Index struct {
	APIVersion string             `yaml:"apiVersion"`
	Entries    map[string][]Entry `yaml:"entries"`
	Generated  string             `yaml:"generated,omitempty"`
}

// Load reads and validates an index document from disk
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Parse decodes and validates an index document
func Parse(data []byte) (*Index, error) {
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("invalid index document: %w", err)
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string][]Entry)
	}
	return &idx, nil
}

// Validate checks the fields every index document carries
func (i *Index) Validate() error {
	if i.APIVersion == "" {
		return errors.New("invalid index document: no apiVersion")
	}
	for name, versions := range i.Entries {
		for _, e := range versions {
			if e.Version == "" {
				return fmt.Errorf("invalid index document: entry for %s has no version", name)
			}
		}
	}
	return nil
}

// Len returns the number of chart versions in the index
func (i *Index) Len() int {
	n := 0
	for _, versions := range i.Entries {
		n += len(versions)
	}
	return n
}

// Charts returns the chart names in the index, sorted
func (i *Index) Charts() []string {
	names := make([]string, 0, len(i.Entries))
	for name := range i.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindByFilename returns the entry whose download URL points at filename
func (i *Index) FindByFilename(filename string) (*Entry, bool) {
	for _, versions := range i.Entries {
		for k := range versions {
			for _, u := range versions[k].URLs {
				if u == filename || strings.HasSuffix(u, "/"+filename) {
					return &versions[k], true
				}
			}
		}
	}
	return nil, false
}
