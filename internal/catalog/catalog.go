package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes a security header the scanner knows about
type Definition struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Recommended  bool     `yaml:"recommended"`
	Deprecated   bool     `yaml:"deprecated"`
	ReferenceURL string   `yaml:"reference_url,omitempty"`
	GoodValues   []string `yaml:"good_values,omitempty"`
	BadValues    []string `yaml:"bad_values,omitempty"`
}

// Catalog is an immutable set of header definitions keyed by lowercase name.
// It is safe for concurrent use.
type Catalog struct {
	defs  map[string]Definition
	names []string
}

// New builds a catalog from definitions. Names are matched case-insensitively,
// so two definitions differing only in case are rejected.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("header definition with empty name")
		}
		key := strings.ToLower(name)
		if _, exists := c.defs[key]; exists {
			return nil, fmt.Errorf("duplicate header definition %q", name)
		}

		def.Name = name
		def.GoodValues = lowerAll(def.GoodValues)
		def.BadValues = lowerAll(def.BadValues)

		c.defs[key] = def
		c.names = append(c.names, name)
	}

	sort.Strings(c.names)
	return c, nil
}

// Parse builds a catalog from a YAML document of the form
//
//	headers:
//	  - name: Content-Security-Policy
//	    recommended: true
//	    bad_values: [unsafe-inline]
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Headers []Definition `yaml:"headers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(doc.Headers) == 0 {
		return nil, fmt.Errorf("catalog defines no headers")
	}
	return New(doc.Headers)
}

// Load reads a YAML catalog file from disk
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Lookup returns the definition for name, ignoring case
func (c *Catalog) Lookup(name string) (Definition, bool) {
	def, ok := c.defs[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// AllRecommended returns every recommended definition, deprecated ones included
func (c *Catalog) AllRecommended() map[string]Definition {
	recommended := make(map[string]Definition)
	for _, def := range c.defs {
		if def.Recommended {
			recommended[def.Name] = def
		}
	}
	return recommended
}

// RecommendedCount returns the number of recommended definitions
func (c *Catalog) RecommendedCount() int {
	count := 0
	for _, def := range c.defs {
		if def.Recommended {
			count++
		}
	}
	return count
}

// Names returns the canonical header names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Definitions returns all definitions sorted by name
func (c *Catalog) Definitions() []Definition {
	defs := make([]Definition, 0, len(c.names))
	for _, name := range c.names {
		defs = append(defs, c.defs[strings.ToLower(name)])
	}
	return defs
}

// Len returns the number of definitions
func (c *Catalog) Len() int {
	return len(c.defs)
}

func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
