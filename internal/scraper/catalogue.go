package scraper

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind says how a matched value is parsed.
type Kind string

const (
	KindInt   Kind = "int"
	KindMoney Kind = "money"
	KindDate  Kind = "date"
	KindText  Kind = "text"
)

type Field struct {
	Name   string   `yaml:"name"`
	Kind   Kind     `yaml:"kind"`
	Labels []string `yaml:"labels"`
}

type Catalogue struct {
	Fields []Field `yaml:"fields"`
}

//go:embed fields.yaml
var defaultCatalogue []byte

// DefaultCatalogue is the built-in label set.
func DefaultCatalogue() (*Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// LoadCatalogue reads a YAML catalogue from path, or the built-in one when
// path is empty.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return DefaultCatalogue()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return ParseCatalogue(b)
}

func ParseCatalogue(b []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if len(c.Fields) == 0 {
		return nil, fmt.Errorf("catalogue has no fields")
	}
	seen := map[string]bool{}
	for i, f := range c.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("field %q: defined twice", f.Name)
		}
		seen[f.Name] = true
		switch f.Kind {
		case KindInt, KindMoney, KindDate, KindText:
		case "":
			c.Fields[i].Kind = KindText
		default:
			return nil, fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
		if len(f.Labels) == 0 {
			return nil, fmt.Errorf("field %q: at least one label is required", f.Name)
		}
	}
	return &c, nil
}
