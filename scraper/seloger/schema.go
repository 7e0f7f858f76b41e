package seloger

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v2"

	"listing-delta/models"
)

// Logical field names. The markup behind each one belongs to the listing
// site and changes without notice, so selectors live in a Schema rather than
// in code.
const (
	FieldTitle       = "title"
	FieldLink        = "link"
	FieldAddress     = "address"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldKeyfacts    = "keyfacts"
	FieldImages      = "images"
	FieldAgency      = "agency"
)

var fieldNames = []string{
	FieldTitle, FieldLink, FieldAddress, FieldDescription,
	FieldPrice, FieldKeyfacts, FieldImages, FieldAgency,
}

// FieldSpec describes how to pull one field out of a card: a selector
// relative to the card, and either the text content (Attr empty) or a named
// attribute. List fields collect every match in document order.
type FieldSpec struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
	Default  string `yaml:"default,omitempty"`
	List     bool   `yaml:"list,omitempty"`

	matcher cascadia.Selector
}

// Schema is the versioned selector table for one site layout.
type Schema struct {
	Version          string               `yaml:"version"`
	Card             string               `yaml:"card"`
	AmenitySeparator string               `yaml:"amenity_separator"`
	Fields           map[string]FieldSpec `yaml:"fields"`

	cardMatcher cascadia.Selector
}

// DefaultSchema returns the card layout of the SeLoger search results page
// as last observed.
func DefaultSchema() *Schema {
	s := &Schema{
		Version:          "serp-core-2024",
		Card:             `div[data-testid='serp-core-classified-card-testid']`,
		AmenitySeparator: " · ",
		Fields: map[string]FieldSpec{
			FieldLink: {
				Selector: `a[data-testid='card-mfe-covering-link-testid']`,
				Attr:     "href",
				Default:  models.MissingLink,
			},
			FieldTitle: {
				Selector: `a[data-testid='card-mfe-covering-link-testid']`,
				Attr:     "title",
				Default:  models.UntitledTitle,
			},
			FieldDescription: {Selector: `div[data-testid='cardmfe-description-text-test-id']`},
			FieldAddress:     {Selector: `div[data-testid='cardmfe-description-box-address']`},
			FieldPrice:       {Selector: `div[data-testid='cardmfe-price-testid']`},
			FieldKeyfacts: {
				Selector: `div[data-testid='cardmfe-keyfacts-testid'] > div`,
				List:     true,
			},
			FieldImages: {
				Selector: `div[data-testid='cardmfe-picture-box-test-id'] img`,
				Attr:     "src",
				List:     true,
			},
			FieldAgency: {Selector: `div[data-testid='cardmfe-bottom-agency-name-test-id']`},
		},
	}
	if err := s.Compile(); err != nil {
		panic(fmt.Sprintf("seloger: default schema: %v", err))
	}
	return s
}

// LoadSchema reads a YAML selector table. Fields missing from the file keep
// their default definition.
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seloger: read schema %q: %w", path, err)
	}

	override := &Schema{}
	if err := yaml.Unmarshal(raw, override); err != nil {
		return nil, fmt.Errorf("seloger: decode schema %q: %w", path, err)
	}

	s := DefaultSchema()
	if override.Version != "" {
		s.Version = override.Version
	}
	if override.Card != "" {
		s.Card = override.Card
	}
	if override.AmenitySeparator != "" {
		s.AmenitySeparator = override.AmenitySeparator
	}
	for name, spec := range override.Fields {
		if !knownField(name) {
			return nil, fmt.Errorf("seloger: schema %q: unknown field %q", path, name)
		}
		s.Fields[name] = spec
	}

	if err := s.Compile(); err != nil {
		return nil, fmt.Errorf("seloger: schema %q: %w", path, err)
	}
	return s, nil
}

// Compile validates every selector and caches the compiled matchers.
func (s *Schema) Compile() error {
	card, err := cascadia.Compile(s.Card)
	if err != nil {
		return fmt.Errorf("card selector %q: %w", s.Card, err)
	}
	s.cardMatcher = card

	for name, spec := range s.Fields {
		if spec.Selector == "" {
			return fmt.Errorf("field %q: empty selector", name)
		}
		m, err := cascadia.Compile(spec.Selector)
		if err != nil {
			return fmt.Errorf("field %q selector %q: %w", name, spec.Selector, err)
		}
		spec.matcher = m
		s.Fields[name] = spec
	}
	return nil
}

func knownField(name string) bool {
	for _, f := range fieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// Field returns the spec for name, or nil when the schema does not define it.
func (s *Schema) Field(name string) *FieldSpec {
	spec, ok := s.Fields[name]
	if !ok {
		return nil
	}
	return &spec
}
