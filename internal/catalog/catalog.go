package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxColors applies when no design is selected.
const DefaultMaxColors = 3

//go:embed catalog.yaml
var defaultYAML []byte

var ErrInvalid = errors.New("invalid catalog")

// Design is a garment template a user can customize.
type Design struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	ImageURL  string `yaml:"image_url" json:"imageUrl"`
	MaxColors int    `yaml:"max_colors" json:"maxColors"`
}

// Color is a named palette entry.
type Color struct {
	Name string `yaml:"name" json:"name"`
	Hex  string `yaml:"hex" json:"hex"`
}

// Catalog holds the designs and palette. It is not mutated after Load.
type Catalog struct {
	designs []Design
	colors  []Color
}

type document struct {
	Designs []Design `yaml:"designs"`
	Colors  []Color  `yaml:"colors"`
}

var hexRegex = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields the built-in one.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if len(doc.Designs) == 0 {
		return nil, fmt.Errorf("%w: no designs", ErrInvalid)
	}
	if len(doc.Colors) == 0 {
		return nil, fmt.Errorf("%w: no colors", ErrInvalid)
	}

	seen := make(map[string]bool, len(doc.Designs))
	for i := range doc.Designs {
		d := &doc.Designs[i]
		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)
		switch {
		case d.ID == "":
			return nil, fmt.Errorf("%w: design #%d has no id", ErrInvalid, i+1)
		case seen[d.ID]:
			return nil, fmt.Errorf("%w: duplicate design id %q", ErrInvalid, d.ID)
		case d.MaxColors < 1:
			return nil, fmt.Errorf("%w: design %q max_colors must be at least 1", ErrInvalid, d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		seen[d.ID] = true
	}

	seenHex := make(map[string]bool, len(doc.Colors))
	for i := range doc.Colors {
		c := &doc.Colors[i]
		c.Hex = NormalizeHex(c.Hex)
		if !hexRegex.MatchString(c.Hex) {
			return nil, fmt.Errorf("%w: color %q has bad hex %q", ErrInvalid, c.Name, c.Hex)
		}
		if seenHex[c.Hex] {
			return nil, fmt.Errorf("%w: duplicate color %s", ErrInvalid, c.Hex)
		}
		seenHex[c.Hex] = true
	}

	return &Catalog{designs: doc.Designs, colors: doc.Colors}, nil
}

func (c *Catalog) Designs() []Design {
	out := make([]Design, len(c.designs))
	copy(out, c.designs)
	return out
}

func (c *Catalog) Colors() []Color {
	out := make([]Color, len(c.colors))
	copy(out, c.colors)
	return out
}

func (c *Catalog) FindDesign(id string) (Design, bool) {
	id = strings.TrimSpace(id)
	for _, d := range c.designs {
		if d.ID == id {
			return d, true
		}
	}
	return Design{}, false
}

func (c *Catalog) FindColor(hex string) (Color, bool) {
	hex = NormalizeHex(hex)
	for _, col := range c.colors {
		if col.Hex == hex {
			return col, true
		}
	}
	return Color{}, false
}

// ColorNames maps hex codes to palette names, skipping unknown codes.
func (c *Catalog) ColorNames(hexes []string) []string {
	out := make([]string, 0, len(hexes))
	for _, h := range hexes {
		if col, ok := c.FindColor(h); ok {
			out = append(out, col.Name)
		}
	}
	return out
}

// NormalizeHex upper-cases a color code and adds the leading '#'.
func NormalizeHex(hex string) string {
	hex = strings.ToUpper(strings.TrimSpace(hex))
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return hex
}
