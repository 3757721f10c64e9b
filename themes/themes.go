// Package themes maps article types to the fixed presentation palettes
// used by the reader apps. The table is read-only after startup.
package themes

// Theme is a four-color palette keyed by article type
type Theme struct {
	Base          string `json:"base"`
	Accent        string `json:"accent"`
	Text          string `json:"text"`
	TextSecondary string `json:"textSecondary"`
}

// DefaultKey is the entry every unknown article type resolves to
const DefaultKey = "Trending Topic"

var defaults = map[string]Theme{
	"Positive News": {
		Base:          "#E8F5E9",
		Accent:        "#2E7D32",
		Text:          "#1B5E20",
		TextSecondary: "#66BB6A",
	},
	"Research Breakthrough": {
		Base:          "#E3F2FD",
		Accent:        "#1565C0",
		Text:          "#0D47A1",
		TextSecondary: "#64B5F6",
	},
	"Misinformation": {
		Base:          "#FFEBEE",
		Accent:        "#C62828",
		Text:          "#B71C1C",
		TextSecondary: "#E57373",
	},
	DefaultKey: {
		Base:          "#FFF3E0",
		Accent:        "#EF6C00",
		Text:          "#E65100",
		TextSecondary: "#FFB74D",
	},
}

// Table holds the resolved palettes. Build it once at startup and treat
// it as immutable; lookups are safe from any number of goroutines.
type Table struct {
	themes map[string]Theme
}

// NewTable returns the built-in palette table
func NewTable() *Table {
	return NewTableWithOverrides(nil)
}

// NewTableWithOverrides merges per-type palette overrides from the
// config file onto the built-in table
func NewTableWithOverrides(overrides map[string]Theme) *Table {
	themes := make(map[string]Theme, len(defaults)+len(overrides))
	for key, theme := range defaults {
		themes[key] = theme
	}
	for key, theme := range overrides {
		themes[key] = theme
	}
	return &Table{themes: themes}
}

// Resolve looks up the palette for an article type. Lookup is an exact
// string match; any unknown or empty type resolves to the default entry,
// so the result is always a defined palette.
func (t *Table) Resolve(articleType string) Theme {
	if theme, ok := t.themes[articleType]; ok {
		return theme
	}
	return t.themes[DefaultKey]
}
