package themes_test

import (
	"testing"

	"lumina/themes"

	"github.com/stretchr/testify/assert"
)

func TestResolveKnownTypes(t *testing.T) {
	table := themes.NewTable()

	tests := []struct {
		articleType string
		accent      string
	}{
		{articleType: "Positive News", accent: "#2E7D32"},
		{articleType: "Research Breakthrough", accent: "#1565C0"},
		{articleType: "Misinformation", accent: "#C62828"},
		{articleType: "Trending Topic", accent: "#EF6C00"},
	}

	for _, tt := range tests {
		t.Run(tt.articleType, func(t *testing.T) {
			theme := table.Resolve(tt.articleType)
			assert.Equal(t, tt.accent, theme.Accent)
			assert.NotEmpty(t, theme.Base)
			assert.NotEmpty(t, theme.Text)
			assert.NotEmpty(t, theme.TextSecondary)
		})
	}
}

func TestResolveUnknownTypesFallBack(t *testing.T) {
	table := themes.NewTable()
	fallback := table.Resolve(themes.DefaultKey)

	tests := []struct {
		name        string
		articleType string
	}{
		{name: "unknown label", articleType: "Celebrity Gossip"},
		{name: "empty string", articleType: ""},
		{name: "unexpected casing", articleType: "positive news"},
		{name: "whitespace", articleType: " Positive News "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, fallback, table.Resolve(tt.articleType))
		})
	}
}

func TestOverridesReplacePalette(t *testing.T) {
	table := themes.NewTableWithOverrides(map[string]themes.Theme{
		"Positive News": {
			Base:          "#FFFFFF",
			Accent:        "#000000",
			Text:          "#111111",
			TextSecondary: "#222222",
		},
	})

	assert.Equal(t, "#000000", table.Resolve("Positive News").Accent)
	// Untouched entries keep their built-in palette
	assert.Equal(t, "#C62828", table.Resolve("Misinformation").Accent)
}
