package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/internal/textutil"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	assert.Equal(t, textutil.NormalizeNFD, c.NormalizeForm)
	assert.Equal(t, ListUpdateYOLO, c.ListUpdatePolicy)
	assert.Equal(t, VerticalAnchorNo, c.VerticalAnchor)
	assert.True(t, c.JoinTable)
	assert.False(t, c.JoinText)
	assert.False(t, c.JoinList)
	assert.Equal(t, 0.25, c.ColumnBoundariesTolerance)
	assert.Equal(t, TableFormatHTML, c.XMLTableFormat)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown normalize form", func(c *Config) { c.NormalizeForm = "NFX" }},
		{"unknown list policy", func(c *Config) { c.ListUpdatePolicy = "some" }},
		{"unknown starters policy", func(c *Config) { c.ListStartersPolicy = "bullet" }},
		{"unknown anchor", func(c *Config) { c.VerticalAnchor = "left" }},
		{"unknown merge policy", func(c *Config) { c.WordMergePolicy = "horizontal" }},
		{"unknown extra removal", func(c *Config) { c.RemoveExtra = "body" }},
		{"markdown table as csv", func(c *Config) { c.MarkdownTableFormat = "csv" }},
		{"xml table as markdown", func(c *Config) { c.XMLTableFormat = TableFormatMarkdown }},
		{"negative tolerance", func(c *Config) { c.ColumnBoundariesTolerance = -0.1 }},
		{"tolerance over one", func(c *Config) { c.ColumnBoundariesTolerance = 1.5 }},
		{"zero word length", func(c *Config) { c.MaxWordLength = 0 }},
		{"bad number pattern", func(c *Config) { c.NumberStarter = `(\d+` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfigListConfig(t *testing.T) {
	c := DefaultConfig()
	c.ListStarters = []string{"*"}
	c.NumberStarter = `^\(\d+\)$`

	lc := c.listConfig()
	assert.True(t, lc.HasStarter("*item"))
	assert.False(t, lc.HasStarter("-item"))
	assert.True(t, lc.IsNumberStarter("(3)"))
	assert.False(t, lc.IsNumberStarter("3."))
}
