package rag

import (
	"fmt"
	"regexp"

	"github.com/tsawler/folio/internal/textutil"
	"github.com/tsawler/folio/layout"
)

// ListUpdatePolicy selects which text elements may be retyped as lists
type ListUpdatePolicy string

const (
	// ListUpdateAll checks every text element
	ListUpdateAll ListUpdatePolicy = "all"
	// ListUpdateYOLO checks only the text elements detected by YOLO
	ListUpdateYOLO ListUpdatePolicy = "yolo"
	// ListUpdateNone never retypes text elements
	ListUpdateNone ListUpdatePolicy = "none"
)

// ListStartersPolicy selects which line openings split a list into items
type ListStartersPolicy string

const (
	ListStartersAll    ListStartersPolicy = "all"
	ListStartersDash   ListStartersPolicy = "dash"
	ListStartersNumber ListStartersPolicy = "number"
	ListStartersNone   ListStartersPolicy = "none"
)

// VerticalAnchor selects where vertical paragraphs are moved within their page
type VerticalAnchor string

const (
	// VerticalAnchorTop moves them before the page's first element
	VerticalAnchorTop VerticalAnchor = "top"
	// VerticalAnchorBottom moves them after the page's last element
	VerticalAnchorBottom VerticalAnchor = "bottom"
	// VerticalAnchorInPlace moves them before the first element below them
	VerticalAnchorInPlace VerticalAnchor = "inplace"
	// VerticalAnchorNo leaves them where reading order put them
	VerticalAnchorNo VerticalAnchor = "no"
)

// WordMergePolicy selects the paragraphs whose exploded words are merged
type WordMergePolicy string

const (
	WordMergeAll      WordMergePolicy = "all"
	WordMergeVertical WordMergePolicy = "vertical"
	WordMergeNone     WordMergePolicy = "none"
)

// RemoveExtra selects the running heads that may be removed
type RemoveExtra string

const (
	RemoveExtraAll    RemoveExtra = "all"
	RemoveExtraHeader RemoveExtra = "header"
	RemoveExtraFooter RemoveExtra = "footer"
	RemoveExtraNone   RemoveExtra = "none"
)

// TableFormat selects how tables are written by the exporters
type TableFormat string

const (
	TableFormatMarkdown TableFormat = "markdown"
	TableFormatLatex    TableFormat = "latex"
	TableFormatHTML     TableFormat = "html"
)

// DefaultRemoveExtraPatterns matches bare page numbers
var DefaultRemoveExtraPatterns = []string{`^\d+$`}

// Config holds configuration options for enrichment and export
type Config struct {
	// NormalizeForm is the Unicode form applied to every word
	// Default: NFD
	NormalizeForm textutil.NormalizeForm `yaml:"normalize_form"`

	// CleanCID removes "(cid:N)" placeholders from words
	// Default: true
	CleanCID bool `yaml:"clean_cid"`

	// CleanUnreadable removes characters without a Unicode name
	// Default: true
	CleanUnreadable bool `yaml:"clean_unreadable"`

	// ListStarters are the bullet marks opening a list item
	// Default: layout.DefaultListStarters
	ListStarters []string `yaml:"list_starters"`

	// NumberStarter matches item numbers opening a list item
	// Default: layout.NumberStarterPattern
	NumberStarter string `yaml:"number_starter"`

	// ListUpdatePolicy selects the text elements that may become lists
	// Default: yolo
	ListUpdatePolicy ListUpdatePolicy `yaml:"list_update_policy"`

	// ListStartersPolicy selects the openings that split list items
	// Default: all
	ListStartersPolicy ListStartersPolicy `yaml:"list_starters_policy"`

	// VerticalAnchor places vertical paragraphs within their page
	// Default: no
	VerticalAnchor VerticalAnchor `yaml:"vertical_anchor"`

	// WordMergePolicy selects the paragraphs whose exploded words are merged
	// Default: all
	WordMergePolicy WordMergePolicy `yaml:"word_merge_policy"`

	// SplitLongWords enables splitting of words longer than MaxWordLength.
	// No dictionary splitter is bundled, so long words are only reported.
	// Default: false
	SplitLongWords bool `yaml:"split_long_words"`

	// MaxWordLength is the length over which a word is considered merged
	// Default: 30
	MaxWordLength int `yaml:"max_word_length"`

	// RemoveExtra selects the running heads removal applies to
	// Default: none
	RemoveExtra RemoveExtra `yaml:"remove_extra"`

	// RemoveExtraPatterns are the regular expressions a running head must
	// match to be removed
	// Default: DefaultRemoveExtraPatterns
	RemoveExtraPatterns []string `yaml:"remove_extra_patterns"`

	// JoinText joins text paragraphs cut by a page break
	// Default: false
	JoinText bool `yaml:"join_text"`

	// JoinList joins lists cut by a page break
	// Default: false
	JoinList bool `yaml:"join_list"`

	// JoinTable joins tables cut by a page break
	// Default: true
	JoinTable bool `yaml:"join_table"`

	// ColumnBoundariesTolerance is the share of a cell's width a column
	// boundary may move between two halves of a table
	// Default: 0.25
	ColumnBoundariesTolerance float64 `yaml:"column_boundaries_tolerance"`

	// AllowCrossPageNodes lets an element be the child of a title on an
	// earlier page
	// Default: true
	AllowCrossPageNodes bool `yaml:"allow_cross_page_nodes"`

	// MarkdownTableFormat is markdown, latex or html
	// Default: markdown
	MarkdownTableFormat TableFormat `yaml:"markdown_table_format"`

	// XMLTableFormat is html or latex
	// Default: html
	XMLTableFormat TableFormat `yaml:"xml_table_format"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		NormalizeForm:             textutil.NormalizeNFD,
		CleanCID:                  true,
		CleanUnreadable:           true,
		ListStarters:              layout.DefaultListStarters,
		NumberStarter:             layout.NumberStarterPattern.String(),
		ListUpdatePolicy:          ListUpdateYOLO,
		ListStartersPolicy:        ListStartersAll,
		VerticalAnchor:            VerticalAnchorNo,
		WordMergePolicy:           WordMergeAll,
		SplitLongWords:            false,
		MaxWordLength:             30,
		RemoveExtra:               RemoveExtraNone,
		RemoveExtraPatterns:       DefaultRemoveExtraPatterns,
		JoinText:                  false,
		JoinList:                  false,
		JoinTable:                 true,
		ColumnBoundariesTolerance: 0.25,
		AllowCrossPageNodes:       true,
		MarkdownTableFormat:       TableFormatMarkdown,
		XMLTableFormat:            TableFormatHTML,
	}
}

// Validate reports the first unknown enum value or out of range threshold
func (c Config) Validate() error {
	if _, err := textutil.ParseNormalizeForm(string(c.NormalizeForm)); err != nil {
		return err
	}
	checks := []struct {
		name  string
		value string
		allow []string
	}{
		{"list_update_policy", string(c.ListUpdatePolicy), []string{"all", "yolo", "none"}},
		{"list_starters_policy", string(c.ListStartersPolicy), []string{"all", "dash", "number", "none"}},
		{"vertical_anchor", string(c.VerticalAnchor), []string{"top", "bottom", "inplace", "no"}},
		{"word_merge_policy", string(c.WordMergePolicy), []string{"all", "vertical", "none"}},
		{"remove_extra", string(c.RemoveExtra), []string{"all", "header", "footer", "none"}},
		{"markdown_table_format", string(c.MarkdownTableFormat), []string{"markdown", "latex", "html"}},
		{"xml_table_format", string(c.XMLTableFormat), []string{"html", "latex"}},
	}
	for _, check := range checks {
		if !contains(check.allow, check.value) {
			return fmt.Errorf("rag: %s must be one of %v, got %q", check.name, check.allow, check.value)
		}
	}
	if c.ColumnBoundariesTolerance < 0 || c.ColumnBoundariesTolerance > 1 {
		return fmt.Errorf("rag: column_boundaries_tolerance must be in [0,1], got %v", c.ColumnBoundariesTolerance)
	}
	if c.MaxWordLength <= 0 {
		return fmt.Errorf("rag: max_word_length must be positive, got %d", c.MaxWordLength)
	}
	if _, err := regexp.Compile(c.NumberStarter); err != nil {
		return fmt.Errorf("rag: number_starter: %w", err)
	}
	return nil
}

// listConfig returns the list marks as used by the layout helpers
func (c Config) listConfig() layout.ListConfig {
	lc := layout.DefaultListConfig()
	if c.ListStarters != nil {
		lc.Starters = c.ListStarters
	}
	if c.NumberStarter != "" {
		if re, err := regexp.Compile(c.NumberStarter); err == nil {
			lc.NumberPattern = re
		}
	}
	return lc
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
