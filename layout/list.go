package layout

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tsawler/folio/model"
)

// DefaultListStarters are the bullet marks that open a list item
var DefaultListStarters = []string{
	"\uf071", "-", "⁃", "–", "•", "●", "·", "\uf0b7", "❏", "▪",
}

// NumberStarterPattern matches item numbers such as "1.", ".1", "1.12" or
// "1.12.1", but not a bare "1"
var NumberStarterPattern = regexp.MustCompile(`^(?:\d+\.\d*|\.\d+)(\.\d+)*$`)

// ListConfig holds the marks that open list items
type ListConfig struct {
	// Starters are the bullet prefixes of an item's first word
	// Default: DefaultListStarters
	Starters []string

	// NumberPattern matches a whole first word used as an item number
	// Default: NumberStarterPattern
	NumberPattern *regexp.Regexp
}

// DefaultListConfig returns sensible default configuration
func DefaultListConfig() ListConfig {
	return ListConfig{
		Starters:      DefaultListStarters,
		NumberPattern: NumberStarterPattern,
	}
}

// HasStarter reports whether s starts with one of the bullet marks
func (c ListConfig) HasStarter(s string) bool {
	for _, st := range c.Starters {
		if st != "" && strings.HasPrefix(s, st) {
			return true
		}
	}
	return false
}

// IsNumberStarter reports whether s is an item number
func (c ListConfig) IsNumberStarter(s string) bool {
	return c.NumberPattern != nil && c.NumberPattern.MatchString(s)
}

// WordLine is a visual line inside a paragraph's word sequence
type WordLine struct {
	First *model.Word
	Last  *model.Word
	// Start is the index of First in the paragraph's words
	Start int
}

// SplitLines cuts a word sequence into lines: a new line starts whenever a
// word begins left of its predecessor
func SplitLines(words []*model.Word) []WordLine {
	if len(words) == 0 {
		return nil
	}
	starts := []int{0}
	for i := 1; i < len(words); i++ {
		if words[i].X0 < words[i-1].X0 {
			starts = append(starts, i)
		}
	}
	lines := make([]WordLine, len(starts))
	for n, s := range starts {
		end := len(words) - 1
		if n+1 < len(starts) {
			end = starts[n+1] - 1
		}
		lines[n] = WordLine{First: words[s], Last: words[end], Start: s}
	}
	return lines
}

// LineStarts classifies the lines of a paragraph by how they open. Every
// slice holds word indexes.
type LineStarts struct {
	// Dash lists lines opening with a bullet mark
	Dash []int
	// Number lists lines opening with an item number
	Number []int
	// Upper lists lines whose first word is upper case
	Upper []int
	// Colon lists, for each line ending with ':', the first line of the
	// plain text run it closes
	Colon []int
}

// ClassifyLines returns the line openings of lines
func (c ListConfig) ClassifyLines(lines []WordLine) LineStarts {
	var starts LineStarts
	runStart := -1
	for _, line := range lines {
		first := line.First.Content
		switch {
		case c.HasStarter(first):
			starts.Dash = append(starts.Dash, line.Start)
			runStart = -1
		case c.IsNumberStarter(first):
			starts.Number = append(starts.Number, line.Start)
			runStart = -1
		case isUpper(first):
			starts.Upper = append(starts.Upper, line.Start)
			runStart = -1
		default:
			if runStart < 0 {
				runStart = line.Start
			}
			if strings.HasSuffix(line.Last.Content, ":") {
				starts.Colon = append(starts.Colon, runStart)
			}
		}
	}
	return starts
}

// LooksLikeList reports whether more than one line of words opens with a
// bullet mark or more than one with an item number
func (c ListConfig) LooksLikeList(words []*model.Word) bool {
	starts := c.ClassifyLines(SplitLines(words))
	return len(starts.Dash) > 1 || len(starts.Number) > 1
}

// isUpper reports whether s has at least one cased letter and no lower case
// letter
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}
