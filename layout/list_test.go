package layout

import (
	"reflect"
	"testing"

	"github.com/tsawler/folio/model"
)

// listWords lays out one line per entry, each word 0.05 wide
func listWords(lines ...[]string) []*model.Word {
	var words []*model.Word
	for n, line := range lines {
		y := 0.1 + float64(n)*0.05
		for i, content := range line {
			x := 0.1 + float64(i)*0.06
			words = append(words, makeWord(content, x, y, x+0.05, y+0.03, 0))
		}
	}
	return words
}

// ============================================================================
// Line Splitting Tests
// ============================================================================

func TestSplitLines(t *testing.T) {
	words := listWords([]string{"-", "milk"}, []string{"-", "eggs", "and", "flour"}, []string{"done"})
	lines := SplitLines(words)

	starts := make([]int, len(lines))
	for i, l := range lines {
		starts[i] = l.Start
	}
	if !reflect.DeepEqual(starts, []int{0, 2, 6}) {
		t.Errorf("line starts = %v, want [0 2 6]", starts)
	}
	if lines[1].Last.Content != "flour" {
		t.Errorf("second line ends with %q, want flour", lines[1].Last.Content)
	}
	if SplitLines(nil) != nil {
		t.Error("no words should give no lines")
	}
}

// ============================================================================
// Line Classification Tests
// ============================================================================

func TestClassifyLines(t *testing.T) {
	words := listWords(
		[]string{"•", "first"},
		[]string{"1.", "second"},
		[]string{"NOTE", "third"},
		[]string{"plain", "text"},
		[]string{"ends", "here:"},
	)
	starts := DefaultListConfig().ClassifyLines(SplitLines(words))

	want := LineStarts{Dash: []int{0}, Number: []int{2}, Upper: []int{4}, Colon: []int{6}}
	if !reflect.DeepEqual(starts, want) {
		t.Errorf("ClassifyLines = %+v, want %+v", starts, want)
	}
}

func TestIsNumberStarter(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.", true},
		{"1", false},
		{".1", true},
		{"1.12", true},
		{"1.12.1", true},
		{"a.", false},
		{"1.a", false},
	}
	c := DefaultListConfig()
	for _, tt := range tests {
		if got := c.IsNumberStarter(tt.in); got != tt.want {
			t.Errorf("IsNumberStarter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHasStarter(t *testing.T) {
	c := DefaultListConfig()
	for _, s := range []string{"-", "•item", "▪", "\uf0b7"} {
		if !c.HasStarter(s) {
			t.Errorf("HasStarter(%q) = false, want true", s)
		}
	}
	if c.HasStarter("item") {
		t.Error(`HasStarter("item") = true, want false`)
	}
	if (ListConfig{Starters: []string{""}}).HasStarter("item") {
		t.Error("an empty starter should match nothing")
	}
}

func TestLooksLikeList(t *testing.T) {
	tests := []struct {
		name  string
		lines [][]string
		want  bool
	}{
		{"dashes", [][]string{{"-", "a"}, {"-", "b"}}, true},
		{"numbers", [][]string{{"1.", "a"}, {"2.", "b"}}, true},
		{"single item", [][]string{{"-", "a"}, {"b"}}, false},
		{"mixed marks", [][]string{{"-", "a"}, {"1.", "b"}}, false},
		{"prose", [][]string{{"Some", "text"}, {"more", "text"}}, false},
	}
	c := DefaultListConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.LooksLikeList(listWords(tt.lines...)); got != tt.want {
				t.Errorf("LooksLikeList = %v, want %v", got, tt.want)
			}
		})
	}
}
