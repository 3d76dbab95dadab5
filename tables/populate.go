package tables

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// PopulateConfig holds configuration for table population
type PopulateConfig struct {
	// WordInTable is the fraction of a word's area that must lie within a
	// table, then within a cell, for the word to belong to it
	// Default: 0.5
	WordInTable float64 `yaml:"word_in_table"`
}

// DefaultPopulateConfig returns sensible default configuration
func DefaultPopulateConfig() PopulateConfig {
	return PopulateConfig{WordInTable: 0.5}
}

// Populator fills detected tables with OCR words
type Populator struct {
	config PopulateConfig
	log    zerolog.Logger
}

// NewPopulator creates a table populator with default configuration
func NewPopulator() *Populator {
	return NewPopulatorWithConfig(DefaultPopulateConfig())
}

// NewPopulatorWithConfig creates a table populator with custom configuration
func NewPopulatorWithConfig(config PopulateConfig) *Populator {
	return &Populator{
		config: config,
		log:    logger.WithComponent("tables"),
	}
}

// WithLogger replaces the populator's logger
func (p *Populator) WithLogger(l zerolog.Logger) *Populator {
	p.log = l
	return p
}

// Populate replaces every detected table of l with a TableContent holding
// the text of the OCR words inside it. ocr holds words or lines. Words used
// by a table are removed from ocr so they cannot land in a paragraph too.
// Tables without cells get a grid inferred from the gaps between their
// words.
func (p *Populator) Populate(ocr *model.Layout, l *model.Layout) *model.Layout {
	pageCount := l.PageCount()
	if n := ocr.PageCount(); n > pageCount {
		pageCount = n
	}

	popped := make(map[*model.Word]bool)
	populated := 0
	for page := 0; page < pageCount; page++ {
		ocrPage := ocr.ElementsByPage(page, false)
		for _, e := range l.ElementsByPage(page, false) {
			t, ok := e.(*model.Table)
			if !ok {
				continue
			}
			var words []*model.Word
			for _, w := range pageWords(ocrPage) {
				if !popped[w] && model.IsBBoxWithin(w.BBox, t.BBox, p.config.WordInTable) {
					words = append(words, w)
					popped[w] = true
				}
			}
			if len(t.Cells) == 0 {
				BuildCells(t, words)
			}
			l.Replace(t, p.tableContent(t, words))
			populated++
		}
	}

	removeWords(ocr, popped)
	if populated > 0 {
		p.log.Debug().Int("count", populated).Int("words", len(popped)).Msg("tables populated")
	}
	return l
}

// tableContent fills the cells of t in grid order. A new row starts at each
// cell that is not a copy of the previous one and does not end right of it.
// A trailing row with no text is dropped.
func (p *Populator) tableContent(t *model.Table, words []*model.Word) *model.TableContent {
	tc := &model.TableContent{Table: *t, Rows: [][]string{}}
	var row []string
	for n, cell := range t.Cells {
		if n > 0 {
			prev := t.Cells[n-1]
			if !cell.SameAs(prev) && cell.X1 <= prev.X1 {
				tc.Rows = append(tc.Rows, row)
				row = nil
			}
		}
		row = append(row, p.cellText(cell, words))
	}
	for _, text := range row {
		if text != "" {
			tc.Rows = append(tc.Rows, row)
			break
		}
	}
	return tc
}

func (p *Populator) cellText(cell model.Cell, words []*model.Word) string {
	var parts []string
	for _, w := range words {
		if model.IsBBoxWithin(w.BBox, cell.BBox, p.config.WordInTable) {
			parts = append(parts, strings.Trim(w.Content, " "))
		}
	}
	return strings.Join(parts, " ")
}

// pageWords returns the words of a page of words or lines, in order
func pageWords(elements []model.Element) []*model.Word {
	var words []*model.Word
	for _, e := range elements {
		switch el := e.(type) {
		case *model.Word:
			words = append(words, el)
		case *model.Line:
			words = append(words, el.Words...)
		}
	}
	return words
}

// removeWords drops the popped words from a layout of words or lines
func removeWords(ocr *model.Layout, popped map[*model.Word]bool) {
	if len(popped) == 0 {
		return
	}
	kept := ocr.Elements[:0]
	for _, e := range ocr.Elements {
		switch el := e.(type) {
		case *model.Word:
			if popped[el] {
				continue
			}
		case *model.Line:
			words := el.Words[:0]
			for _, w := range el.Words {
				if !popped[w] {
					words = append(words, w)
				}
			}
			el.Words = words
		}
		kept = append(kept, e)
	}
	ocr.Elements = kept
}
