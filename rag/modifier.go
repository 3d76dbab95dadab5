package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/internal/textutil"
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/model"
)

const (
	// minExplodedRun is the run length of short words over which they are
	// considered one exploded word
	minExplodedRun = 3
	// maxExplodedLength is the longest word that can be part of an exploded
	// word
	maxExplodedLength = 3
)

// notMergedWord matches the characters a merged word cannot hold
var notMergedWord = regexp.MustCompile(`[^\pL\pN_\-']`)

// Modifier rewrites a built document: it cleans words, retypes elements and
// joins what page breaks have cut
type Modifier struct {
	config         Config
	lists          layout.ListConfig
	removePatterns []*regexp.Regexp
	logger         zerolog.Logger
}

// NewModifier creates a modifier with default configuration
func NewModifier() *Modifier {
	return NewModifierWithConfig(DefaultConfig())
}

// NewModifierWithConfig creates a modifier with custom configuration.
// Removal patterns that do not compile are logged and ignored.
func NewModifierWithConfig(config Config) *Modifier {
	m := &Modifier{
		config: config,
		lists:  config.listConfig(),
		logger: logger.WithComponent("rag"),
	}
	for _, p := range config.RemoveExtraPatterns {
		// anchored at the start only, like a prefix match
		re, err := regexp.Compile(`^(?:` + p + `)`)
		if err != nil {
			m.logger.Warn().Err(err).Str("pattern", p).Msg("ignoring invalid extra removal pattern")
			continue
		}
		m.removePatterns = append(m.removePatterns, re)
	}
	return m
}

// WithLogger replaces the modifier's logger
func (m *Modifier) WithLogger(l zerolog.Logger) *Modifier {
	m.logger = l
	return m
}

// ModifyStats counts the changes made by Apply
type ModifyStats struct {
	CIDRemoved        int `json:"cid_removed"`
	UnreadableRemoved int `json:"unreadable_removed"`
	ListsDetected     int `json:"lists_detected"`
	WordsMerged       int `json:"words_merged"`
	LongWords         int `json:"long_words"`
	ExtrasRemoved     int `json:"extras_removed"`
	TextJoined        int `json:"text_joined"`
	ListsJoined       int `json:"lists_joined"`
	TablesJoined      int `json:"tables_joined"`
}

// Apply runs every enabled pass on l, in order, and drops the elements left
// empty
func (m *Modifier) Apply(l *model.Layout) ModifyStats {
	var stats ModifyStats
	if l == nil {
		return stats
	}
	c := m.config

	if c.NormalizeForm != textutil.NormalizeNone {
		m.Normalize(l)
	}
	if c.CleanCID || c.CleanUnreadable {
		stats.CIDRemoved, stats.UnreadableRemoved = m.Clean(l)
	}
	if c.ListUpdatePolicy != ListUpdateNone {
		stats.ListsDetected = m.DetectLists(l)
	}
	if c.ListStartersPolicy != ListStartersNone {
		m.SplitListContent(l)
	}
	if c.VerticalAnchor != VerticalAnchorNo {
		m.AnchorVertical(l)
	}
	if c.WordMergePolicy != WordMergeNone {
		stats.WordsMerged = m.MergeExplodedWords(l)
	}
	if c.SplitLongWords {
		stats.LongWords = m.countLongWords(l)
	}
	layout.PromoteHeadersFooters(l)
	if c.RemoveExtra != RemoveExtraNone {
		stats.ExtrasRemoved = m.RemoveExtras(l)
	}
	if c.JoinText {
		stats.TextJoined = m.JoinText(l)
	}
	if c.JoinList {
		stats.ListsJoined = m.JoinLists(l)
	}
	if c.JoinTable {
		stats.TablesJoined = m.JoinTables(l)
	}
	l.FilterEmpty(true)

	m.logger.Debug().
		Int("lists", stats.ListsDetected).
		Int("merged_words", stats.WordsMerged).
		Int("removed_extras", stats.ExtrasRemoved).
		Int("joined", stats.TextJoined+stats.ListsJoined+stats.TablesJoined).
		Msg("layout enriched")
	return stats
}

// eachText calls fn on every string a layout carries: words, words of lines
// and paragraphs, and table cells
func eachText(l *model.Layout, fn func(string) string) {
	for _, e := range l.Elements {
		switch el := e.(type) {
		case *model.Word:
			el.Content = fn(el.Content)
		case *model.TableContent:
			for _, row := range el.Rows {
				for j := range row {
					row[j] = fn(row[j])
				}
			}
		default:
			for _, w := range model.ContentOf(e) {
				w.Content = fn(w.Content)
			}
		}
	}
}

// Normalize applies the configured Unicode form to every text of l
func (m *Modifier) Normalize(l *model.Layout) {
	form := m.config.NormalizeForm
	eachText(l, func(s string) string { return textutil.Normalize(s, form) })
}

// Clean strips CID placeholders and unreadable characters, drops the words
// left empty and returns the number of placeholders and characters removed
func (m *Modifier) Clean(l *model.Layout) (cids, unreadable int) {
	eachText(l, func(s string) string {
		if m.config.CleanCID {
			var n int
			s, n = textutil.StripCID(s)
			cids += n
		}
		if m.config.CleanUnreadable {
			var n int
			s, n = textutil.StripUnreadable(s)
			unreadable += n
		}
		return strings.TrimSpace(s)
	})
	for _, e := range l.Elements {
		switch el := e.(type) {
		case *model.Paragraph:
			el.Words = dropEmptyWords(el.Words)
		case *model.Line:
			el.Words = dropEmptyWords(el.Words)
		}
	}
	if cids > 0 || unreadable > 0 {
		m.logger.Info().Int("cid", cids).Int("unreadable", unreadable).Msg("removed unreadable content")
	}
	l.FilterEmpty(true)
	return cids, unreadable
}

func dropEmptyWords(words []*model.Word) []*model.Word {
	kept := words[:0]
	for _, w := range words {
		if strings.TrimSpace(w.Content) != "" {
			kept = append(kept, w)
		}
	}
	return kept
}

// DetectLists retypes as lists the text paragraphs, from the extractors the
// policy allows, whose lines open with more than one bullet mark or item
// number. It returns the number of retyped paragraphs.
func (m *Modifier) DetectLists(l *model.Layout) int {
	n := 0
	for i, e := range l.Elements {
		p, ok := e.(*model.Paragraph)
		if !ok || p.Kind != model.ElementTypeText {
			continue
		}
		if m.config.ListUpdatePolicy == ListUpdateYOLO && p.Metadata.Extractor != model.ExtractorYOLO {
			continue
		}
		if m.lists.LooksLikeList(p.Words) {
			l.Elements[i] = p.Retype(model.ElementTypeList)
			n++
		}
	}
	return n
}

// SplitListContent sets the item and description indexes of every list.
// Items open at bullet marks when there is more than one, else at item
// numbers; descriptions open at the text runs ending with ':'.
func (m *Modifier) SplitListContent(l *model.Layout) {
	policy := m.config.ListStartersPolicy
	for _, e := range l.Elements {
		p, ok := e.(*model.Paragraph)
		if !ok || p.Kind != model.ElementTypeList {
			continue
		}
		starts := m.lists.ClassifyLines(layout.SplitLines(p.Words))
		var items []int
		switch {
		case (policy == ListStartersAll || policy == ListStartersDash) && len(starts.Dash) > 1:
			items = starts.Dash
		case (policy == ListStartersAll || policy == ListStartersNumber) && len(starts.Number) > 1:
			items = starts.Number
		}
		p.Metadata.ItemIdx = items
		p.Metadata.DescIdx = starts.Colon
		p.Metadata.ListIndexed = true
	}
}

// AnchorVertical moves every vertical paragraph within its page according
// to the configured anchor
func (m *Modifier) AnchorVertical(l *model.Layout) {
	var vertical []*model.Paragraph
	for _, e := range l.Elements {
		if p, ok := e.(*model.Paragraph); ok && p.IsVertical() {
			vertical = append(vertical, p)
		}
	}
	for _, v := range vertical {
		from := l.Index(v)
		if from < 0 {
			continue
		}
		rest := append(append([]model.Element(nil), l.Elements[:from]...), l.Elements[from+1:]...)
		to := -1
		switch m.config.VerticalAnchor {
		case VerticalAnchorTop:
			to = firstOnPage(rest, v.Page)
		case VerticalAnchorBottom:
			if last := lastOnPage(rest, v.Page); last >= 0 {
				to = last + 1
			}
		case VerticalAnchorInPlace:
			for i, e := range rest {
				if e.PageIndex() == v.Page && e.BoundingBox().Y0 > v.Y0 {
					to = i
					break
				}
			}
		}
		if to < 0 {
			continue
		}
		l.Elements = insertAt(rest, to, v)
	}
}

func firstOnPage(elements []model.Element, page int) int {
	for i, e := range elements {
		if e.PageIndex() == page {
			return i
		}
	}
	return -1
}

func lastOnPage(elements []model.Element, page int) int {
	for i := len(elements) - 1; i >= 0; i-- {
		if elements[i].PageIndex() == page {
			return i
		}
	}
	return -1
}

func insertAt(elements []model.Element, i int, e model.Element) []model.Element {
	elements = append(elements, nil)
	copy(elements[i+1:], elements[i:])
	elements[i] = e
	return elements
}

// MergeExplodedWords joins runs of more than minExplodedRun short words,
// mostly single characters, into one word: OCR often splits spaced-out
// titles and vertical text this way. It returns the number of words built.
func (m *Modifier) MergeExplodedWords(l *model.Layout) int {
	merged := 0
	for _, e := range l.Elements {
		p, ok := e.(*model.Paragraph)
		if !ok {
			continue
		}
		if m.config.WordMergePolicy == WordMergeVertical && !p.IsVertical() {
			continue
		}
		var content, buffer []*model.Word
		flush := func() {
			if len(buffer) > minExplodedRun && singleChars(buffer) > len(buffer)/2 {
				content = append(content, mergeWords(buffer))
				merged++
			} else {
				content = append(content, buffer...)
			}
			buffer = nil
		}
		for _, w := range p.Words {
			if n := utf8.RuneCountInString(w.Content); n >= 1 && n <= maxExplodedLength {
				buffer = append(buffer, w)
				continue
			}
			flush()
			content = append(content, w)
		}
		flush()
		p.Words = content
	}
	l.FilterEmpty(true)
	return merged
}

func singleChars(words []*model.Word) int {
	n := 0
	for _, w := range words {
		if utf8.RuneCountInString(w.Content) == 1 {
			n++
		}
	}
	return n
}

// mergeWords concatenates words into one covering all of them; metadata is
// taken from the first word
func mergeWords(words []*model.Word) *model.Word {
	var sb strings.Builder
	bbox := words[0].BBox
	for _, w := range words {
		sb.WriteString(w.Content)
		bbox = bbox.Union(w.BBox)
	}
	first := words[0]
	return &model.Word{
		Base: model.Base{
			BBox:     bbox,
			Page:     first.Page,
			Metadata: first.Metadata,
		},
		Content: sb.String(),
	}
}

// countLongWords reports the words longer than MaxWordLength made only of
// letters, digits, dashes and apostrophes. They are left unchanged.
func (m *Modifier) countLongWords(l *model.Layout) int {
	n := 0
	for _, e := range l.Elements {
		p, ok := e.(*model.Paragraph)
		if !ok {
			continue
		}
		for _, w := range p.Words {
			if utf8.RuneCountInString(w.Content) > m.config.MaxWordLength && !notMergedWord.MatchString(w.Content) {
				n++
			}
		}
	}
	if n > 0 {
		m.logger.Debug().Int("count", n).Msg("long words kept: no word splitter available")
	}
	return n
}

// RemoveExtras drops the running heads targeted by the configuration whose
// text matches one of the removal patterns, and returns how many were
// dropped
func (m *Modifier) RemoveExtras(l *model.Layout) int {
	if m.config.RemoveExtra == RemoveExtraNone || len(m.removePatterns) == 0 {
		return 0
	}
	kept := make([]model.Element, 0, l.Len())
	removed := 0
	for _, e := range l.Elements {
		if p, ok := e.(*model.Paragraph); ok && m.removable(p) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.Elements = kept
	return removed
}

func (m *Modifier) removable(p *model.Paragraph) bool {
	switch m.config.RemoveExtra {
	case RemoveExtraAll:
		if !p.Kind.IsExtra() {
			return false
		}
	case RemoveExtraHeader:
		if p.Kind != model.ElementTypeHeader {
			return false
		}
	case RemoveExtraFooter:
		if p.Kind != model.ElementTypeFooter {
			return false
		}
	default:
		return false
	}
	text := p.String()
	for _, re := range m.removePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// SetImageContents replaces the content of each image whose ID is in
// transcripts with one word holding the transcript
func SetImageContents(l *model.Layout, transcripts map[string]string) {
	for _, img := range l.Images() {
		text, ok := transcripts[img.Metadata.ID]
		if !ok || text == "" {
			continue
		}
		img.Words = []*model.Word{{
			Base:    model.Base{BBox: img.BBox, Page: img.Page},
			Content: text,
		}}
	}
}
