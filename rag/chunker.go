package rag

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/model"
)

// ChunkLevel represents how a chunk was cut
type ChunkLevel int

const (
	// ChunkLevelSection is a chunk opened by a title
	ChunkLevelSection ChunkLevel = iota
	// ChunkLevelParagraph is a chunk opened by any other split point
	ChunkLevelParagraph
	// ChunkLevelSentence is a piece of an oversized chunk cut at sentences
	ChunkLevelSentence
)

// String returns a human-readable representation of the chunk level
func (cl ChunkLevel) String() string {
	switch cl {
	case ChunkLevelSection:
		return "section"
	case ChunkLevelParagraph:
		return "paragraph"
	case ChunkLevelSentence:
		return "sentence"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name
func (cl ChunkLevel) MarshalText() ([]byte, error) {
	return []byte(cl.String()), nil
}

// PageBox locates part of a chunk
type PageBox struct {
	Page int        `json:"page"`
	BBox [4]float64 `json:"bbox"`
}

// ChunkMetadata locates a chunk in the document
type ChunkMetadata struct {
	// SectionPath is the path of titles above the chunk, outermost first
	SectionPath []string `json:"section_path,omitempty"`

	// SectionTitle is the innermost title (last element of SectionPath)
	SectionTitle string `json:"section_title,omitempty"`

	// SectionAnchor is the URL-safe anchor of SectionTitle
	SectionAnchor string `json:"section_anchor,omitempty"`

	// SplitCandidate is the rank of the element opening the chunk
	SplitCandidate int `json:"split_candidate"`

	// PageStart and PageEnd are the first and last page indices covered
	PageStart int `json:"page_start"`
	PageEnd   int `json:"page_end"`

	// Boxes are the boxes of every element in the chunk
	Boxes []PageBox `json:"boxes,omitempty"`

	ChunkIndex  int        `json:"chunk_index"`
	TotalChunks int        `json:"total_chunks,omitempty"`
	Level       ChunkLevel `json:"level"`

	ElementTypes []string `json:"element_types,omitempty"`
	HasTable     bool     `json:"has_table,omitempty"`
	HasList      bool     `json:"has_list,omitempty"`
	HasImage     bool     `json:"has_image,omitempty"`

	CharCount       int `json:"char_count"`
	WordCount       int `json:"word_count"`
	EstimatedTokens int `json:"estimated_tokens"`
}

// Chunk is a piece of an enriched document sized for retrieval
type Chunk struct {
	ID string `json:"id"`
	// Text is the Markdown of the chunk's elements
	Text string `json:"text"`
	// TextWithContext prepends the section title to Text
	TextWithContext string        `json:"text_with_context,omitempty"`
	Metadata        ChunkMetadata `json:"metadata"`
}

// NewChunk creates a chunk and fills in its text statistics
func NewChunk(id, text string, metadata ChunkMetadata) *Chunk {
	metadata.CharCount = len(text)
	metadata.WordCount = countWords(text)
	metadata.EstimatedTokens = len(text) / 4

	c := &Chunk{ID: id, Text: text, Metadata: metadata}
	c.TextWithContext = c.contextualText()
	return c
}

func (c *Chunk) contextualText() string {
	if c.Metadata.SectionTitle == "" {
		return c.Text
	}
	return fmt.Sprintf("[%s]\n\n%s", c.Metadata.SectionTitle, c.Text)
}

// SectionPathString returns the section path joined with " > "
func (c *Chunk) SectionPathString() string {
	return strings.Join(c.Metadata.SectionPath, " > ")
}

// ChunkerConfig holds configuration options for the chunker
type ChunkerConfig struct {
	// SplitLevel is the weakest split candidate that opens a new chunk
	// Default: 3 (page breaks and the three outer title levels)
	SplitLevel int `yaml:"split_level"`

	// MaxChunkSize is the size in characters over which a chunk is cut at
	// sentence boundaries; 0 disables the limit
	// Default: 2000
	MaxChunkSize int `yaml:"max_chunk_size"`

	// IncludeSectionContext fills TextWithContext
	// Default: true
	IncludeSectionContext bool `yaml:"include_section_context"`

	// IDPrefix is the prefix of generated chunk IDs
	// Default: "chunk"
	IDPrefix string `yaml:"id_prefix"`
}

// DefaultChunkerConfig returns sensible default configuration
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		SplitLevel:            3,
		MaxChunkSize:          2000,
		IncludeSectionContext: true,
		IDPrefix:              "chunk",
	}
}

// Chunker cuts an enriched layout at its split candidates
type Chunker struct {
	config   ChunkerConfig
	exporter *Exporter
	logger   zerolog.Logger
}

// NewChunker creates a chunker with default configuration
func NewChunker() *Chunker {
	return NewChunkerWithConfig(DefaultChunkerConfig(), DefaultConfig())
}

// NewChunkerWithConfig creates a chunker with custom configuration; rag
// configures the hierarchy and the Markdown of chunk texts
func NewChunkerWithConfig(config ChunkerConfig, rag Config) *Chunker {
	return &Chunker{
		config:   config,
		exporter: NewExporterWithConfig(rag),
		logger:   logger.WithComponent("rag"),
	}
}

// WithLogger replaces the chunker's logger
func (c *Chunker) WithLogger(l zerolog.Logger) *Chunker {
	c.logger = l
	c.exporter.WithLogger(l)
	return c
}

// ChunkResult contains the chunking output
type ChunkResult struct {
	Chunks []*Chunk
	Stats  ChunkStats
}

// ChunkStats contains statistics about the chunking process
type ChunkStats struct {
	TotalChunks     int
	TotalCharacters int
	TotalWords      int
	TotalTokensEst  int
	AvgChunkSize    int
	MinChunkSize    int
	MaxChunkSize    int
	SectionChunks   int
	ParagraphChunks int
	SentenceChunks  int
}

// pendingChunk gathers the nodes of a chunk under construction
type pendingChunk struct {
	positions []int
	path      []string
	sc        int
	opener    model.ElementType
}

// Chunk walks the hierarchy of l in document order and starts a new chunk
// at every node whose split candidate is at most SplitLevel. Titles open
// sections: their text is pushed on the section path while their subtree
// is walked.
func (c *Chunker) Chunk(l *model.Layout) (*ChunkResult, error) {
	if l == nil {
		return nil, fmt.Errorf("layout is nil")
	}
	tree := BuildTree(l, c.exporter.config.AllowCrossPageNodes)

	var (
		pending []pendingChunk
		cur     *pendingChunk
		titles  []string
	)
	enter := func(pos int) error {
		e := tree.Elements[pos]
		if e.Type() == model.ElementTypeTitle {
			if p, ok := e.(*model.Paragraph); ok {
				titles = append(titles, p.String())
			}
		}
		sc := tree.SplitCandidate[pos]
		if cur == nil || sc <= c.config.SplitLevel {
			pending = append(pending, pendingChunk{
				path:   append([]string(nil), titles...),
				sc:     sc,
				opener: e.Type(),
			})
			cur = &pending[len(pending)-1]
		}
		cur.positions = append(cur.positions, pos)
		return nil
	}
	leave := func(pos int) error {
		if tree.Elements[pos].Type() == model.ElementTypeTitle && len(titles) > 0 {
			titles = titles[:len(titles)-1]
		}
		return nil
	}
	if err := tree.Walk(enter, leave); err != nil {
		return nil, err
	}

	result := &ChunkResult{}
	for _, p := range pending {
		result.Chunks = append(result.Chunks, c.build(tree, p, len(result.Chunks))...)
	}
	for _, ch := range result.Chunks {
		ch.Metadata.TotalChunks = len(result.Chunks)
	}
	result.Stats = c.calculateStats(result.Chunks)

	c.logger.Debug().Int("chunks", len(result.Chunks)).Int("split_level", c.config.SplitLevel).Msg("layout chunked")
	return result, nil
}

// build turns a pending chunk into one chunk, or several when its text is
// over MaxChunkSize
func (c *Chunker) build(tree *Tree, p pendingChunk, index int) []*Chunk {
	if len(p.positions) == 0 {
		// walk always records the opening node
		return nil
	}
	var (
		elements []model.Element
		types    []string
		seen     = make(map[string]bool)
		meta     ChunkMetadata
	)
	meta.SectionPath = p.path
	if len(p.path) > 0 {
		meta.SectionTitle = p.path[len(p.path)-1]
		meta.SectionAnchor = layout.AnchorID(meta.SectionTitle)
	}
	meta.SplitCandidate = p.sc
	meta.Level = ChunkLevelParagraph
	if p.opener == model.ElementTypeTitle {
		meta.Level = ChunkLevelSection
	}
	meta.PageStart, meta.PageEnd = -1, -1

	for _, pos := range p.positions {
		e := tree.Elements[pos]
		elements = append(elements, e)
		name := nodeName(e)
		if !seen[name] {
			seen[name] = true
			types = append(types, name)
		}
		switch e.Type() {
		case model.ElementTypeTableContent:
			meta.HasTable = true
		case model.ElementTypeList:
			meta.HasList = true
		case model.ElementTypeImage:
			meta.HasImage = true
		}
		pages, boxes := pagesOf(e)
		for i, page := range pages {
			if meta.PageStart < 0 || page < meta.PageStart {
				meta.PageStart = page
			}
			if page > meta.PageEnd {
				meta.PageEnd = page
			}
			if i < len(boxes) {
				meta.Boxes = append(meta.Boxes, PageBox{Page: page, BBox: boxes[i].Tuple()})
			}
		}
	}
	meta.ElementTypes = types

	text := c.exporter.PlainMarkdown(elements)
	if c.config.MaxChunkSize <= 0 || len(text) <= c.config.MaxChunkSize {
		return []*Chunk{c.newChunk(index, text, meta)}
	}

	var chunks []*Chunk
	meta.Level = ChunkLevelSentence
	for _, piece := range c.splitBySentences(text) {
		chunks = append(chunks, c.newChunk(index+len(chunks), piece, meta))
	}
	return chunks
}

func (c *Chunker) newChunk(index int, text string, meta ChunkMetadata) *Chunk {
	meta.ChunkIndex = index
	ch := NewChunk(fmt.Sprintf("%s_%d", c.config.IDPrefix, index), text, meta)
	if !c.config.IncludeSectionContext {
		ch.TextWithContext = ""
	}
	return ch
}

// pagesOf returns the pages and boxes an element covers
func pagesOf(e model.Element) ([]int, []model.BBox) {
	if s, ok := e.(spanned); ok {
		return s.PageList(), s.BBoxList()
	}
	return []int{e.PageIndex()}, []model.BBox{e.BoundingBox()}
}

// splitBySentences packs the sentences of text into pieces no longer than
// MaxChunkSize; a single longer sentence makes a piece of its own
func (c *Chunker) splitBySentences(text string) []string {
	var pieces []string
	var current strings.Builder
	for _, sentence := range splitIntoSentences(text) {
		added := len(sentence)
		if current.Len() > 0 {
			added++
		}
		if current.Len()+added > c.config.MaxChunkSize && current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// calculateStats computes statistics about the chunks
func (c *Chunker) calculateStats(chunks []*Chunk) ChunkStats {
	stats := ChunkStats{TotalChunks: len(chunks)}
	sizes := make([]int, 0, len(chunks))
	for _, ch := range chunks {
		stats.TotalCharacters += ch.Metadata.CharCount
		stats.TotalWords += ch.Metadata.WordCount
		stats.TotalTokensEst += ch.Metadata.EstimatedTokens
		sizes = append(sizes, ch.Metadata.CharCount)

		switch ch.Metadata.Level {
		case ChunkLevelSection:
			stats.SectionChunks++
		case ChunkLevelParagraph:
			stats.ParagraphChunks++
		case ChunkLevelSentence:
			stats.SentenceChunks++
		}
	}
	if len(sizes) > 0 {
		sort.Ints(sizes)
		stats.MinChunkSize = sizes[0]
		stats.MaxChunkSize = sizes[len(sizes)-1]
		stats.AvgChunkSize = stats.TotalCharacters / len(sizes)
	}
	return stats
}

// countWords counts the number of words in text
func countWords(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			inWord = true
			words++
		}
	}
	return words
}

// splitIntoSentences splits text after '.', '!' and '?' unless a lower case
// letter follows or a lone capital precedes (initials, "e.g.")
func splitIntoSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			continue
		}
		if r == '.' && i > 0 && unicode.IsUpper(runes[i-1]) && (i < 2 || unicode.IsSpace(runes[i-2])) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
