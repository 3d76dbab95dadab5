package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/model"
)

func TestChunkerSplitsAtTitles(t *testing.T) {
	l := model.NewLayout(
		makeText(model.ElementTypeTitle, 0, 0.05, 0.1, "Intro"),
		makeText(model.ElementTypeText, 0, 0.1, 0.2, "Hello", "world."),
		makeText(model.ElementTypeTitle, 0, 0.3, 0.35, "Next"),
		makeText(model.ElementTypeText, 0, 0.4, 0.5, "More", "text."),
		makeTable(1, 0.1, []string{"a", "b"}, []string{"c", "d"}),
	)

	result, err := NewChunker().Chunk(l)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	first := result.Chunks[0]
	assert.Equal(t, "chunk_0", first.ID)
	assert.Equal(t, "# Intro\n\nHello world.", first.Text)
	assert.Equal(t, []string{"Intro"}, first.Metadata.SectionPath)
	assert.Equal(t, "intro", first.Metadata.SectionAnchor)
	assert.Equal(t, ChunkLevelSection, first.Metadata.Level)
	assert.Equal(t, []string{"title", "text"}, first.Metadata.ElementTypes)
	assert.Equal(t, "[Intro]\n\n# Intro\n\nHello world.", first.TextWithContext)
	assert.Len(t, first.Metadata.Boxes, 2)

	second := result.Chunks[1]
	assert.Equal(t, []string{"Next"}, second.Metadata.SectionPath)
	assert.Equal(t, 1, second.Metadata.SplitCandidate)

	// the table opens page 1 and is a chunk of its own
	third := result.Chunks[2]
	assert.True(t, third.Metadata.HasTable)
	assert.Equal(t, 1, third.Metadata.PageStart)
	assert.Equal(t, 1, third.Metadata.PageEnd)
	assert.Equal(t, ChunkLevelParagraph, third.Metadata.Level)

	for _, c := range result.Chunks {
		assert.Equal(t, 3, c.Metadata.TotalChunks)
	}
	assert.Equal(t, 3, result.Stats.TotalChunks)
	assert.Equal(t, 2, result.Stats.SectionChunks)
	assert.Equal(t, 1, result.Stats.ParagraphChunks)
}

func TestChunkerSplitLevel(t *testing.T) {
	l := model.NewLayout(
		makeText(model.ElementTypeTitle, 0, 0.05, 0.1, "Intro"),
		makeText(model.ElementTypeText, 0, 0.1, 0.2, "one"),
		makeText(model.ElementTypeText, 0, 0.2, 0.3, "two"),
	)
	cfg := DefaultChunkerConfig()
	cfg.SplitLevel = MinParagraphSplitCandidate

	result, err := NewChunkerWithConfig(cfg, DefaultConfig()).Chunk(l)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)
	// paragraphs keep the title on their path
	assert.Equal(t, []string{"Intro"}, result.Chunks[2].Metadata.SectionPath)
	assert.Equal(t, "two", result.Chunks[2].Text)
}

func TestChunkerLongChunk(t *testing.T) {
	sentence := strings.Repeat("word ", 8) + "end."
	var contents []string
	for i := 0; i < 6; i++ {
		contents = append(contents, strings.Fields(sentence)...)
	}
	words := make([]*model.Word, len(contents))
	for i, c := range contents {
		words[i] = makeWord(c, 0.1, 0.1, 0.2, 0.12, 0)
	}
	l := model.NewLayout(makeParagraph(model.ElementTypeText, 0, 0.1, 0.9, words...))

	cfg := DefaultChunkerConfig()
	cfg.MaxChunkSize = 100
	cfg.IncludeSectionContext = false
	result, err := NewChunkerWithConfig(cfg, DefaultConfig()).Chunk(l)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 3)
	for i, c := range result.Chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, ChunkLevelSentence, c.Metadata.Level)
		assert.LessOrEqual(t, len(c.Text), 100)
		assert.Empty(t, c.TextWithContext)
	}
	assert.Equal(t, 3, result.Stats.SentenceChunks)
}

func TestChunkerNilLayout(t *testing.T) {
	_, err := NewChunker().Chunk(nil)
	assert.Error(t, err)
}

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"Use the x.y field. Done", []string{"Use the x.y field.", "Done"}},
		{"Written by J. Smith. Fine.", []string{"Written by J. Smith.", "Fine."}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitIntoSentences(tt.in), tt.in)
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, countWords("  "))
	assert.Equal(t, 3, countWords(" a  b\nc "))
}
