// Package rag enriches a built layout and exports it for retrieval
// pipelines.
//
// # Enrichment
//
// The [Modifier] rewrites a layout in place: Unicode normalization, removal
// of "(cid:N)" placeholders and unreadable characters, promotion of text to
// lists, list item indexing, anchoring of vertical paragraphs, merging of
// exploded words, header and footer promotion, running head removal and
// joins across page breaks:
//
//	m := rag.NewModifierWithConfig(cfg)
//	stats := m.Apply(layout)
//
// # Hierarchy
//
// [BuildTree] links titles to what follows them, captions to their table,
// figure or formula, and a paragraph ending with ':' to its list. Each node
// gets a split candidate: 0 at a page break, small for titles and larger
// for body elements. Lower values are better places to cut the document.
//
// # Export
//
// The [Exporter] writes a layout as JSON, XML, Markdown or plain text.
// Markdown blocks are preceded by an HTML comment holding the block's
// split candidate, type, pages and boxes:
//
//	<!-- {"split_candidate":1,"type":"title","pages":[0],"bboxes":[[0.1,0.1,0.9,0.15]]} -->
//	# Introduction
//
// Tables are written as Markdown grids, LaTeX documents or HTML tables.
//
// # Chunking
//
// The [Chunker] cuts a layout at every node whose split candidate is at most
// [ChunkerConfig].SplitLevel. Each [Chunk] carries its section path, pages
// and boxes; chunks over MaxChunkSize are cut at sentence boundaries.
package rag
