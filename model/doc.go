// Package model provides the element representation shared by every stage of
// the document reconstruction pipeline.
//
// # Geometry
//
// All coordinates are normalized to the page: a [BBox] has every coordinate
// in [0,1] with the origin at the top-left corner. Construction never
// produces a degenerate box:
//
//	b, ok := model.NewBBox(0.1, 0.2, 0.4, 0.3)
//	if !ok {
//		// skip the candidate
//	}
//
// [IsBBoxWithin] is the containment test used by every stage, and
// [MatchInterval] / [MatchIntervalRatio] compare one-dimensional extents.
//
// # Elements
//
// Everything a [Layout] holds implements [Element]:
//
//   - [Word] - an OCR token
//   - [Line] - words sharing a baseline
//   - [VisualElement] - a non-textual separator
//   - [Paragraph] - text, list, title, extra, header, footer or image
//   - [Table] - a detected table with its cell grid
//   - [TableContent] - a table populated with text
//
// Annotations added by later stages live in the typed [Metadata] carried by
// every element.
//
// # Tables
//
// A spanning cell is repeated at every grid position it covers, each copy
// carrying the same [SpanningCellID]. [TableContent.SpanningCells] turns the
// repetition into row and column spans, and [MakeFlatTable] lays the text out
// for LaTeX, HTML or Markdown rendering.
//
// # Layouts
//
// A [Layout] holds a single family of elements: words, lines, or tables and
// paragraphs, each optionally mixed with visual elements. Layouts built from
// page batches are combined with [MergeByPage].
package model
